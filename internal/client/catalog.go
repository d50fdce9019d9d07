package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/iliyamo/ticket-booking/internal/model"
)

var (
	// ErrEventNotFound means the catalog answered and does not know the event.
	ErrEventNotFound = errors.New("event not found in catalog")
	// ErrUnavailable covers everything else: network errors, timeouts, 5xx
	// and undecodable bodies.
	ErrUnavailable = errors.New("catalog unavailable")
)

// Catalog reads events from the catalog service over HTTP.
type Catalog struct {
	baseURL    string
	timeout    time.Duration
	HTTPClient *http.Client
}

// NewCatalog returns a client for the catalog service at baseURL.  The
// http.Client has no global timeout; every call is bounded by timeout on
// top of the caller's context.
func NewCatalog(baseURL string, timeout time.Duration) *Catalog {
	return &Catalog{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		HTTPClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
			},
		},
	}
}

// GetEvent fetches GET {base}/events/{id}.
func (c *Catalog) GetEvent(ctx context.Context, eventID string) (*model.Event, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	endpoint := c.baseURL + "/events/" + url.PathEscape(eventID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "build request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "%v", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, ErrEventNotFound
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, errors.Wrap(ErrUnavailable, fmt.Sprintf("catalog returned status %s", resp.Status))
	}

	var ev model.Event
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "decode event: %v", err)
	}
	return &ev, nil
}
