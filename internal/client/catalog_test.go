package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events/e1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"e1","name":"Live","date":"2026-12-01T20:00:00Z","status":"active",
			"seatTypes":[{"id":"vip","concertId":"e1","type":"VIP","totalTickets":50,"remainingTickets":48,"sequence":2}]}`))
	}))
	defer srv.Close()

	ev, err := NewCatalog(srv.URL+"/", time.Second).GetEvent(context.Background(), "e1")
	require.NoError(t, err)
	assert.True(t, ev.IsActive())
	st, ok := ev.SeatType("vip")
	require.True(t, ok)
	assert.Equal(t, 48, st.RemainingTickets)
	assert.Equal(t, 50, st.TotalTickets)
	assert.EqualValues(t, 2, st.Sequence)
}

func TestGetEventErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", http.StatusNotFound, `{"message":"not found"}`, ErrEventNotFound},
		{"server error", http.StatusInternalServerError, `oops`, ErrUnavailable},
		{"bad body", http.StatusOK, `{"id":`, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewCatalog(srv.URL, time.Second).GetEvent(context.Background(), "e1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestGetEventTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewCatalog(srv.URL, 50*time.Millisecond).GetEvent(context.Background(), "e1")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrEventNotFound)
}

func TestGetEventConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewCatalog(url, time.Second).GetEvent(context.Background(), "e1")
	assert.ErrorIs(t, err, ErrUnavailable)
}
