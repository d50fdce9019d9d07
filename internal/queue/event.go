// Package queue defines the inventory change message and the RabbitMQ
// publisher and consumer that carry it between services.
package queue

import (
    "encoding/json"

    "github.com/pkg/errors"
)

// ErrMalformed marks a delivery whose body can never be applied.  The
// consumer drops such messages instead of requeueing them.
var ErrMalformed = errors.New("malformed inventory message")

// InventoryChanged announces the new absolute remaining count of a seat
// type.  It is never a delta: consumers overwrite, they do not add.
// Sequence orders the announcements of one seat type so a consumer can
// ignore an older count that is delivered after a newer one.
type InventoryChanged struct {
    SeatTypeID       string `json:"seatTypeId"`
    RemainingTickets int    `json:"remainingTickets"`
    Sequence         int64  `json:"sequence,omitempty"`
}

// Validate checks the fields every consumer relies on.
func (e InventoryChanged) Validate() error {
    if e.SeatTypeID == "" {
        return errors.Wrap(ErrMalformed, "seatTypeId is required")
    }
    if e.RemainingTickets < 0 {
        return errors.Wrapf(ErrMalformed, "remainingTickets=%d", e.RemainingTickets)
    }
    if e.Sequence < 0 {
        return errors.Wrapf(ErrMalformed, "sequence=%d", e.Sequence)
    }
    return nil
}

// DecodeInventoryChanged parses and validates a delivery body.
func DecodeInventoryChanged(body []byte) (InventoryChanged, error) {
    var ev InventoryChanged
    if err := json.Unmarshal(body, &ev); err != nil {
        return InventoryChanged{}, errors.Wrapf(ErrMalformed, "unmarshal: %v", err)
    }
    if err := ev.Validate(); err != nil {
        return InventoryChanged{}, err
    }
    return ev, nil
}
