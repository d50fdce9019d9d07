package model

import "time"

// EventStatus tells whether an event is on sale.
type EventStatus string

const (
    EventActive   EventStatus = "active"
    EventInactive EventStatus = "inactive"
)

// SeatType is a category of allocatable capacity within an event.  The
// catalog copy of RemainingTickets is authoritative once inventory events
// have been applied; Sequence is the last applied inventory sequence.
//
// Fields:
//  ID               – seat type identifier.
//  EventID          – parent event.
//  Label            – display label (VIP, Regular, Standing ...).
//  TotalTickets     – capacity, never changes after creation.
//  RemainingTickets – 0 <= remaining <= total.
//  Sequence         – monotonically increasing per seat type.
type SeatType struct {
    ID               string `json:"id"`
    EventID          string `json:"concertId"`
    Label            string `json:"type"`
    TotalTickets     int    `json:"totalTickets"`
    RemainingTickets int    `json:"remainingTickets"`
    Sequence         int64  `json:"sequence"`
}

// Event is a concert with its seat types embedded, the shape served by the
// catalog read API and consumed by the booking service.
type Event struct {
    ID        string      `json:"id"`
    Name      string      `json:"name"`
    StartsAt  time.Time   `json:"date"`
    Status    EventStatus `json:"status"`
    SeatTypes []SeatType  `json:"seatTypes"`
}

// IsActive reports whether bookings may be created against the event.
func (e *Event) IsActive() bool { return e != nil && e.Status == EventActive }

// SeatType resolves a seat type by identity.  The second return value is
// false when the event has no seat type with that id.
func (e *Event) SeatType(id string) (SeatType, bool) {
    if e == nil {
        return SeatType{}, false
    }
    for _, st := range e.SeatTypes {
        if st.ID == id {
            return st, true
        }
    }
    return SeatType{}, false
}
