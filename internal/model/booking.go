package model

import "time"

// BookingStatus is the lifecycle state of a booking record.
type BookingStatus string

const (
    // BookingPending is the draft state a record may sit in before it is
    // confirmed.  A pending record is reused by the next reservation of the
    // same user for the same event.
    BookingPending   BookingStatus = "pending"
    BookingConfirmed BookingStatus = "confirmed"
    BookingCancelled BookingStatus = "cancelled"
)

// Booking records a user's reservation of a quantity of one seat type for
// an event.  There is at most one record per (user, event) pair; it is
// flipped between confirmed and cancelled instead of being duplicated.
//
// Fields:
//  ID         – uuid primary key.
//  UserID     – subject of the bearer token that created the booking.
//  EventID    – event the seats belong to.
//  SeatTypeID – seat type the quantity was taken from.
//  Quantity   – number of tickets, always > 0.
//  Status     – pending, confirmed or cancelled.
type Booking struct {
    ID         string        `json:"id"`
    UserID     string        `json:"userId"`
    EventID    string        `json:"concertId"`
    SeatTypeID string        `json:"seatTypeId"`
    Quantity   int           `json:"quantity"`
    Status     BookingStatus `json:"status"`
    CreatedAt  time.Time     `json:"createdAt"`
    UpdatedAt  time.Time     `json:"updatedAt"`
}

// IsConfirmed reports whether the booking currently holds stock.
func (b *Booking) IsConfirmed() bool { return b != nil && b.Status == BookingConfirmed }
