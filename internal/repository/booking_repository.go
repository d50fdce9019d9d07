package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ticket-booking/internal/model"
)

// BookingRepo provides persistence for booking records.  A record is keyed
// by uuid and unique per (user_id, event_id); status transitions are
// conditional updates so concurrent callers cannot both win the same
// transition.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, user_id, event_id, seat_type_id, quantity, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	var status string
	if err := row.Scan(&b.ID, &b.UserID, &b.EventID, &b.SeatTypeID, &b.Quantity, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	return &b, nil
}

// GetByID loads a booking by id.  ErrNotFound is returned when no row
// exists.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// FindByUserAndEvent returns the booking record of a user for an event,
// whatever its status.  ErrNotFound is returned when the user never booked
// the event.
func (r *BookingRepo) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? AND event_id = ? LIMIT 1`,
		userID, eventID)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// Create inserts a new booking.  The caller supplies the id.  ErrDuplicate
// is returned when the user already has a record for the event, which
// happens when two reservations of the same user race each other.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (id, user_id, event_id, seat_type_id, quantity, status) VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, q, b.ID, b.UserID, b.EventID, b.SeatTypeID, b.Quantity, string(b.Status)); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return r.reload(ctx, b)
}

// Confirm reuses a non-confirmed record: quantity and seat type are
// overwritten and the status becomes confirmed.  ErrConflict is returned
// when the record has been confirmed in the meantime.
func (r *BookingRepo) Confirm(ctx context.Context, b *model.Booking) error {
	const q = `UPDATE bookings SET seat_type_id = ?, quantity = ?, status = 'confirmed'
	           WHERE id = ? AND status <> 'confirmed'`
	res, err := r.db.ExecContext(ctx, q, b.SeatTypeID, b.Quantity, b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return r.reload(ctx, b)
}

// Cancel flips a confirmed booking to cancelled.  The status check is part
// of the UPDATE so that of two concurrent cancellations only one affects a
// row; the other gets ErrConflict.
func (r *BookingRepo) Cancel(ctx context.Context, id string) error {
	const q = `UPDATE bookings SET status = 'cancelled' WHERE id = ? AND status = 'confirmed'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// Reinstate undoes Cancel when the stock credit that should follow it could
// not be made.
func (r *BookingRepo) Reinstate(ctx context.Context, id string) error {
	const q = `UPDATE bookings SET status = 'confirmed' WHERE id = ? AND status = 'cancelled'`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// ListByUser returns every booking record of the user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// reload reads back the row to populate status defaults and timestamps.
func (r *BookingRepo) reload(ctx context.Context, b *model.Booking) error {
	fresh, err := r.GetByID(ctx, b.ID)
	if err != nil {
		return err
	}
	*b = *fresh
	return nil
}
