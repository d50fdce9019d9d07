package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ticket-booking/internal/model"
)

// ApplyOutcome tells what an inventory update did to the stored row.
type ApplyOutcome int

const (
	// Applied means the row now holds the incoming count and sequence.
	Applied ApplyOutcome = iota + 1
	// Unchanged means the row already reflects this update or a newer one;
	// duplicates and out-of-order deliveries end here.
	Unchanged
)

// CatalogRepo is the authoritative store for events and seat types.
type CatalogRepo struct {
	db *sql.DB
}

// NewCatalogRepo returns a new CatalogRepo bound to the given database.
func NewCatalogRepo(db *sql.DB) *CatalogRepo { return &CatalogRepo{db: db} }

// GetEvent loads an event with its seat types embedded.  ErrNotFound is
// returned for an unknown id.
func (r *CatalogRepo) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var ev model.Event
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, starts_at, status FROM events WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.Name, &ev.StartsAt, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.Status = model.EventStatus(status)
	seatTypes, err := r.seatTypesByEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	ev.SeatTypes = seatTypes
	return &ev, nil
}

// ListEvents returns all events ordered by start time, seat types included.
func (r *CatalogRepo) ListEvents(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, starts_at, status FROM events ORDER BY starts_at`)
	if err != nil {
		return nil, err
	}
	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		var status string
		if err := rows.Scan(&ev.ID, &ev.Name, &ev.StartsAt, &status); err != nil {
			rows.Close()
			return nil, err
		}
		ev.Status = model.EventStatus(status)
		events = append(events, ev)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	for i := range events {
		st, err := r.seatTypesByEvent(ctx, events[i].ID)
		if err != nil {
			return nil, err
		}
		events[i].SeatTypes = st
	}
	return events, nil
}

func (r *CatalogRepo) seatTypesByEvent(ctx context.Context, eventID string) ([]model.SeatType, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, label, total_tickets, remaining_tickets, seq
		 FROM seat_types WHERE event_id = ? ORDER BY label`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SeatType, 0)
	for rows.Next() {
		var st model.SeatType
		if err := rows.Scan(&st.ID, &st.EventID, &st.Label, &st.TotalTickets, &st.RemainingTickets, &st.Sequence); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CreateEvent inserts an event and its seat types in one transaction.
// Remaining counts start at capacity unless set explicitly.
func (r *CatalogRepo) CreateEvent(ctx context.Context, ev *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (id, name, starts_at, status) VALUES (?, ?, ?, ?)`,
		ev.ID, ev.Name, ev.StartsAt.UTC(), string(ev.Status)); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	for i := range ev.SeatTypes {
		st := &ev.SeatTypes[i]
		st.EventID = ev.ID
		if st.RemainingTickets < 0 || st.RemainingTickets > st.TotalTickets {
			return ErrOutOfRange
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO seat_types (id, event_id, label, total_tickets, remaining_tickets) VALUES (?, ?, ?, ?, ?)`,
			st.ID, st.EventID, st.Label, st.TotalTickets, st.RemainingTickets); err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicate
			}
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ApplyRemaining overwrites the remaining count of a seat type with an
// absolute value.  A sequenced update (seq > 0) only lands when it is newer
// than the stored sequence, so redeliveries and late deliveries are no-ops.
// An unsequenced update (seq == 0) only lands while the row has never seen
// a sequenced one.  ErrNotFound and ErrOutOfRange describe updates that can
// never succeed.
func (r *CatalogRepo) ApplyRemaining(ctx context.Context, seatTypeID string, remaining int, seq int64) (ApplyOutcome, error) {
	var (
		res sql.Result
		err error
	)
	if seq > 0 {
		res, err = r.db.ExecContext(ctx,
			`UPDATE seat_types SET remaining_tickets = ?, seq = ?
			 WHERE id = ? AND seq < ? AND ? <= total_tickets`,
			remaining, seq, seatTypeID, seq, remaining)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE seat_types SET remaining_tickets = ?
			 WHERE id = ? AND seq = 0 AND ? <= total_tickets`,
			remaining, seatTypeID, remaining)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return Applied, nil
	}

	// Nothing changed: find out whether the row is missing, the count is
	// impossible, or the update is simply not newer than what is stored.
	var total int
	err = r.db.QueryRowContext(ctx, `SELECT total_tickets FROM seat_types WHERE id = ?`, seatTypeID).Scan(&total)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if remaining < 0 || remaining > total {
		return 0, ErrOutOfRange
	}
	return Unchanged, nil
}
