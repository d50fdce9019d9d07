package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/ticket-booking/internal/client"
	"github.com/iliyamo/ticket-booking/internal/inventory"
	"github.com/iliyamo/ticket-booking/internal/metrics"
	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
)

// Inventory is the fast-path counter store.
type Inventory interface {
	EnsureSeeded(ctx context.Context, seatTypeID string, initialRemaining, total int, seq int64) (bool, error)
	TryDecrement(ctx context.Context, seatTypeID string, quantity int) (inventory.Level, bool, error)
	Increment(ctx context.Context, seatTypeID string, quantity int) (inventory.Level, error)
}

// EventPublisher announces new remaining counts on the fanout channel.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.InventoryChanged) error
}

// CatalogLookup fetches the event snapshot used for validation and seeding.
type CatalogLookup interface {
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
}

// BookingStore persists booking records.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*model.Booking, error)
	Create(ctx context.Context, b *model.Booking) error
	Confirm(ctx context.Context, b *model.Booking) error
	Cancel(ctx context.Context, id string) error
	Reinstate(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
}

// ReserveInput is a reservation request on behalf of an authenticated user.
type ReserveInput struct {
	UserID     string
	EventID    string
	SeatTypeID string
	Quantity   int
}

// BookingService drives the reserve and cancel workflows.  It never holds a
// lock across the counter, the channel and the booking store: every forward
// step that moved stock has a compensating step that gives it back.
type BookingService struct {
	store     BookingStore
	catalog   CatalogLookup
	inventory Inventory
	publisher EventPublisher

	publishAttempts     int
	compensationTimeout time.Duration
}

// NewBookingService wires the orchestrator to its collaborators.  All
// dependencies must be non-nil.
func NewBookingService(store BookingStore, catalog CatalogLookup, inv Inventory, pub EventPublisher) *BookingService {
	if store == nil || catalog == nil || inv == nil || pub == nil {
		panic("nil dependency passed to NewBookingService")
	}
	return &BookingService{
		store:               store,
		catalog:             catalog,
		inventory:           inv,
		publisher:           pub,
		publishAttempts:     3,
		compensationTimeout: 5 * time.Second,
	}
}

// Reserve takes quantity tickets of a seat type for the user and returns
// the confirmed booking.
func (s *BookingService) Reserve(ctx context.Context, in ReserveInput) (*model.Booking, error) {
	b, err := s.reserve(ctx, in)
	metrics.Reservations.WithLabelValues(outcome(err)).Inc()
	if err != nil && IsRetryable(err) {
		log.Error().Err(err).Str("user_id", in.UserID).Str("event_id", in.EventID).
			Str("seat_type_id", in.SeatTypeID).Msg("booking: reservation failed")
	}
	return b, err
}

func (s *BookingService) reserve(ctx context.Context, in ReserveInput) (*model.Booking, error) {
	if in.UserID == "" || in.EventID == "" || in.SeatTypeID == "" {
		return nil, errors.Wrap(ErrInvalidInput, "concertId and seatTypeId are required")
	}
	if in.Quantity <= 0 {
		return nil, errors.Wrap(ErrInvalidInput, "quantity must be positive")
	}

	// 1. one confirmed booking per user and event
	existing, err := s.store.FindByUserAndEvent(ctx, in.UserID, in.EventID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		existing = nil
	case err != nil:
		return nil, errors.Wrapf(ErrStoreWrite, "find booking: %v", err)
	case existing.IsConfirmed():
		return nil, ErrDuplicateBooking
	}

	// 2-3. event on sale and seat type part of it
	st, err := s.lookupSeatType(ctx, in.EventID, in.SeatTypeID)
	if err != nil {
		return nil, err
	}

	// 4-5. seed on first access, then take the stock
	lvl, err := s.take(ctx, st, in.Quantity)
	if err != nil {
		return nil, err
	}

	// 6. announce the new absolute count
	if err := s.announce(ctx, st.ID, lvl); err != nil {
		s.compensate(ctx, st.ID, in.Quantity, "publish")
		return nil, err
	}

	// 7. persist the booking, reusing a draft or cancelled record
	b, err := s.persist(ctx, existing, in)
	if err != nil {
		s.compensate(ctx, st.ID, in.Quantity, "persist")
		return nil, err
	}
	log.Info().Str("booking_id", b.ID).Str("user_id", b.UserID).Str("seat_type_id", b.SeatTypeID).
		Int("quantity", b.Quantity).Int("remaining", lvl.Remaining).Msg("booking: confirmed")
	return b, nil
}

// lookupSeatType validates the event and resolves the seat type by id.
// A missing event is a business rejection; an unreachable catalog is not.
func (s *BookingService) lookupSeatType(ctx context.Context, eventID, seatTypeID string) (model.SeatType, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, client.ErrEventNotFound) {
			return model.SeatType{}, ErrEventUnavailable
		}
		return model.SeatType{}, errors.Wrapf(ErrCatalogUnavailable, "%v", err)
	}
	if !ev.IsActive() {
		return model.SeatType{}, ErrEventUnavailable
	}
	st, ok := ev.SeatType(seatTypeID)
	if !ok {
		return model.SeatType{}, ErrSeatTypeNotFound
	}
	return st, nil
}

func (s *BookingService) seed(ctx context.Context, st model.SeatType) error {
	if _, err := s.inventory.EnsureSeeded(ctx, st.ID, st.RemainingTickets, st.TotalTickets, st.Sequence); err != nil {
		if errors.Is(err, inventory.ErrInvalidQuantity) {
			return errors.Wrapf(ErrCatalogUnavailable, "inconsistent seat type snapshot: %v", err)
		}
		return errors.Wrapf(ErrCacheUnavailable, "%v", err)
	}
	return nil
}

// take seeds the counter when needed and decrements it.  A counter that
// disappears between seeding and decrementing (eviction, flush) is seeded
// again once.
func (s *BookingService) take(ctx context.Context, st model.SeatType, quantity int) (inventory.Level, error) {
	for attempt := 0; ; attempt++ {
		if err := s.seed(ctx, st); err != nil {
			return inventory.Level{}, err
		}
		lvl, ok, err := s.inventory.TryDecrement(ctx, st.ID, quantity)
		if errors.Is(err, inventory.ErrCounterMissing) && attempt == 0 {
			continue
		}
		if err != nil {
			return inventory.Level{}, errors.Wrapf(ErrCacheUnavailable, "%v", err)
		}
		if !ok {
			return inventory.Level{}, ErrInsufficientStock
		}
		return lvl, nil
	}
}

func (s *BookingService) persist(ctx context.Context, existing *model.Booking, in ReserveInput) (*model.Booking, error) {
	if existing != nil {
		existing.SeatTypeID = in.SeatTypeID
		existing.Quantity = in.Quantity
		if err := s.store.Confirm(ctx, existing); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return nil, ErrDuplicateBooking
			}
			return nil, errors.Wrapf(ErrStoreWrite, "confirm booking: %v", err)
		}
		return existing, nil
	}
	b := &model.Booking{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		EventID:    in.EventID,
		SeatTypeID: in.SeatTypeID,
		Quantity:   in.Quantity,
		Status:     model.BookingConfirmed,
	}
	if err := s.store.Create(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateBooking
		}
		return nil, errors.Wrapf(ErrStoreWrite, "create booking: %v", err)
	}
	return b, nil
}

// announce publishes the level, retrying a few times with a short backoff.
func (s *BookingService) announce(ctx context.Context, seatTypeID string, lvl inventory.Level) error {
	ev := queue.InventoryChanged{SeatTypeID: seatTypeID, RemainingTickets: lvl.Remaining, Sequence: lvl.Sequence}
	var err error
	for attempt := 1; attempt <= s.publishAttempts; attempt++ {
		if err = s.publisher.Publish(ctx, ev); err == nil {
			metrics.InventoryPublished.WithLabelValues("ok").Inc()
			return nil
		}
		log.Warn().Err(err).Str("seat_type_id", seatTypeID).Int("attempt", attempt).Msg("booking: publish failed")
		if attempt < s.publishAttempts {
			t := time.NewTimer(time.Duration(attempt) * 100 * time.Millisecond)
			select {
			case <-ctx.Done():
				t.Stop()
				metrics.InventoryPublished.WithLabelValues("failed").Inc()
				return errors.Wrapf(ErrPublishFailed, "%v", ctx.Err())
			case <-t.C:
			}
		}
	}
	metrics.InventoryPublished.WithLabelValues("failed").Inc()
	return errors.Wrapf(ErrPublishFailed, "%v", err)
}

// compensate gives quantity back after a later reservation step failed and
// announces the restored count.  It runs detached from the request context
// so a client disconnect cannot strand the stock.
func (s *BookingService) compensate(ctx context.Context, seatTypeID string, quantity int, step string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()
	lvl, err := s.inventory.Increment(ctx, seatTypeID, quantity)
	if err != nil {
		metrics.Compensations.WithLabelValues(step, "failed").Inc()
		log.Error().Err(err).Str("seat_type_id", seatTypeID).Int("quantity", quantity).Str("step", step).
			Msg("booking: could not restore stock after failed reservation")
		return
	}
	metrics.Compensations.WithLabelValues(step, "ok").Inc()
	if err := s.announce(ctx, seatTypeID, lvl); err != nil {
		log.Error().Err(err).Str("seat_type_id", seatTypeID).Int("remaining", lvl.Remaining).
			Msg("booking: restored stock not announced; next change for this seat type supersedes it")
	}
}

// Cancel cancels a confirmed booking owned by userID and returns its stock.
func (s *BookingService) Cancel(ctx context.Context, bookingID, userID string) error {
	err := s.cancel(ctx, bookingID, userID)
	metrics.Cancellations.WithLabelValues(outcome(err)).Inc()
	return err
}

func (s *BookingService) cancel(ctx context.Context, bookingID, userID string) error {
	if bookingID == "" || userID == "" {
		return errors.Wrap(ErrInvalidInput, "booking id is required")
	}
	b, err := s.store.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrBookingNotFound
	}
	if err != nil {
		return errors.Wrapf(ErrStoreWrite, "load booking: %v", err)
	}
	if b.UserID != userID {
		return ErrForbidden
	}
	if !b.IsConfirmed() {
		return ErrAlreadyCancelled
	}

	// The conditional flip decides which of two concurrent cancellations
	// gets to credit the stock.
	if err := s.store.Cancel(ctx, b.ID); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrAlreadyCancelled
		}
		return errors.Wrapf(ErrStoreWrite, "cancel booking: %v", err)
	}

	lvl, err := s.restock(ctx, b)
	if err != nil {
		// Put the booking back so the owner can retry the cancellation.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
		defer cancel()
		if rerr := s.store.Reinstate(rctx, b.ID); rerr != nil {
			log.Error().Err(rerr).Str("booking_id", b.ID).Int("quantity", b.Quantity).
				Msg("booking: cancelled without stock credit; manual reconciliation required")
		}
		return err
	}

	if err := s.announce(ctx, b.SeatTypeID, lvl); err != nil {
		log.Error().Err(err).Str("booking_id", b.ID).Str("seat_type_id", b.SeatTypeID).Int("remaining", lvl.Remaining).
			Msg("booking: cancellation credited but not announced; next change for this seat type supersedes it")
	}
	log.Info().Str("booking_id", b.ID).Str("user_id", userID).Int("remaining", lvl.Remaining).Msg("booking: cancelled")
	return nil
}

// restock credits the booking quantity back to the counter.  A missing
// counter is seeded from the catalog first; the catalog count already
// reflects this booking's decrement once it has been applied.
func (s *BookingService) restock(ctx context.Context, b *model.Booking) (inventory.Level, error) {
	lvl, err := s.inventory.Increment(ctx, b.SeatTypeID, b.Quantity)
	if errors.Is(err, inventory.ErrCounterMissing) {
		st, lerr := s.seatTypeSnapshot(ctx, b.EventID, b.SeatTypeID)
		if lerr != nil {
			return inventory.Level{}, lerr
		}
		if serr := s.seed(ctx, st); serr != nil {
			return inventory.Level{}, serr
		}
		lvl, err = s.inventory.Increment(ctx, b.SeatTypeID, b.Quantity)
	}
	if errors.Is(err, inventory.ErrOverCapacity) {
		// The counter already holds the full capacity; crediting more would
		// break remaining <= total.  Announce the current value as is.
		log.Warn().Err(err).Str("booking_id", b.ID).Msg("booking: stock credit capped at capacity")
		return lvl, nil
	}
	if err != nil {
		return inventory.Level{}, errors.Wrapf(ErrCacheUnavailable, "%v", err)
	}
	return lvl, nil
}

// seatTypeSnapshot reads a seat type from the catalog regardless of the
// event status; cancellations stay possible on inactive events.
func (s *BookingService) seatTypeSnapshot(ctx context.Context, eventID, seatTypeID string) (model.SeatType, error) {
	ev, err := s.catalog.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, client.ErrEventNotFound) {
			return model.SeatType{}, ErrEventUnavailable
		}
		return model.SeatType{}, errors.Wrapf(ErrCatalogUnavailable, "%v", err)
	}
	st, ok := ev.SeatType(seatTypeID)
	if !ok {
		return model.SeatType{}, ErrSeatTypeNotFound
	}
	return st, nil
}

// Get returns a booking owned by userID.
func (s *BookingService) Get(ctx context.Context, bookingID, userID string) (*model.Booking, error) {
	b, err := s.store.GetByID(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(ErrStoreWrite, "load booking: %v", err)
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

// List returns the bookings of userID, newest first.
func (s *BookingService) List(ctx context.Context, userID string) ([]model.Booking, error) {
	out, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(ErrStoreWrite, "list bookings: %v", err)
	}
	return out, nil
}
