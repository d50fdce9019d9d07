package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/ticket-booking/internal/metrics"
	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
)

// CatalogStore is the authoritative event and seat type store.
type CatalogStore interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]model.Event, error)
	CreateEvent(ctx context.Context, ev *model.Event) error
	ApplyRemaining(ctx context.Context, seatTypeID string, remaining int, seq int64) (repository.ApplyOutcome, error)
}

// CatalogService serves the catalog read API and applies inventory changes
// coming off the queue.
type CatalogService struct {
	store CatalogStore
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// Apply writes an absolute remaining count into the catalog.  Redelivered
// and out-of-order messages leave the row untouched and report success so
// the delivery is acknowledged.  Messages that can never apply wrap
// queue.ErrPermanent.
func (s *CatalogService) Apply(ctx context.Context, ev queue.InventoryChanged) error {
	res, err := s.apply(ctx, ev)
	if err != nil {
		return err
	}
	if res == repository.Unchanged {
		log.Debug().Str("seat_type_id", ev.SeatTypeID).Int64("sequence", ev.Sequence).
			Msg("catalog: inventory change already applied or superseded")
	}
	return nil
}

// Correct is the operator path into the same guarded write.  Unlike Apply
// it reports whether the row changed: an unsequenced correction is refused
// once the seat type has seen a sequenced update, and the caller has to
// know that.
func (s *CatalogService) Correct(ctx context.Context, ev queue.InventoryChanged) (repository.ApplyOutcome, error) {
	res, err := s.apply(ctx, ev)
	if err == nil && res == repository.Unchanged {
		log.Warn().Str("seat_type_id", ev.SeatTypeID).Int64("sequence", ev.Sequence).
			Msg("catalog: manual correction refused, a newer sequence is stored")
	}
	return res, err
}

func (s *CatalogService) apply(ctx context.Context, ev queue.InventoryChanged) (repository.ApplyOutcome, error) {
	if err := ev.Validate(); err != nil {
		metrics.InventoryApplied.WithLabelValues("invalid").Inc()
		return 0, errors.Wrapf(queue.ErrPermanent, "%v", err)
	}
	res, err := s.store.ApplyRemaining(ctx, ev.SeatTypeID, ev.RemainingTickets, ev.Sequence)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		metrics.InventoryApplied.WithLabelValues("unknown_seat_type").Inc()
		return 0, errors.Wrapf(queue.ErrPermanent, "seat type %s: %v", ev.SeatTypeID, err)
	case errors.Is(err, repository.ErrOutOfRange):
		metrics.InventoryApplied.WithLabelValues("out_of_range").Inc()
		return 0, errors.Wrapf(queue.ErrPermanent, "seat type %s remaining %d: %v", ev.SeatTypeID, ev.RemainingTickets, err)
	case err != nil:
		metrics.InventoryApplied.WithLabelValues("error").Inc()
		return 0, errors.Wrap(err, "apply remaining")
	}
	if res == repository.Unchanged {
		metrics.InventoryApplied.WithLabelValues("stale").Inc()
		return res, nil
	}
	metrics.InventoryApplied.WithLabelValues("applied").Inc()
	log.Info().Str("seat_type_id", ev.SeatTypeID).Int("remaining", ev.RemainingTickets).
		Int64("sequence", ev.Sequence).Msg("catalog: remaining tickets updated")
	return res, nil
}

// GetEvent returns an event with its seat types.
func (s *CatalogService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	ev, err := s.store.GetEvent(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventUnavailable
	}
	return ev, err
}

func (s *CatalogService) ListEvents(ctx context.Context) ([]model.Event, error) {
	return s.store.ListEvents(ctx)
}

// CreateEvent seeds an event and its seat types.  Remaining defaults to
// capacity when the request leaves it at zero.
func (s *CatalogService) CreateEvent(ctx context.Context, ev *model.Event) error {
	if ev.ID == "" || ev.Name == "" || len(ev.SeatTypes) == 0 {
		return errors.Wrap(ErrInvalidInput, "id, name and at least one seat type are required")
	}
	if ev.Status == "" {
		ev.Status = model.EventActive
	}
	if ev.Status != model.EventActive && ev.Status != model.EventInactive {
		return errors.Wrap(ErrInvalidInput, "status must be active or inactive")
	}
	for i := range ev.SeatTypes {
		st := &ev.SeatTypes[i]
		if st.ID == "" || st.TotalTickets <= 0 {
			return errors.Wrap(ErrInvalidInput, "seat types need an id and a positive totalTickets")
		}
		if st.RemainingTickets == 0 {
			st.RemainingTickets = st.TotalTickets
		}
		if st.RemainingTickets < 0 || st.RemainingTickets > st.TotalTickets {
			return errors.Wrap(ErrInvalidInput, "remainingTickets must be within 0..totalTickets")
		}
	}
	err := s.store.CreateEvent(ctx, ev)
	if errors.Is(err, repository.ErrDuplicate) {
		return errors.Wrap(ErrInvalidInput, "event or seat type id already exists")
	}
	return err
}
