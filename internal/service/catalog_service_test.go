package service

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
)

// memCatalog mirrors the guarded UPDATE of CatalogRepo.ApplyRemaining.
type memCatalog struct {
	mu        sync.Mutex
	total     map[string]int
	remaining map[string]int
	seq       map[string]int64
	created   []*model.Event
	applyErr  error
}

func newMemCatalog(seatTypeID string, total int) *memCatalog {
	return &memCatalog{
		total:     map[string]int{seatTypeID: total},
		remaining: map[string]int{seatTypeID: total},
		seq:       map[string]int64{seatTypeID: 0},
	}
}

func (m *memCatalog) GetEvent(_ context.Context, id string) (*model.Event, error) {
	for _, ev := range m.created {
		if ev.ID == id {
			return ev, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCatalog) ListEvents(context.Context) ([]model.Event, error) {
	out := []model.Event{}
	for _, ev := range m.created {
		out = append(out, *ev)
	}
	return out, nil
}

func (m *memCatalog) CreateEvent(_ context.Context, ev *model.Event) error {
	for _, other := range m.created {
		if other.ID == ev.ID {
			return repository.ErrDuplicate
		}
	}
	m.created = append(m.created, ev)
	return nil
}

func (m *memCatalog) ApplyRemaining(_ context.Context, id string, remaining int, seq int64) (repository.ApplyOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return 0, m.applyErr
	}
	total, ok := m.total[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if remaining > total {
		return 0, repository.ErrOutOfRange
	}
	cur := m.seq[id]
	if (seq > 0 && seq <= cur) || (seq == 0 && cur != 0) {
		return repository.Unchanged, nil
	}
	m.remaining[id] = remaining
	if seq > 0 {
		m.seq[id] = seq
	}
	return repository.Applied, nil
}

func TestApplyOverwritesAbsoluteCount(t *testing.T) {
	cat := newMemCatalog("vip", 50)
	svc := NewCatalogService(cat)
	ctx := context.Background()

	require.NoError(t, svc.Apply(ctx, queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 48, Sequence: 1}))
	require.NoError(t, svc.Apply(ctx, queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 45, Sequence: 2}))
	assert.Equal(t, 45, cat.remaining["vip"])
}

func TestApplyIsIdempotent(t *testing.T) {
	cat := newMemCatalog("vip", 50)
	svc := NewCatalogService(cat)
	ev := queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 40, Sequence: 3}

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Apply(context.Background(), ev))
	}
	assert.Equal(t, 40, cat.remaining["vip"])
	assert.EqualValues(t, 3, cat.seq["vip"])
}

func TestApplyIgnoresStaleDelivery(t *testing.T) {
	cat := newMemCatalog("vip", 50)
	svc := NewCatalogService(cat)
	ctx := context.Background()

	require.NoError(t, svc.Apply(ctx, queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 44, Sequence: 5}))
	require.NoError(t, svc.Apply(ctx, queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 47, Sequence: 2}))
	require.NoError(t, svc.Apply(ctx, queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 49}))
	assert.Equal(t, 44, cat.remaining["vip"])
}

func TestApplyPermanentFailures(t *testing.T) {
	tests := []struct {
		name string
		ev   queue.InventoryChanged
	}{
		{"unknown seat type", queue.InventoryChanged{SeatTypeID: "ghost", RemainingTickets: 1, Sequence: 1}},
		{"above capacity", queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 51, Sequence: 1}},
		{"negative count", queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: -1, Sequence: 1}},
		{"missing id", queue.InventoryChanged{RemainingTickets: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newMemCatalog("vip", 50)
			err := NewCatalogService(cat).Apply(context.Background(), tt.ev)
			assert.ErrorIs(t, err, queue.ErrPermanent)
			assert.Equal(t, 50, cat.remaining["vip"])
		})
	}
}

func TestApplyTransientFailureIsNotPermanent(t *testing.T) {
	cat := newMemCatalog("vip", 50)
	cat.applyErr = errors.New("database is closed")

	err := NewCatalogService(cat).Apply(context.Background(), queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 10, Sequence: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, queue.ErrPermanent)
}

func TestCorrectReportsOutcome(t *testing.T) {
	tests := []struct {
		name    string
		prior   *queue.InventoryChanged
		ev      queue.InventoryChanged
		want    repository.ApplyOutcome
		wantRem int
	}{
		{name: "fresh row takes unsequenced value", ev: queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 30}, want: repository.Applied, wantRem: 30},
		{
			name:    "unsequenced value refused after sequenced update",
			prior:   &queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 44, Sequence: 4},
			ev:      queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 30},
			want:    repository.Unchanged,
			wantRem: 44,
		},
		{
			name:    "newer sequence lands",
			prior:   &queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 44, Sequence: 4},
			ev:      queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 30, Sequence: 9},
			want:    repository.Applied,
			wantRem: 30,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := newMemCatalog("vip", 50)
			svc := NewCatalogService(cat)
			ctx := context.Background()
			if tt.prior != nil {
				require.NoError(t, svc.Apply(ctx, *tt.prior))
			}
			got, err := svc.Correct(ctx, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRem, cat.remaining["vip"])
		})
	}
}

func TestCorrectPermanentFailure(t *testing.T) {
	cat := newMemCatalog("vip", 50)
	_, err := NewCatalogService(cat).Correct(context.Background(), queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 60})
	assert.ErrorIs(t, err, queue.ErrPermanent)
}

func TestCreateEventDefaults(t *testing.T) {
	cat := newMemCatalog("vip", 50)
	svc := NewCatalogService(cat)
	ev := &model.Event{ID: "c9", Name: "Winter", SeatTypes: []model.SeatType{{ID: "floor", TotalTickets: 120}}}

	require.NoError(t, svc.CreateEvent(context.Background(), ev))
	assert.Equal(t, model.EventActive, ev.Status)
	assert.Equal(t, 120, ev.SeatTypes[0].RemainingTickets)

	err := svc.CreateEvent(context.Background(), &model.Event{ID: "c9", Name: "Again", SeatTypes: []model.SeatType{{ID: "f2", TotalTickets: 1}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.GetEvent(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrEventUnavailable)
}

func TestCreateEventValidation(t *testing.T) {
	svc := NewCatalogService(newMemCatalog("vip", 50))
	bad := []*model.Event{
		{Name: "no id", SeatTypes: []model.SeatType{{ID: "a", TotalTickets: 1}}},
		{ID: "e", Name: "no seats"},
		{ID: "e", Name: "zero capacity", SeatTypes: []model.SeatType{{ID: "a"}}},
		{ID: "e", Name: "over", SeatTypes: []model.SeatType{{ID: "a", TotalTickets: 1, RemainingTickets: 2}}},
		{ID: "e", Name: "status", Status: "sold-out", SeatTypes: []model.SeatType{{ID: "a", TotalTickets: 1}}},
	}
	for _, ev := range bad {
		assert.ErrorIs(t, svc.CreateEvent(context.Background(), ev), ErrInvalidInput, ev.Name)
	}
}
