package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-booking/internal/handler"
	"github.com/iliyamo/ticket-booking/internal/model"
	"github.com/iliyamo/ticket-booking/internal/queue"
	"github.com/iliyamo/ticket-booking/internal/repository"
	"github.com/iliyamo/ticket-booking/internal/service"
	"github.com/iliyamo/ticket-booking/internal/utils"
)

const secret = "test-secret"

type stubBookings struct {
	reserveIn service.ReserveInput
	err       error
	cancelled []string
}

func (s *stubBookings) Reserve(_ context.Context, in service.ReserveInput) (*model.Booking, error) {
	s.reserveIn = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.Booking{ID: "b1", UserID: in.UserID, EventID: in.EventID, SeatTypeID: in.SeatTypeID,
		Quantity: in.Quantity, Status: model.BookingConfirmed}, nil
}

func (s *stubBookings) Cancel(_ context.Context, id, userID string) error {
	if s.err != nil {
		return s.err
	}
	s.cancelled = append(s.cancelled, id+"/"+userID)
	return nil
}

func (s *stubBookings) Get(_ context.Context, id, userID string) (*model.Booking, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Booking{ID: id, UserID: userID}, nil
}

func (s *stubBookings) List(_ context.Context, userID string) ([]model.Booking, error) {
	return []model.Booking{{ID: "b1", UserID: userID}}, s.err
}

type stubCatalog struct {
	applied []queue.InventoryChanged
	outcome repository.ApplyOutcome
	err     error
}

func (s *stubCatalog) GetEvent(_ context.Context, id string) (*model.Event, error) {
	if id != "c1" {
		return nil, service.ErrEventUnavailable
	}
	return &model.Event{ID: "c1", Status: model.EventActive,
		SeatTypes: []model.SeatType{{ID: "vip", EventID: "c1", TotalTickets: 10, RemainingTickets: 7}}}, nil
}

func (s *stubCatalog) ListEvents(context.Context) ([]model.Event, error) { return nil, nil }

func (s *stubCatalog) CreateEvent(_ context.Context, ev *model.Event) error { return s.err }

func (s *stubCatalog) Correct(_ context.Context, ev queue.InventoryChanged) (repository.ApplyOutcome, error) {
	s.applied = append(s.applied, ev)
	if s.err != nil {
		return 0, s.err
	}
	if s.outcome == 0 {
		return repository.Applied, nil
	}
	return s.outcome, nil
}

func token(t *testing.T, sub, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, sub, role, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }

func do(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bookingServer(svc *stubBookings) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, map[string]handler.Pinger{})
	RegisterBooking(e, handler.NewBookingHandler(svc), secret, noop)
	return e
}

func TestCreateBookingUsesTokenSubject(t *testing.T) {
	svc := &stubBookings{}
	e := bookingServer(svc)

	rec := do(e, http.MethodPost, "/bookings", token(t, "user-7", ""),
		`{"concertId":"c1","seatTypeId":"vip","quantity":2,"userId":"someone-else"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, service.ReserveInput{UserID: "user-7", EventID: "c1", SeatTypeID: "vip", Quantity: 2}, svc.reserveIn)

	var b model.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, "c1", b.EventID)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestBookingRoutesRequireToken(t *testing.T) {
	e := bookingServer(&stubBookings{})
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPost, "/bookings", "", `{}`).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodDelete, "/bookings/b1", "Bearer junk", "").Code)

	other, err := utils.NewAccessToken("other-secret", "u1", "", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/my-bookings", "Bearer "+other.Token, "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/healthz", "", "").Code)
}

func TestBookingErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrInsufficientStock, http.StatusConflict},
		{service.ErrDuplicateBooking, http.StatusConflict},
		{service.ErrEventUnavailable, http.StatusBadRequest},
		{service.ErrCatalogUnavailable, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		e := bookingServer(&stubBookings{err: tt.err})
		rec := do(e, http.MethodPost, "/bookings", token(t, "u1", ""), `{"concertId":"c1","seatTypeId":"vip","quantity":1}`)
		assert.Equal(t, tt.code, rec.Code, tt.err.Error())
		assert.Contains(t, rec.Body.String(), tt.err.Error())
	}
}

func TestCancelBooking(t *testing.T) {
	svc := &stubBookings{}
	e := bookingServer(svc)
	rec := do(e, http.MethodDelete, "/bookings/b9", token(t, "u1", ""), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"b9/u1"}, svc.cancelled)

	svc.err = service.ErrForbidden
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodDelete, "/bookings/b9", token(t, "u2", ""), "").Code)
}

func catalogServer(svc *stubCatalog) *echo.Echo {
	e := echo.New()
	RegisterRoutes(e, map[string]handler.Pinger{})
	RegisterCatalog(e, handler.NewCatalogHandler(svc), secret, noop)
	return e
}

func TestCatalogGetEvent(t *testing.T) {
	e := catalogServer(&stubCatalog{})
	rec := do(e, http.MethodGet, "/events/c1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"remainingTickets":7`)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/events/zz", "", "").Code)
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	svc := &stubCatalog{}
	e := catalogServer(svc)
	body := `{"remainingTickets":4,"sequence":9}`

	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodPut, "/seat-types/vip/remaining", "", body).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodPut, "/seat-types/vip/remaining", token(t, "u1", ""), body).Code)

	rec := do(e, http.MethodPut, "/seat-types/vip/remaining", token(t, "ops", "admin"), body)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, svc.applied, 1)
	assert.Equal(t, queue.InventoryChanged{SeatTypeID: "vip", RemainingTickets: 4, Sequence: 9}, svc.applied[0])
}

func TestUpdateRemainingRejectsPermanentFailure(t *testing.T) {
	e := catalogServer(&stubCatalog{err: queue.ErrPermanent})
	rec := do(e, http.MethodPut, "/seat-types/ghost/remaining", token(t, "ops", "admin"), `{"remainingTickets":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodPut, "/seat-types/ghost/remaining", token(t, "ops", "admin"), `{"sequence":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateRemainingRefusedCorrectionIsConflict(t *testing.T) {
	svc := &stubCatalog{outcome: repository.Unchanged}
	e := catalogServer(svc)
	rec := do(e, http.MethodPut, "/seat-types/vip/remaining", token(t, "ops", "admin"), `{"remainingTickets":3}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "newer sequence")
	require.Len(t, svc.applied, 1)
	assert.Zero(t, svc.applied[0].Sequence)
}
