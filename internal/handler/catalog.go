package handler

import (
    "context"
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-booking/internal/model"
    "github.com/iliyamo/ticket-booking/internal/queue"
    "github.com/iliyamo/ticket-booking/internal/repository"
    "github.com/iliyamo/ticket-booking/internal/service"
)

// Catalog is the part of service.CatalogService the HTTP layer uses.
type Catalog interface {
    GetEvent(ctx context.Context, id string) (*model.Event, error)
    ListEvents(ctx context.Context) ([]model.Event, error)
    CreateEvent(ctx context.Context, ev *model.Event) error
    Correct(ctx context.Context, ev queue.InventoryChanged) (repository.ApplyOutcome, error)
}

// CatalogHandler serves the catalog read API consumed by the booking
// service and the admin write endpoints.
type CatalogHandler struct {
    svc Catalog
}

func NewCatalogHandler(svc Catalog) *CatalogHandler {
    if svc == nil {
        panic("nil service passed to NewCatalogHandler")
    }
    return &CatalogHandler{svc: svc}
}

// ListEvents handles GET /events.
func (h *CatalogHandler) ListEvents(c echo.Context) error {
    events, err := h.svc.ListEvents(c.Request().Context())
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// GetEvent handles GET /events/:id.  An unknown event is a 404 here; the
// booking service relies on that to tell "not on sale" from "catalog
// down".
func (h *CatalogHandler) GetEvent(c echo.Context) error {
    ev, err := h.svc.GetEvent(c.Request().Context(), c.Param("id"))
    if errors.Is(err, service.ErrEventUnavailable) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
    }
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, ev)
}

// CreateEvent handles POST /events.
func (h *CatalogHandler) CreateEvent(c echo.Context) error {
    var ev model.Event
    if err := c.Bind(&ev); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := h.svc.CreateEvent(c.Request().Context(), &ev); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, ev)
}

type remainingRequest struct {
    RemainingTickets *int  `json:"remainingTickets"`
    Sequence         int64 `json:"sequence"`
}

// UpdateRemaining handles PUT /seat-types/:id/remaining.  It runs the same
// guarded apply as the queue consumer, so a manual correction obeys the
// sequence ordering too.  A correction the guard refuses is a 409.
func (h *CatalogHandler) UpdateRemaining(c echo.Context) error {
    var body remainingRequest
    if err := c.Bind(&body); err != nil || body.RemainingTickets == nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "remainingTickets is required"})
    }
    ev := queue.InventoryChanged{
        SeatTypeID:       c.Param("id"),
        RemainingTickets: *body.RemainingTickets,
        Sequence:         body.Sequence,
    }
    res, err := h.svc.Correct(c.Request().Context(), ev)
    if err != nil {
        if errors.Is(err, queue.ErrPermanent) {
            return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
        }
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "catalog store unavailable"})
    }
    if res == repository.Unchanged {
        return c.JSON(http.StatusConflict, echo.Map{"error": "update not applied: a newer sequence is stored"})
    }
    return c.NoContent(http.StatusNoContent)
}
