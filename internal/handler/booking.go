package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/ticket-booking/internal/model"
    "github.com/iliyamo/ticket-booking/internal/service"
)

// Bookings is the part of service.BookingService the HTTP layer uses.
type Bookings interface {
    Reserve(ctx context.Context, in service.ReserveInput) (*model.Booking, error)
    Cancel(ctx context.Context, bookingID, userID string) error
    Get(ctx context.Context, bookingID, userID string) (*model.Booking, error)
    List(ctx context.Context, userID string) ([]model.Booking, error)
}

// BookingHandler serves the booking endpoints.  Every route sits behind
// middleware.JWTAuth; the caller identity comes from the token, never
// from the body.
type BookingHandler struct {
    svc Bookings
}

// NewBookingHandler constructs a BookingHandler.  svc must be non-nil.
func NewBookingHandler(svc Bookings) *BookingHandler {
    if svc == nil {
        panic("nil service passed to NewBookingHandler")
    }
    return &BookingHandler{svc: svc}
}

type createBookingRequest struct {
    ConcertID  string `json:"concertId"`
    SeatTypeID string `json:"seatTypeId"`
    Quantity   int    `json:"quantity"`
}

// Create handles POST /bookings.  It returns 201 with the confirmed
// booking.
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body createBookingRequest
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    b, err := h.svc.Reserve(c.Request().Context(), service.ReserveInput{
        UserID:     userID,
        EventID:    body.ConcertID,
        SeatTypeID: body.SeatTypeID,
        Quantity:   body.Quantity,
    })
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusCreated, b)
}

// Cancel handles DELETE /bookings/:id.  Only the owner may cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id := c.Param("id")
    if err := h.svc.Cancel(c.Request().Context(), id, userID); err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "booking cancelled", "id": id})
}

// Get handles GET /bookings/:id for the owner of the booking.
func (h *BookingHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    b, err := h.svc.Get(c.Request().Context(), c.Param("id"), userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, b)
}

// Mine handles GET /my-bookings.
func (h *BookingHandler) Mine(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.svc.List(c.Request().Context(), userID)
    if err != nil {
        return writeError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bookings": list})
}
