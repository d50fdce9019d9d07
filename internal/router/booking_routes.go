package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-booking/internal/handler"
	"github.com/iliyamo/ticket-booking/internal/middleware"
)

// RegisterBooking registers the booking endpoints.  All routes require a
// valid JWT; rl is the token bucket placed after authentication so the
// bucket can be keyed per user.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	// Middleware is attached per route: a group without a prefix would
	// put JWTAuth in front of the 404 catch-all as well.
	mw := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), rl}
	e.POST("/bookings", h.Create, mw...)
	e.DELETE("/bookings/:id", h.Cancel, mw...)
	e.GET("/bookings/:id", h.Get, mw...)
	e.GET("/my-bookings", h.Mine, mw...)
}
