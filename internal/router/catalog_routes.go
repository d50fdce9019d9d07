package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-booking/internal/handler"
	"github.com/iliyamo/ticket-booking/internal/middleware"
)

// RegisterCatalog registers the catalog read API, served through the
// response cache, and the admin-only write endpoints.
func RegisterCatalog(e *echo.Echo, h *handler.CatalogHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	e.GET("/events", h.ListEvents, cache)
	e.GET("/events/:id", h.GetEvent, cache)

	admin := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret), middleware.RequireRole("admin")}
	e.POST("/events", h.CreateEvent, admin...)
	e.PUT("/seat-types/:id/remaining", h.UpdateRemaining, admin...)
}
