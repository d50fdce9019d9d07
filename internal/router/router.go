package router // package router defines how HTTP routes are registered for both services

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/ticket-booking/internal/handler" // health and readiness handlers
	"github.com/iliyamo/ticket-booking/internal/metrics" // prometheus exposition
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: liveness, readiness and the metrics endpoint.
func RegisterRoutes(e *echo.Echo, deps map[string]handler.Pinger) {
	// Load balancers probe /healthz; orchestrators use /readyz to hold
	// traffic until MySQL, Redis and the broker answer.
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(deps))
	metrics.Register(e)
}
