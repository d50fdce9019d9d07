// Package metrics registers the Prometheus collectors shared by the booking
// and catalog services.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Reservations counts Reserve calls by outcome: ok, or the snake_case
	// name of the error class that rejected the request.
	Reservations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_reservations_total",
		Help: "Reservation attempts by outcome.",
	}, []string{"outcome"})

	// Cancellations counts Cancel calls by outcome.
	Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_cancellations_total",
		Help: "Cancellation attempts by outcome.",
	}, []string{"outcome"})

	// Compensations counts stock restored because a later reservation step failed.
	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_compensations_total",
		Help: "Stock restorations after a failed reservation step.",
	}, []string{"step", "result"})

	// InventoryPublished counts inventory change publications by result.
	InventoryPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_events_published_total",
		Help: "Inventory change events handed to the broker.",
	}, []string{"result"})

	// InventoryApplied counts consumed inventory change events by result.
	InventoryApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_events_applied_total",
		Help: "Inventory change events processed by the catalog applier.",
	}, []string{"result"})
)

// Register exposes the default registry on GET /metrics.
func Register(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
