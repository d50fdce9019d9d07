package handler // declare the package name; contains HTTP handlers

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
)

// Pinger is anything a readiness probe can check.
type Pinger interface {
    PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Health is a liveness endpoint used by load balancers and monitoring
// systems.  It returns "ok" as long as the process serves HTTP.
func Health(c echo.Context) error {
    return c.String(http.StatusOK, "ok")
}

// Ready reports 503 while any dependency fails its ping.  The body lists
// the state of each named dependency.
func Ready(deps map[string]Pinger) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
        defer cancel()
        status := http.StatusOK
        out := make(map[string]string, len(deps))
        for name, p := range deps {
            if err := p.PingContext(ctx); err != nil {
                status = http.StatusServiceUnavailable
                out[name] = err.Error()
                continue
            }
            out[name] = "ok"
        }
        return c.JSON(status, out)
    }
}
