package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// RequestLogger writes one structured line per request after the handler
// ran.  5xx responses log at error level, 4xx at warn.
func RequestLogger() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler pick the status before it is logged
                c.Error(err)
            }

            status := c.Response().Status
            var ev *zerolog.Event
            switch {
            case status >= 500:
                ev = log.Error()
            case status >= 400:
                ev = log.Warn()
            default:
                ev = log.Info()
            }
            ev.Str("method", c.Request().Method).
                Str("path", c.Request().URL.Path).
                Int("status", status).
                Dur("duration", time.Since(start)).
                Str("client_ip", c.RealIP()).
                Str("user_id", UserID(c)).
                Msg("request")
            return nil
        }
    }
}
