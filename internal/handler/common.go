package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog/log"

    "github.com/iliyamo/ticket-booking/internal/middleware"
    "github.com/iliyamo/ticket-booking/internal/service"
)

var errNoIdentity = errors.New("no authenticated user in context")

// getUserID returns the caller id stored by middleware.JWTAuth.
func getUserID(c echo.Context) (string, error) {
    id := middleware.UserID(c)
    if id == "" {
        return "", errNoIdentity
    }
    return id, nil
}

// statusFor maps the service error taxonomy onto HTTP.  Business-rule
// errors are reported with their message as is; infrastructure errors
// become 503 so clients know a retry may succeed.
func statusFor(err error) int {
    switch {
    case errors.Is(err, service.ErrInvalidInput),
        errors.Is(err, service.ErrEventUnavailable):
        return http.StatusBadRequest
    case errors.Is(err, service.ErrForbidden):
        return http.StatusForbidden
    case errors.Is(err, service.ErrBookingNotFound),
        errors.Is(err, service.ErrSeatTypeNotFound):
        return http.StatusNotFound
    case errors.Is(err, service.ErrDuplicateBooking),
        errors.Is(err, service.ErrInsufficientStock),
        errors.Is(err, service.ErrAlreadyCancelled):
        return http.StatusConflict
    case service.IsRetryable(err):
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// writeError renders err as {"error": message}.  Infrastructure and
// unexpected errors are logged and replaced by a generic message so
// connection strings and hostnames never reach the client.
func writeError(c echo.Context, err error) error {
    status := statusFor(err)
    msg := err.Error()
    switch status {
    case http.StatusServiceUnavailable:
        c.Response().Header().Set("Retry-After", "1")
        msg = publicMessage(err)
    case http.StatusInternalServerError:
        log.Error().Err(err).Str("path", c.Path()).Msg("handler: unexpected error")
        msg = "internal error"
    case http.StatusBadRequest:
        // validation text names the offending field
    default:
        msg = businessMessage(err)
    }
    return c.JSON(status, echo.Map{"error": msg})
}

// publicMessage returns the sentinel text of an infrastructure error
// without the wrapped cause.
func publicMessage(err error) string {
    for _, s := range []error{service.ErrCatalogUnavailable, service.ErrCacheUnavailable, service.ErrPublishFailed, service.ErrStoreWrite} {
        if errors.Is(err, s) {
            return s.Error()
        }
    }
    return "service unavailable"
}

func businessMessage(err error) string {
    for _, s := range []error{
        service.ErrForbidden, service.ErrBookingNotFound, service.ErrSeatTypeNotFound,
        service.ErrDuplicateBooking, service.ErrInsufficientStock, service.ErrAlreadyCancelled,
    } {
        if errors.Is(err, s) {
            return s.Error()
        }
    }
    return err.Error()
}
