package service

import "github.com/pkg/errors"

// Validation errors: the request itself is malformed.
var ErrInvalidInput = errors.New("invalid input")

// Business-rule errors are terminal.  They are reported to the caller as
// they are and must not be retried.
var (
	ErrDuplicateBooking  = errors.New("you have already booked a ticket for this event")
	ErrInsufficientStock = errors.New("not enough tickets available")
	ErrEventUnavailable  = errors.New("event not available")
	ErrSeatTypeNotFound  = errors.New("seat type not found")
	ErrAlreadyCancelled  = errors.New("this booking has already been cancelled")
	ErrForbidden         = errors.New("unauthorized to cancel this booking")
	ErrBookingNotFound   = errors.New("booking not found")
)

// Infrastructure errors are transient: the operation may succeed when
// retried.  They are never folded into a business-rule rejection.
var (
	ErrCatalogUnavailable = errors.New("catalog service unavailable")
	ErrCacheUnavailable   = errors.New("inventory cache unavailable")
	ErrPublishFailed      = errors.New("inventory event publish failed")
	ErrStoreWrite         = errors.New("booking store unavailable")
)

// IsRetryable reports whether err is an infrastructure failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable) ||
		errors.Is(err, ErrCacheUnavailable) ||
		errors.Is(err, ErrPublishFailed) ||
		errors.Is(err, ErrStoreWrite)
}

// outcome names an error for the reservation and cancellation metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrDuplicateBooking):
		return "duplicate_booking"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrEventUnavailable):
		return "event_unavailable"
	case errors.Is(err, ErrSeatTypeNotFound):
		return "seat_type_not_found"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrBookingNotFound):
		return "not_found"
	case errors.Is(err, ErrCatalogUnavailable):
		return "catalog_unavailable"
	case errors.Is(err, ErrCacheUnavailable):
		return "cache_unavailable"
	case errors.Is(err, ErrPublishFailed):
		return "publish_failed"
	case errors.Is(err, ErrStoreWrite):
		return "store_write_failed"
	}
	return "error"
}
