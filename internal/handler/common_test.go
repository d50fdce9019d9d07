package handler

import (
    "net/http"
    "testing"

    "github.com/pkg/errors"
    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/ticket-booking/internal/service"
)

func TestStatusFor(t *testing.T) {
    tests := []struct {
        err  error
        want int
    }{
        {errors.Wrap(service.ErrInvalidInput, "quantity must be positive"), http.StatusBadRequest},
        {service.ErrEventUnavailable, http.StatusBadRequest},
        {service.ErrSeatTypeNotFound, http.StatusNotFound},
        {service.ErrBookingNotFound, http.StatusNotFound},
        {service.ErrForbidden, http.StatusForbidden},
        {service.ErrDuplicateBooking, http.StatusConflict},
        {service.ErrInsufficientStock, http.StatusConflict},
        {service.ErrAlreadyCancelled, http.StatusConflict},
        {errors.Wrap(service.ErrCatalogUnavailable, "dial tcp"), http.StatusServiceUnavailable},
        {errors.Wrap(service.ErrCacheUnavailable, "i/o timeout"), http.StatusServiceUnavailable},
        {errors.Wrap(service.ErrPublishFailed, "nack"), http.StatusServiceUnavailable},
        {errors.Wrap(service.ErrStoreWrite, "deadlock"), http.StatusServiceUnavailable},
        {errors.New("boom"), http.StatusInternalServerError},
    }
    for _, tt := range tests {
        assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
    }
}

func TestPublicMessageHidesCause(t *testing.T) {
    err := errors.Wrap(service.ErrCatalogUnavailable, "dial tcp 10.0.0.7:8081: connection refused")
    assert.Equal(t, service.ErrCatalogUnavailable.Error(), publicMessage(err))
}
