package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ticket-booking/internal/model"
)

func newMock(t *testing.T) (*BookingRepo, *CatalogRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBookingRepo(db), NewCatalogRepo(db), mock
}

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "event_id", "seat_type_id", "quantity", "status", "created_at", "updated_at"})
}

func TestFindByUserAndEventNotFound(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectQuery("FROM bookings WHERE user_id = \\? AND event_id = \\?").
		WithArgs("u1", "e1").
		WillReturnRows(bookingRows())

	_, err := repo.FindByUserAndEvent(context.Background(), "u1", "e1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking(t *testing.T) {
	repo, _, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO bookings").
		WithArgs("b1", "u1", "e1", "st1", 2, "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id = \\?").
		WithArgs("b1").
		WillReturnRows(bookingRows().AddRow("b1", "u1", "e1", "st1", 2, "confirmed", now, now))

	b := &model.Booking{ID: "b1", UserID: "u1", EventID: "e1", SeatTypeID: "st1", Quantity: 2, Status: model.BookingConfirmed}
	require.NoError(t, repo.Create(context.Background(), b))
	assert.Equal(t, now, b.CreatedAt)
	assert.True(t, b.IsConfirmed())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingDuplicate(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectExec("INSERT INTO bookings").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	err := repo.Create(context.Background(), &model.Booking{ID: "b2", Status: model.BookingConfirmed})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestConfirmReusesDraft(t *testing.T) {
	repo, _, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectExec("UPDATE bookings SET seat_type_id = \\?, quantity = \\?, status = 'confirmed'").
		WithArgs("st2", 5, "b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bookings WHERE id = \\?").
		WithArgs("b1").
		WillReturnRows(bookingRows().AddRow("b1", "u1", "e1", "st2", 5, "confirmed", now, now))

	b := &model.Booking{ID: "b1", SeatTypeID: "st2", Quantity: 5}
	require.NoError(t, repo.Confirm(context.Background(), b))
	assert.Equal(t, 5, b.Quantity)
	assert.Equal(t, model.BookingConfirmed, b.Status)
}

func TestConfirmConflict(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET seat_type_id").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Confirm(context.Background(), &model.Booking{ID: "b1", Quantity: 1})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelOnlyOnce(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET status = 'cancelled' WHERE id = \\? AND status = 'confirmed'").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bookings SET status = 'cancelled'").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Cancel(context.Background(), "b1"))
	assert.ErrorIs(t, repo.Cancel(context.Background(), "b1"), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReinstateAfterCancel(t *testing.T) {
	repo, _, mock := newMock(t)
	mock.ExpectExec("UPDATE bookings SET status = 'confirmed' WHERE id = \\? AND status = 'cancelled'").
		WithArgs("b1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reinstate(context.Background(), "b1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
