// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and the catalog applier to distinguish between
// different failure scenarios without looking at driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key, e.g. a
// second booking row for the same user and event.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a conditional update matched no row because
// the record is not in the state the caller expected (a booking that is
// already confirmed or already cancelled).
var ErrConflict = errors.New("conflict")

// ErrOutOfRange is returned when a remaining count does not fit within
// 0..total for the seat type.
var ErrOutOfRange = errors.New("remaining tickets out of range")

// isDuplicateKey reports whether err is MySQL error 1062 (ER_DUP_ENTRY).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
