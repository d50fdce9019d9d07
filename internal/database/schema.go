package database

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// bookingSchema holds the booking service tables.  The unique key on
// (user_id, event_id) keeps one record per user and event; the record is
// reused across confirm/cancel cycles.
var bookingSchema = []string{
	`CREATE TABLE IF NOT EXISTS bookings (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		user_id      VARCHAR(64)  NOT NULL,
		event_id     VARCHAR(64)  NOT NULL,
		seat_type_id VARCHAR(64)  NOT NULL,
		quantity     INT UNSIGNED NOT NULL,
		status       ENUM('pending','confirmed','cancelled') NOT NULL DEFAULT 'pending',
		created_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_bookings_user_event (user_id, event_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// catalogSchema holds the authoritative catalog tables.  seat_types.seq is
// the last applied inventory sequence and guards against stale messages.
var catalogSchema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id         VARCHAR(64)  NOT NULL PRIMARY KEY,
		name       VARCHAR(255) NOT NULL,
		starts_at  DATETIME     NOT NULL,
		status     ENUM('active','inactive') NOT NULL DEFAULT 'active',
		created_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS seat_types (
		id                VARCHAR(64)     NOT NULL PRIMARY KEY,
		event_id          VARCHAR(64)     NOT NULL,
		label             VARCHAR(64)     NOT NULL,
		total_tickets     INT UNSIGNED    NOT NULL,
		remaining_tickets INT UNSIGNED    NOT NULL,
		seq               BIGINT UNSIGNED NOT NULL DEFAULT 0,
		updated_at        DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_seat_types_event (event_id),
		CONSTRAINT fk_seat_types_event FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE,
		CONSTRAINT chk_seat_types_remaining CHECK (remaining_tickets <= total_tickets)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureBookingSchema creates the booking tables when they are missing.
func EnsureBookingSchema(ctx context.Context, db *sql.DB) error {
	return exec(ctx, db, bookingSchema)
}

// EnsureCatalogSchema creates the catalog tables when they are missing.
func EnsureCatalogSchema(ctx context.Context, db *sql.DB) error {
	return exec(ctx, db, catalogSchema)
}

func exec(ctx context.Context, db *sql.DB, stmts []string) error {
	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "apply schema")
		}
	}
	return nil
}
