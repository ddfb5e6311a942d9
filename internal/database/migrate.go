package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS shows (
		id            VARCHAR(64)  NOT NULL PRIMARY KEY,
		title         VARCHAR(255) NOT NULL,
		price_cents   BIGINT       NOT NULL DEFAULT 0,
		schedule_time DATETIME(6)  NOT NULL,
		seat_map      MEDIUMTEXT   NOT NULL,
		version       BIGINT UNSIGNED NOT NULL DEFAULT 1,
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           VARCHAR(64)  NOT NULL PRIMARY KEY,
		user_id      VARCHAR(128) NOT NULL,
		show_id      VARCHAR(64)  NOT NULL,
		seats        TEXT         NOT NULL,
		seat_count   INT          NOT NULL,
		amount_cents BIGINT       NOT NULL,
		status       VARCHAR(16)  NOT NULL,
		expires_at   DATETIME(6)  NOT NULL,
		payment_ref  VARCHAR(128) NULL,
		checkout_url VARCHAR(512) NOT NULL DEFAULT '',
		confirmed_at DATETIME(6)  NULL,
		expired_at   DATETIME(6)  NULL,
		created_at   DATETIME(6)  NOT NULL,
		updated_at   DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_bookings_payment_ref (payment_ref),
		KEY idx_bookings_status_expires (status, expires_at),
		KEY idx_bookings_user_created (user_id, created_at),
		KEY idx_bookings_show (show_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS shows (
		id            VARCHAR(64)  PRIMARY KEY,
		title         VARCHAR(255) NOT NULL,
		price_cents   BIGINT       NOT NULL DEFAULT 0,
		schedule_time TIMESTAMPTZ  NOT NULL,
		seat_map      TEXT         NOT NULL,
		version       BIGINT       NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ  NOT NULL,
		updated_at    TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           VARCHAR(64)  PRIMARY KEY,
		user_id      VARCHAR(128) NOT NULL,
		show_id      VARCHAR(64)  NOT NULL,
		seats        TEXT         NOT NULL,
		seat_count   INTEGER      NOT NULL,
		amount_cents BIGINT       NOT NULL,
		status       VARCHAR(16)  NOT NULL,
		expires_at   TIMESTAMPTZ  NOT NULL,
		payment_ref  VARCHAR(128) UNIQUE,
		checkout_url VARCHAR(512) NOT NULL DEFAULT '',
		confirmed_at TIMESTAMPTZ,
		expired_at   TIMESTAMPTZ,
		created_at   TIMESTAMPTZ  NOT NULL,
		updated_at   TIMESTAMPTZ  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status_expires ON bookings(status, expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_created ON bookings(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_show ON bookings(show_id)`,
}

// Schema returns the DDL statements for d.  Every statement is idempotent.
func Schema(d repository.Dialect) []string {
	if d == repository.Postgres {
		return postgresSchema
	}
	return mysqlSchema
}

// Migrate creates the shows and bookings tables when they are missing.
func Migrate(ctx context.Context, db *sql.DB, d repository.Dialect) error {
	for i, stmt := range Schema(d) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	logrus.WithField("dialect", string(d)).Info("database schema ready")
	return nil
}
