// Package repository contains data access logic for shows and bookings.
// This file defines the ShowRepo.  A show row embeds its whole seat map as
// a JSON document next to a version counter; the version is the only
// concurrency control for seats and every write to the map is a
// compare-and-swap on it.
package repository

import (
	"context"      // context for controlling query lifetime
	"database/sql" // sql provides DB abstraction
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// ShowRepo manages persistence for shows and their seat maps.
type ShowRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewShowRepo constructs a ShowRepo bound to the given database.
func NewShowRepo(db *sql.DB, dialect Dialect) *ShowRepo {
	return &ShowRepo{db: db, dialect: dialect}
}

const showColumns = `id, title, price_cents, schedule_time, seat_map, version, created_at, updated_at`

// Create inserts a new show with an empty seat map and version 1.  It
// returns ErrShowExists when the id is already registered.
func (r *ShowRepo) Create(ctx context.Context, s *model.Show) error {
	now := time.Now().UTC()
	if s.Seats == nil {
		s.Seats = model.SeatMap{}
	}
	raw, err := json.Marshal(s.Seats)
	if err != nil {
		return fmt.Errorf("encode seat map: %w", err)
	}
	q := r.dialect.Rebind(`INSERT INTO shows (` + showColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, q, s.ID, s.Title, s.PriceCents, s.ScheduleTime.UTC(), string(raw), 1, now, now)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return ErrShowExists
		}
		return err
	}
	s.Version = 1
	s.CreatedAt, s.UpdatedAt = now, now
	return nil
}

// GetByID loads a show and decodes its seat map.  ErrShowNotFound is
// returned when no row matches.
func (r *ShowRepo) GetByID(ctx context.Context, id string) (*model.Show, error) {
	q := r.dialect.Rebind(`SELECT ` + showColumns + ` FROM shows WHERE id = ?`)
	return scanShow(r.db.QueryRowContext(ctx, q, id))
}

// SwapSeatsTx replaces the seat map of s.ID with s.Seats if and only if
// the stored version still equals s.Version.  On success s.Version and
// s.UpdatedAt are advanced.  ErrVersionConflict means another writer got
// there first; the caller's transaction must be rolled back.
func (r *ShowRepo) SwapSeatsTx(ctx context.Context, tx *sql.Tx, s *model.Show, at time.Time) error {
	raw, err := json.Marshal(s.Seats)
	if err != nil {
		return fmt.Errorf("encode seat map: %w", err)
	}
	q := r.dialect.Rebind(`UPDATE shows SET seat_map = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`)
	res, err := tx.ExecContext(ctx, q, string(raw), at, s.ID, s.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVersionConflict
	}
	s.Version++
	s.UpdatedAt = at
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (*model.Show, error) {
	var (
		s   model.Show
		raw string
	)
	err := row.Scan(&s.ID, &s.Title, &s.PriceCents, &s.ScheduleTime, &raw, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShowNotFound
		}
		return nil, err
	}
	s.Seats = model.SeatMap{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Seats); err != nil {
			return nil, fmt.Errorf("decode seat map of show %s: %w", s.ID, err)
		}
	}
	return &s, nil
}
