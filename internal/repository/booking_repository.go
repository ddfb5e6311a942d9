package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// BookingRepo provides persistence for the booking ledger.  Bookings are
// inserted once, finalised at most once and never deleted.  All timestamps
// are stored in UTC.
type BookingRepo struct {
	db      *sql.DB
	dialect Dialect
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB, dialect Dialect) *BookingRepo {
	return &BookingRepo{db: db, dialect: dialect}
}

const bookingColumns = `id, user_id, show_id, seats, seat_count, amount_cents, status, expires_at, payment_ref, checkout_url, confirmed_at, expired_at, created_at, updated_at`

// CreateTx inserts a new booking within the scope of an existing
// transaction.  The caller must commit or rollback the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	seats, err := json.Marshal(b.Seats)
	if err != nil {
		return fmt.Errorf("encode seats: %w", err)
	}
	var ref any
	if b.PaymentRef != nil {
		ref = *b.PaymentRef
	}
	q := r.dialect.Rebind(`INSERT INTO bookings (` + bookingColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = tx.ExecContext(ctx, q,
		b.ID, b.UserID, b.ShowID, string(seats), len(b.Seats), b.AmountCents, string(b.Status),
		b.ExpiresAt.UTC(), ref, b.CheckoutURL, nil, nil, b.CreatedAt.UTC(), b.UpdatedAt.UTC(),
	)
	return err
}

// TransitionTx moves a pending booking to t.To.  The WHERE clause is the
// state-machine guard: a booking that is already confirmed or expired is
// not touched and ErrTransitionRejected is returned.
func (r *BookingRepo) TransitionTx(ctx context.Context, tx *sql.Tx, t BookingTransition) error {
	var q string
	switch t.To {
	case model.BookingConfirmed:
		q = `UPDATE bookings SET status = ?, confirmed_at = ?, updated_at = ? WHERE id = ? AND status = 'pending'`
	case model.BookingExpired:
		q = `UPDATE bookings SET status = ?, expired_at = ?, updated_at = ? WHERE id = ? AND status = 'pending'`
	default:
		return fmt.Errorf("invalid target status %q", t.To)
	}
	at := t.At.UTC()
	res, err := tx.ExecContext(ctx, r.dialect.Rebind(q), string(t.To), at, at, t.BookingID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTransitionRejected
	}
	return nil
}

// AttachPaymentRef records the checkout session of a pending booking.  A
// booking receives exactly one reference; a second attempt, or a reference
// already used elsewhere, yields ErrPaymentRefConflict.
func (r *BookingRepo) AttachPaymentRef(ctx context.Context, bookingID, ref, checkoutURL string) error {
	q := r.dialect.Rebind(`UPDATE bookings SET payment_ref = ?, checkout_url = ?, updated_at = ? WHERE id = ? AND status = 'pending' AND payment_ref IS NULL`)
	res, err := r.db.ExecContext(ctx, q, ref, checkoutURL, time.Now().UTC(), bookingID)
	if err != nil {
		if r.dialect.IsUniqueViolation(err) {
			return ErrPaymentRefConflict
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrPaymentRefConflict
	}
	return nil
}

// GetByID returns a single booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	q := r.dialect.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`)
	return scanBooking(r.db.QueryRowContext(ctx, q, id))
}

// GetByPaymentRef looks a booking up by its checkout session id.  It is
// the correlation path for asynchronous payment confirmations.
func (r *BookingRepo) GetByPaymentRef(ctx context.Context, ref string) (*model.Booking, error) {
	q := r.dialect.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE payment_ref = ?`)
	return scanBooking(r.db.QueryRowContext(ctx, q, ref))
}

// ListExpiredPending selects pending bookings whose TTL elapsed at or
// before now, oldest first, starting after the cursor when one is given.
// It backs the reaper sweep and is served by the (status, expires_at)
// index.
func (r *BookingRepo) ListExpiredPending(ctx context.Context, now time.Time, after *ExpiryCursor, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'pending' AND expires_at <= ?`
	args := []any{now.UTC()}
	if after != nil {
		q += ` AND (expires_at > ? OR (expires_at = ? AND id > ?))`
		at := after.ExpiresAt.UTC()
		args = append(args, at, at, after.ID)
	}
	q += ` ORDER BY expires_at ASC, id ASC LIMIT ?`
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// List returns bookings matching f, newest first.  Ties on created_at are
// broken by id so that Offset pages are stable.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ShowID != "" {
		where = append(where, "show_id = ?")
		args = append(args, f.ShowID)
	}
	if f.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, f.EffectiveLimit(), max(f.Offset, 0))
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(q), args...)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// Stats aggregates counts, revenue and confirmed seats per status.
// Revenue only counts confirmed bookings.
func (r *BookingRepo) Stats(ctx context.Context) (model.BookingStats, error) {
	stats := model.BookingStats{ByStatus: map[model.BookingStatus]int64{}}
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(amount_cents), 0), COALESCE(SUM(seat_count), 0) FROM bookings GROUP BY status`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status    string
			count     int64
			sum       int64
			seatCount int64
		)
		if err := rows.Scan(&status, &count, &sum, &seatCount); err != nil {
			return stats, err
		}
		st := model.BookingStatus(status)
		stats.ByStatus[st] = count
		stats.TotalBookings += count
		if st == model.BookingConfirmed {
			stats.RevenueCents = sum
			stats.ConfirmedSeats = seatCount
		}
	}
	return stats, rows.Err()
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var (
		b           model.Booking
		seats       string
		seatCount   int
		status      string
		ref         sql.NullString
		confirmedAt sql.NullTime
		expiredAt   sql.NullTime
	)
	err := row.Scan(&b.ID, &b.UserID, &b.ShowID, &seats, &seatCount, &b.AmountCents, &status,
		&b.ExpiresAt, &ref, &b.CheckoutURL, &confirmedAt, &expiredAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal([]byte(seats), &b.Seats); err != nil {
		return nil, fmt.Errorf("decode seats of booking %s: %w", b.ID, err)
	}
	b.Status = model.BookingStatus(status)
	if ref.Valid {
		v := ref.String
		b.PaymentRef = &v
	}
	if confirmedAt.Valid {
		t := confirmedAt.Time
		b.ConfirmedAt = &t
	}
	if expiredAt.Valid {
		t := expiredAt.Time
		b.ExpiredAt = &t
	}
	return &b, nil
}
