package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// SQLStore is the durable ShowStore and booking ledger.  It combines the
// show and booking repositories and applies a Mutation inside a single
// database transaction so that the seat map and the ledger never diverge.
type SQLStore struct {
	db       *sql.DB
	Shows    *ShowRepo
	Bookings *BookingRepo
}

// NewSQLStore wires both repositories to db using the given dialect.
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{
		db:       db,
		Shows:    NewShowRepo(db, dialect),
		Bookings: NewBookingRepo(db, dialect),
	}
}

// Commit applies m atomically.  The seat map swap is conditional on the
// show version, the booking transition is conditional on the booking still
// being pending; if either guard fails the transaction is rolled back and
// ErrVersionConflict or ErrTransitionRejected is returned.
func (s *SQLStore) Commit(ctx context.Context, m Mutation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	if m.Show != nil {
		// work on a copy so a rolled back attempt leaves the caller's
		// version untouched
		next := *m.Show
		if err := s.Shows.SwapSeatsTx(ctx, tx, &next, now); err != nil {
			return err
		}
		defer func() {
			if committed {
				m.Show.Version = next.Version
				m.Show.UpdatedAt = next.UpdatedAt
			}
		}()
	}
	if m.Create != nil {
		if err := s.Bookings.CreateTx(ctx, tx, m.Create); err != nil {
			return err
		}
	}
	if m.Transition != nil {
		if err := s.Bookings.TransitionTx(ctx, tx, *m.Transition); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetShow loads a show with its seat map.
func (s *SQLStore) GetShow(ctx context.Context, id string) (*model.Show, error) {
	return s.Shows.GetByID(ctx, id)
}

// CreateShow registers a show.
func (s *SQLStore) CreateShow(ctx context.Context, show *model.Show) error {
	return s.Shows.Create(ctx, show)
}

// GetBooking loads a booking by id.
func (s *SQLStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return s.Bookings.GetByID(ctx, id)
}

// GetBookingByPaymentRef loads a booking by checkout session id.
func (s *SQLStore) GetBookingByPaymentRef(ctx context.Context, ref string) (*model.Booking, error) {
	return s.Bookings.GetByPaymentRef(ctx, ref)
}

// AttachPaymentRef records the checkout session of a pending booking.
func (s *SQLStore) AttachPaymentRef(ctx context.Context, bookingID, ref, checkoutURL string) error {
	return s.Bookings.AttachPaymentRef(ctx, bookingID, ref, checkoutURL)
}

// ListExpiredPending returns pending bookings due for reaping.
func (s *SQLStore) ListExpiredPending(ctx context.Context, now time.Time, after *ExpiryCursor, limit int) ([]model.Booking, error) {
	return s.Bookings.ListExpiredPending(ctx, now, after, limit)
}

// ListBookings returns bookings matching f.
func (s *SQLStore) ListBookings(ctx context.Context, f BookingFilter) ([]model.Booking, error) {
	return s.Bookings.List(ctx, f)
}

// BookingStats aggregates the ledger.
func (s *SQLStore) BookingStats(ctx context.Context) (model.BookingStats, error) {
	return s.Bookings.Stats(ctx)
}
