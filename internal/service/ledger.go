package service

import (
	"context"
	"fmt"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// Ledger serves read-only booking queries.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Get returns a booking visible to viewerID.  Admins see every booking.
func (l *Ledger) Get(ctx context.Context, id, viewerID string, admin bool) (*model.Booking, error) {
	b, err := l.store.GetBooking(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !admin && b.UserID != viewerID {
		return nil, ErrForbidden
	}
	return b, nil
}

const (
	DefaultHistoryPage = 50
	MaxHistoryPage     = 200
)

// HistoryPage is one page of a user's booking history.
type HistoryPage struct {
	Items   []model.Booking
	Limit   int
	Offset  int
	HasMore bool
}

// ForUser returns one page of the booking history of userID, newest
// first.  limit <= 0 selects DefaultHistoryPage; larger values are capped
// at MaxHistoryPage.
func (l *Ledger) ForUser(ctx context.Context, userID string, limit, offset int) (HistoryPage, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryPage
	case limit > MaxHistoryPage:
		limit = MaxHistoryPage
	}
	if offset < 0 {
		return HistoryPage{}, fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	// one extra row tells whether another page exists
	items, err := l.store.ListBookings(ctx, repository.BookingFilter{UserID: userID, Limit: limit + 1, Offset: offset})
	if err != nil {
		return HistoryPage{}, err
	}
	page := HistoryPage{Items: items, Limit: limit, Offset: offset}
	if len(items) > limit {
		page.Items, page.HasMore = items[:limit], true
	}
	if page.Items == nil {
		page.Items = []model.Booking{}
	}
	return page, nil
}

// List returns bookings matching f for the admin view.
func (l *Ledger) List(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidFilter
	}
	return l.store.ListBookings(ctx, f)
}

// Stats aggregates the ledger for the dashboard.
func (l *Ledger) Stats(ctx context.Context) (model.BookingStats, error) {
	return l.store.BookingStats(ctx)
}
