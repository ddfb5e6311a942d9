// Package service implements the seat reservation and booking lifecycle
// engine: atomic holds, releases, payment confirmation, the expiry reaper
// and the checkout flow that ties them to the payment gateway.  All state
// changes go through Store.Commit, a single conditional write per show.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// Store is the durable ShowStore and booking ledger.  It is implemented by
// repository.SQLStore and repository.MemoryStore.
type Store interface {
	GetShow(ctx context.Context, id string) (*model.Show, error)
	SearchShows(ctx context.Context, q repository.ShowSearchQuery) ([]model.Show, int64, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	GetBookingByPaymentRef(ctx context.Context, ref string) (*model.Booking, error)
	AttachPaymentRef(ctx context.Context, bookingID, ref, checkoutURL string) error
	ListExpiredPending(ctx context.Context, now time.Time, after *repository.ExpiryCursor, limit int) ([]model.Booking, error)
	ListBookings(ctx context.Context, f repository.BookingFilter) ([]model.Booking, error)
	BookingStats(ctx context.Context) (model.BookingStats, error)
	Commit(ctx context.Context, m repository.Mutation) error
}

// EventSink receives lifecycle events after they are durably committed.
// Implementations are best-effort; returned errors are logged only.
type EventSink interface {
	BookingConfirmed(ctx context.Context, b model.Booking, show model.Show) error
	BookingExpired(ctx context.Context, b model.Booking) error
	LatePayment(ctx context.Context, b model.Booking) error
}

// SeatCache is the read cache used for availability queries.
type SeatCache interface {
	Get(ctx context.Context, showID string) (model.SeatMap, bool)
	Set(ctx context.Context, showID string, seats model.SeatMap) error
	Invalidate(ctx context.Context, showID string) error
}

// nopEvents discards events.
type nopEvents struct{}

func (nopEvents) BookingConfirmed(context.Context, model.Booking, model.Show) error { return nil }
func (nopEvents) BookingExpired(context.Context, model.Booking) error               { return nil }
func (nopEvents) LatePayment(context.Context, model.Booking) error                  { return nil }

// nopCache caches nothing.
type nopCache struct{}

func (nopCache) Get(context.Context, string) (model.SeatMap, bool) { return nil, false }
func (nopCache) Set(context.Context, string, model.SeatMap) error  { return nil }
func (nopCache) Invalidate(context.Context, string) error          { return nil }
