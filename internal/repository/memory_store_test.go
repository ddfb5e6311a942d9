package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

var now = time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)

func pending(id, user string, expires time.Time, seats ...string) *model.Booking {
	return &model.Booking{
		ID: id, UserID: user, ShowID: "S1", Seats: seats,
		AmountCents: int64(len(seats)) * 1000, Status: model.BookingPending,
		ExpiresAt: expires, CreatedAt: now, UpdatedAt: now,
	}
}

func newMemoryShow(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.CreateShow(context.Background(), &model.Show{ID: "S1", PriceCents: 1000}))
	assert.ErrorIs(t, s.CreateShow(context.Background(), &model.Show{ID: "S1"}), ErrShowExists)
	return s
}

func TestMemoryCommitVersionCheck(t *testing.T) {
	s := newMemoryShow(t)
	ctx := context.Background()

	a, err := s.GetShow(ctx, "S1")
	require.NoError(t, err)
	b, err := s.GetShow(ctx, "S1")
	require.NoError(t, err)

	a.Seats["A1"] = model.SeatHold{BookingID: "b1", HolderID: "x", Status: model.SeatHeld}
	require.NoError(t, s.Commit(ctx, Mutation{Show: a, Create: pending("b1", "x", now.Add(time.Minute), "A1")}))
	assert.Equal(t, uint64(2), a.Version)

	// b was read at version 1; its write and booking must both be dropped
	b.Seats["A1"] = model.SeatHold{BookingID: "b2", HolderID: "y", Status: model.SeatHeld}
	err = s.Commit(ctx, Mutation{Show: b, Create: pending("b2", "y", now.Add(time.Minute), "A1")})
	assert.ErrorIs(t, err, ErrVersionConflict)

	cur, err := s.GetShow(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "b1", cur.Seats["A1"].BookingID)
	_, err = s.GetBooking(ctx, "b2")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestMemoryCommitTransitionGuard(t *testing.T) {
	s := newMemoryShow(t)
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, Mutation{Create: pending("b1", "x", now, "A1")}))

	tr := &BookingTransition{BookingID: "b1", To: model.BookingConfirmed, At: now}
	require.NoError(t, s.Commit(ctx, Mutation{Transition: tr}))

	show, err := s.GetShow(ctx, "S1")
	require.NoError(t, err)
	show.Seats["A9"] = model.SeatHold{BookingID: "b1", Status: model.SeatHeld}
	err = s.Commit(ctx, Mutation{Show: show, Transition: &BookingTransition{BookingID: "b1", To: model.BookingExpired, At: now}})
	assert.ErrorIs(t, err, ErrTransitionRejected)

	// the seat map was not touched either
	cur, err := s.GetShow(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, cur.Seats)
	assert.Equal(t, uint64(1), cur.Version)

	b, err := s.GetBooking(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	require.NotNil(t, b.ConfirmedAt)
	assert.Nil(t, b.ExpiredAt)
}

func TestMemoryPaymentRef(t *testing.T) {
	s := newMemoryShow(t)
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, Mutation{Create: pending("b1", "x", now, "A1")}))
	require.NoError(t, s.Commit(ctx, Mutation{Create: pending("b2", "y", now, "A2")}))

	require.NoError(t, s.AttachPaymentRef(ctx, "b1", "cs_1", "https://pay/cs_1"))
	assert.ErrorIs(t, s.AttachPaymentRef(ctx, "b1", "cs_9", "u"), ErrPaymentRefConflict)
	assert.ErrorIs(t, s.AttachPaymentRef(ctx, "b2", "cs_1", "u"), ErrPaymentRefConflict)
	assert.ErrorIs(t, s.AttachPaymentRef(ctx, "missing", "cs_2", "u"), ErrPaymentRefConflict)

	b, err := s.GetBookingByPaymentRef(ctx, "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, "https://pay/cs_1", b.CheckoutURL)
	_, err = s.GetBookingByPaymentRef(ctx, "cs_2")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestMemoryListings(t *testing.T) {
	s := newMemoryShow(t)
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, Mutation{Create: pending("late", "x", now.Add(2*time.Minute), "A1")}))
	require.NoError(t, s.Commit(ctx, Mutation{Create: pending("early", "x", now.Add(time.Minute), "A2")}))
	require.NoError(t, s.Commit(ctx, Mutation{Create: pending("future", "y", now.Add(time.Hour), "A3")}))
	require.NoError(t, s.Commit(ctx, Mutation{Transition: &BookingTransition{BookingID: "future", To: model.BookingConfirmed, At: now}}))

	due, err := s.ListExpiredPending(ctx, now.Add(2*time.Minute), nil, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "early", due[0].ID)
	assert.Equal(t, "late", due[1].ID)

	due, err = s.ListExpiredPending(ctx, now.Add(2*time.Minute), nil, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	due, err = s.ListExpiredPending(ctx, now.Add(2*time.Minute), &ExpiryCursor{ExpiresAt: due[0].ExpiresAt, ID: due[0].ID}, 1)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "late", due[0].ID)

	mine, err := s.ListBookings(ctx, BookingFilter{UserID: "x"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	// equal created_at falls back to id, newest first
	page, err := s.ListBookings(ctx, BookingFilter{UserID: "x", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "early", page[0].ID)
	page, err = s.ListBookings(ctx, BookingFilter{UserID: "x", Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, page)

	confirmed, err := s.ListBookings(ctx, BookingFilter{Status: model.BookingConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, "future", confirmed[0].ID)

	stats, err := s.BookingStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStats{
		TotalBookings:  3,
		ByStatus:       map[model.BookingStatus]int64{model.BookingPending: 2, model.BookingConfirmed: 1},
		RevenueCents:   1000,
		ConfirmedSeats: 1,
	}, stats)
}

func TestBookingFilterLimit(t *testing.T) {
	assert.Equal(t, 100, BookingFilter{}.EffectiveLimit())
	assert.Equal(t, 7, BookingFilter{Limit: 7}.EffectiveLimit())
	assert.Equal(t, 500, BookingFilter{Limit: 9000}.EffectiveLimit())
}

func TestMemorySearchShows(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i, title := range []string{"Nosferatu", "Metropolis", "M", "Metropolis (restored)"} {
		require.NoError(t, s.CreateShow(ctx, &model.Show{
			ID:           title,
			Title:        title,
			ScheduleTime: now.Add(time.Duration(i-1) * time.Hour),
		}))
	}

	got, total, err := s.SearchShows(ctx, ShowSearchQuery{After: now})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, got, 3)
	assert.Equal(t, "Metropolis", got[0].ID)

	got, total, err = s.SearchShows(ctx, ShowSearchQuery{After: now, Title: " METRO", PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, got, 1)
	assert.Equal(t, "Metropolis (restored)", got[0].ID)

	got, _, err = s.SearchShows(ctx, ShowSearchQuery{After: now, Page: 9})
	require.NoError(t, err)
	assert.Empty(t, got)
}
