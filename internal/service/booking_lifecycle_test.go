package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.BookingStatus
		want     bool
	}{
		{model.BookingPending, model.BookingConfirmed, true},
		{model.BookingPending, model.BookingExpired, true},
		{model.BookingPending, model.BookingPending, false},
		{model.BookingConfirmed, model.BookingExpired, false},
		{model.BookingConfirmed, model.BookingPending, false},
		{model.BookingExpired, model.BookingConfirmed, false},
		{model.BookingExpired, model.BookingPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionTerminalIsImmutable(t *testing.T) {
	for _, status := range []model.BookingStatus{model.BookingConfirmed, model.BookingExpired} {
		b := &model.Booking{ID: "b1", Status: status}
		for _, to := range []model.BookingStatus{model.BookingConfirmed, model.BookingExpired} {
			assert.ErrorIs(t, Transition(b, to, t0), ErrAlreadyFinalized)
			assert.Equal(t, status, b.Status)
		}
	}

	b := &model.Booking{ID: "b1", Status: model.BookingPending}
	require.NoError(t, Transition(b, model.BookingExpired, t0))
	assert.Equal(t, model.BookingExpired, b.Status)
	assert.Equal(t, t0, *b.ExpiredAt)
	assert.Nil(t, b.ConfirmedAt)

	assert.Error(t, Transition(&model.Booking{Status: model.BookingPending}, model.BookingPending, t0))
}

func TestLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.hold(t, "x", time.Minute, "A1")
	f.hold(t, "y", time.Minute, "B1")
	_, err := f.confirm.Confirm(ctx, x.PaymentRef)
	require.NoError(t, err)

	l := NewLedger(f.store)

	b, err := l.Get(ctx, x.Booking.ID, "x", false)
	require.NoError(t, err)
	assert.Equal(t, x.Booking.ID, b.ID)
	_, err = l.Get(ctx, x.Booking.ID, "y", false)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = l.Get(ctx, x.Booking.ID, "admin", true)
	assert.NoError(t, err)
	_, err = l.Get(ctx, "missing", "x", false)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	mine, err := l.ForUser(ctx, "y", 0, 0)
	require.NoError(t, err)
	assert.Len(t, mine.Items, 1)
	assert.Equal(t, DefaultHistoryPage, mine.Limit)
	assert.False(t, mine.HasMore)

	confirmed, err := l.List(ctx, repository.BookingFilter{Status: model.BookingConfirmed})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, x.Booking.ID, confirmed[0].ID)
	_, err = l.List(ctx, repository.BookingFilter{Status: "refunded"})
	assert.ErrorIs(t, err, ErrInvalidFilter)

	stats, err := l.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBookings)
	assert.Equal(t, int64(1200), stats.RevenueCents)
	assert.Equal(t, int64(1), stats.ByStatus[model.BookingPending])
}

func TestLedgerHistoryPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []string
	for _, l := range []string{"A1", "A2", "A3"} {
		ids = append(ids, f.hold(t, "x", time.Minute, l).Booking.ID)
		f.clock.Advance(time.Second)
	}
	l := NewLedger(f.store)

	first, err := l.ForUser(ctx, "x", 2, 0)
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, ids[2], first.Items[0].ID)

	rest, err := l.ForUser(ctx, "x", 2, 2)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.False(t, rest.HasMore)
	assert.Equal(t, ids[0], rest.Items[0].ID)

	capped, err := l.ForUser(ctx, "x", 10_000, 0)
	require.NoError(t, err)
	assert.Equal(t, MaxHistoryPage, capped.Limit)
	assert.Len(t, capped.Items, 3)

	empty, err := l.ForUser(ctx, "x", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.Booking{}, empty.Items)

	_, err = l.ForUser(ctx, "x", 0, -1)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
