package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

func TestConfirmPromotesSeats(t *testing.T) {
	f := newFixture(t)
	x := f.hold(t, "x", time.Minute, "A1", "A2")

	res, err := f.confirm.Confirm(context.Background(), x.PaymentRef)
	require.NoError(t, err)
	assert.False(t, res.Replayed)
	assert.Equal(t, model.BookingConfirmed, res.Booking.Status)
	require.NotNil(t, res.Booking.ConfirmedAt)

	for _, l := range []string{"A1", "A2"} {
		h := f.seats(t)[l]
		assert.Equal(t, model.SeatConfirmed, h.Status)
		assert.True(t, h.ExpiresAt.IsZero())
	}
	assert.Equal(t, model.BookingConfirmed, f.booking(t, x.Booking.ID).Status)
	assert.Equal(t, []string{x.Booking.ID}, f.events.confirmed)
}

func TestConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	x := f.hold(t, "x", time.Minute, "A1")

	_, err := f.confirm.Confirm(context.Background(), x.PaymentRef)
	require.NoError(t, err)
	before := f.seats(t)

	res, err := f.confirm.Confirm(context.Background(), x.PaymentRef)
	require.NoError(t, err)
	assert.True(t, res.Replayed)
	assert.Equal(t, before, f.seats(t))
	assert.Len(t, f.events.confirmed, 1)
}

func TestConfirmUnknownReference(t *testing.T) {
	f := newFixture(t)
	for _, ref := range []string{"", "pr_404"} {
		_, err := f.confirm.Confirm(context.Background(), ref)
		assert.ErrorIs(t, err, ErrUnknownReference)
	}
}

func TestConfirmAfterExpiryIsTooLate(t *testing.T) {
	f := newFixture(t)
	x := f.hold(t, "x", time.Minute, "A1")
	f.clock.Advance(time.Minute)
	stats := f.reaper.Sweep(context.Background())
	require.Equal(t, 1, stats.Expired)

	res, err := f.confirm.Confirm(context.Background(), x.PaymentRef)
	assert.ErrorIs(t, err, ErrTooLate)
	require.NotNil(t, res.Booking)
	assert.Equal(t, model.BookingExpired, res.Booking.Status)
	assert.Empty(t, f.seats(t))
	assert.Equal(t, []string{x.Booking.ID}, f.events.late)
	assert.Empty(t, f.events.confirmed)
}

func TestConfirmFailsClosedWhenHoldLost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	x := f.hold(t, "x", time.Minute, "A1", "A2")

	// partial release leaves the booking pending without A2
	_, err := f.manager.Release(ctx, ReleaseRequest{ShowID: "S1", BookingID: x.Booking.ID, HolderID: "x", Seats: []string{"A2"}})
	require.NoError(t, err)
	f.hold(t, "y", time.Minute, "A2")

	_, err = f.confirm.Confirm(ctx, x.PaymentRef)
	assert.ErrorIs(t, err, ErrHoldLost)

	seats := f.seats(t)
	assert.Equal(t, model.SeatHeld, seats["A1"].Status)
	assert.Equal(t, "y", seats["A2"].HolderID)
	assert.Equal(t, model.BookingPending, f.booking(t, x.Booking.ID).Status)
}

// Payment and expiry racing on the same booking: exactly one wins and the
// seat map agrees with the winner.
func TestConfirmRacingReaper(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		x := f.hold(t, "x", time.Minute, "A1", "A2")
		f.clock.Advance(time.Minute)

		var (
			wg         sync.WaitGroup
			confirmErr error
			stats      SweepStats
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = f.confirm.Confirm(context.Background(), x.PaymentRef)
		}()
		go func() {
			defer wg.Done()
			stats = f.reaper.Sweep(context.Background())
		}()
		wg.Wait()

		b := f.booking(t, x.Booking.ID)
		seats := f.seats(t)
		switch b.Status {
		case model.BookingConfirmed:
			assert.NoError(t, confirmErr)
			assert.Zero(t, stats.Expired)
			assert.Equal(t, model.SeatConfirmed, seats["A1"].Status)
			assert.Equal(t, model.SeatConfirmed, seats["A2"].Status)
		case model.BookingExpired:
			assert.ErrorIs(t, confirmErr, ErrTooLate)
			assert.Equal(t, 1, stats.Expired)
			assert.Empty(t, seats)
		default:
			t.Fatalf("booking left in %s", b.Status)
		}
	}
}
