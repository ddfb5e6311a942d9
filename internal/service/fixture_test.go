package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-booking-engine/internal/gateway"
	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

var t0 = time.Date(2026, 4, 10, 18, 0, 0, 0, time.UTC)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvents struct {
	mu        sync.Mutex
	confirmed []string
	expired   []string
	late      []string
}

func (r *recordedEvents) BookingConfirmed(_ context.Context, b model.Booking, _ model.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, b.ID)
	return nil
}

func (r *recordedEvents) BookingExpired(_ context.Context, b model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expired = append(r.expired, b.ID)
	return nil
}

func (r *recordedEvents) LatePayment(_ context.Context, b model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.late = append(r.late, b.ID)
	return errors.New("broker down") // must not change the outcome
}

// fakeGateway numbers sessions pr_1, pr_2, ...  Sessions end overrun
// after the requested expiry.
type fakeGateway struct {
	mu      sync.Mutex
	n       int
	err     error
	overrun time.Duration
}

func (g *fakeGateway) CreateSession(_ context.Context, req gateway.SessionRequest) (gateway.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return gateway.Session{}, g.err
	}
	g.n++
	id := fmt.Sprintf("pr_%d", g.n)
	return gateway.Session{ID: id, URL: "https://pay.test/" + id, ExpiresAt: req.ExpiresAt.Add(g.overrun)}, nil
}

type fixture struct {
	store    *repository.MemoryStore
	clock    *clock
	events   *recordedEvents
	gw       *fakeGateway
	manager  *Manager
	confirm  *Confirmer
	checkout *Checkout
	reaper   *Reaper
	logs     *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	f := &fixture{
		store:  repository.NewMemoryStore(),
		clock:  &clock{now: t0},
		events: &recordedEvents{},
		gw:     &fakeGateway{},
		logs:   hook,
	}
	f.manager = NewManager(f.store, Options{
		MaxAttempts: 50,
		Now:         f.clock.Now,
		Logger:      logger,
		Events:      f.events,
	})
	f.confirm = NewConfirmer(f.manager)
	f.checkout = NewCheckout(f.manager, f.gw)
	f.reaper = NewReaper(f.manager, time.Second, 10)

	require.NoError(t, f.store.CreateShow(context.Background(), &model.Show{
		ID:           "S1",
		Title:        "Metropolis",
		PriceCents:   1200,
		ScheduleTime: t0.Add(24 * time.Hour),
	}))
	return f
}

func (f *fixture) hold(t *testing.T, holder string, ttl time.Duration, seats ...string) CheckoutResult {
	t.Helper()
	res, err := f.checkout.Start(context.Background(), HoldRequest{ShowID: "S1", Seats: seats, HolderID: holder, TTL: ttl})
	require.NoError(t, err)
	return res
}

func (f *fixture) seats(t *testing.T) model.SeatMap {
	t.Helper()
	s, err := f.store.GetShow(context.Background(), "S1")
	require.NoError(t, err)
	return s.Seats
}

func (f *fixture) booking(t *testing.T, id string) *model.Booking {
	t.Helper()
	b, err := f.store.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}
