package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// MemoryStore keeps shows and bookings in process memory.  It honours the
// same Commit contract as SQLStore (version compare-and-swap plus the
// pending guard) and backs STORE_DRIVER=memory and the tests.  It is only
// linearizable within a single process.
type MemoryStore struct {
	mu       sync.RWMutex
	shows    map[string]*model.Show
	bookings map[string]*model.Booking
	byRef    map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shows:    map[string]*model.Show{},
		bookings: map[string]*model.Booking{},
		byRef:    map[string]string{},
	}
}

// CreateShow registers a show with version 1.
func (s *MemoryStore) CreateShow(_ context.Context, show *model.Show) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shows[show.ID]; ok {
		return ErrShowExists
	}
	now := time.Now().UTC()
	if show.Seats == nil {
		show.Seats = model.SeatMap{}
	}
	show.Version = 1
	show.CreatedAt, show.UpdatedAt = now, now
	s.shows[show.ID] = show.Clone()
	return nil
}

// GetShow returns a copy of the stored show.
func (s *MemoryStore) GetShow(_ context.Context, id string) (*model.Show, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	show, ok := s.shows[id]
	if !ok {
		return nil, ErrShowNotFound
	}
	return show.Clone(), nil
}

// Commit applies m atomically; see SQLStore.Commit.
func (s *MemoryStore) Commit(_ context.Context, m Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// validate every guard before touching anything
	if m.Show != nil {
		cur, ok := s.shows[m.Show.ID]
		if !ok {
			return ErrShowNotFound
		}
		if cur.Version != m.Show.Version {
			return ErrVersionConflict
		}
	}
	var target *model.Booking
	if m.Transition != nil {
		b, ok := s.bookings[m.Transition.BookingID]
		if !ok {
			return ErrBookingNotFound
		}
		if b.Status != model.BookingPending {
			return ErrTransitionRejected
		}
		target = b
	}
	if m.Create != nil {
		if m.Create.PaymentRef != nil {
			if _, taken := s.byRef[*m.Create.PaymentRef]; taken {
				return ErrPaymentRefConflict
			}
		}
	}

	now := time.Now().UTC()
	if m.Show != nil {
		next := m.Show.Clone()
		next.Version++
		next.UpdatedAt = now
		s.shows[next.ID] = next
		m.Show.Version = next.Version
		m.Show.UpdatedAt = now
	}
	if m.Create != nil {
		b := m.Create.Clone()
		s.bookings[b.ID] = b
		if b.PaymentRef != nil {
			s.byRef[*b.PaymentRef] = b.ID
		}
	}
	if target != nil {
		at := m.Transition.At.UTC()
		target.Status = m.Transition.To
		target.UpdatedAt = at
		switch m.Transition.To {
		case model.BookingConfirmed:
			target.ConfirmedAt = &at
		case model.BookingExpired:
			target.ExpiredAt = &at
		}
	}
	return nil
}

// GetBooking returns a copy of the booking.
func (s *MemoryStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return b.Clone(), nil
}

// GetBookingByPaymentRef resolves a checkout session id.
func (s *MemoryStore) GetBookingByPaymentRef(_ context.Context, ref string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRef[ref]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return s.bookings[id].Clone(), nil
}

// AttachPaymentRef records the checkout session of a pending booking.
func (s *MemoryStore) AttachPaymentRef(_ context.Context, bookingID, ref, checkoutURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok || b.Status != model.BookingPending || b.PaymentRef != nil {
		return ErrPaymentRefConflict
	}
	if _, taken := s.byRef[ref]; taken {
		return ErrPaymentRefConflict
	}
	b.PaymentRef = &ref
	b.CheckoutURL = checkoutURL
	b.UpdatedAt = time.Now().UTC()
	s.byRef[ref] = bookingID
	return nil
}

// ListExpiredPending returns pending bookings whose TTL elapsed, oldest
// first, starting after the cursor when one is given.
func (s *MemoryStore) ListExpiredPending(_ context.Context, now time.Time, after *ExpiryCursor, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if b.Status != model.BookingPending || b.ExpiresAt.After(now) {
			continue
		}
		if after != nil && !after.before(b.ExpiresAt, b.ID) {
			continue
		}
		out = append(out, *b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].ExpiresAt.Before(out[j].ExpiresAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListBookings returns bookings matching f, newest first.
func (s *MemoryStore) ListBookings(_ context.Context, f BookingFilter) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0)
	for _, b := range s.bookings {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.ShowID != "" && b.ShowID != f.ShowID {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		out = append(out, *b.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.Booking{}, nil
		}
		out = out[f.Offset:]
	}
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// BookingStats aggregates the ledger.
func (s *MemoryStore) BookingStats(_ context.Context) (model.BookingStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := model.BookingStats{ByStatus: map[model.BookingStatus]int64{}}
	for _, b := range s.bookings {
		stats.TotalBookings++
		stats.ByStatus[b.Status]++
		if b.Status == model.BookingConfirmed {
			stats.RevenueCents += b.AmountCents
			stats.ConfirmedSeats += int64(len(b.Seats))
		}
	}
	return stats, nil
}
