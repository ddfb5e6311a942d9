package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// seatLabel accepts row letters followed by a seat number, e.g. A1 or AB12.
var seatLabel = regexp.MustCompile(`^[A-Z]{1,3}[0-9]{1,3}$`)

// Options tunes a Manager.  Zero values fall back to sensible defaults.
type Options struct {
	MaxSeats     int           // upper bound of seats per hold (default 10)
	MaxAttempts  int           // attempts per conditional update (default 5)
	RetryBackoff time.Duration // linear backoff between attempts
	Now          func() time.Time
	Logger       logrus.FieldLogger
	Events       EventSink
	Cache        SeatCache
}

// Manager is the Reservation Manager.  It owns the atomicity guarantee of
// the seat map: every change is computed from a snapshot of the show and
// committed with a compare-and-swap on the show version, so two holders
// racing for overlapping seats can never both win.
type Manager struct {
	store       Store
	events      EventSink
	cache       SeatCache
	log         logrus.FieldLogger
	now         func() time.Time
	maxSeats    int
	maxAttempts int
	backoff     time.Duration
}

// NewManager constructs a Manager over store.
func NewManager(store Store, opts Options) *Manager {
	if store == nil {
		panic("nil store passed to NewManager")
	}
	m := &Manager{
		store:       store,
		events:      opts.Events,
		cache:       opts.Cache,
		log:         opts.Logger,
		now:         opts.Now,
		maxSeats:    opts.MaxSeats,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.RetryBackoff,
	}
	if m.events == nil {
		m.events = nopEvents{}
	}
	if m.cache == nil {
		m.cache = nopCache{}
	}
	if m.log == nil {
		m.log = logrus.StandardLogger()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.maxSeats <= 0 {
		m.maxSeats = 10
	}
	if m.maxAttempts <= 0 {
		m.maxAttempts = 5
	}
	return m
}

// HoldRequest is the input of TryHold.
type HoldRequest struct {
	ShowID   string
	Seats    []string
	HolderID string
	TTL      time.Duration
}

// NormalizeSeats trims and upper-cases labels and rejects empty input,
// malformed labels and duplicates.
func NormalizeSeats(seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, fmt.Errorf("%w: no seats requested", ErrInvalidHold)
	}
	out := make([]string, 0, len(seats))
	seen := make(map[string]struct{}, len(seats))
	for _, raw := range seats {
		s := strings.ToUpper(strings.TrimSpace(raw))
		if !seatLabel.MatchString(s) {
			return nil, fmt.Errorf("%w: malformed seat label %q", ErrInvalidHold, raw)
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("%w: duplicate seat %s", ErrInvalidHold, s)
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out, nil
}

// TryHold atomically claims every requested seat for holderID and creates
// the pending booking that owns them.  If any seat already has an entry,
// held or confirmed, a *SeatConflictError lists the contested labels and
// nothing is written.
func (m *Manager) TryHold(ctx context.Context, req HoldRequest) (*model.Booking, error) {
	seats, err := NormalizeSeats(req.Seats)
	if err != nil {
		return nil, err
	}
	switch {
	case len(seats) > m.maxSeats:
		return nil, fmt.Errorf("%w: at most %d seats per hold", ErrInvalidHold, m.maxSeats)
	case req.TTL <= 0:
		return nil, fmt.Errorf("%w: ttl must be positive", ErrInvalidHold)
	case strings.TrimSpace(req.HolderID) == "":
		return nil, fmt.Errorf("%w: holder is required", ErrInvalidHold)
	case strings.TrimSpace(req.ShowID) == "":
		return nil, fmt.Errorf("%w: show is required", ErrInvalidHold)
	}

	var booking *model.Booking
	err = m.retry(ctx, func() error {
		show, err := m.store.GetShow(ctx, req.ShowID)
		if err != nil {
			return translate(err)
		}
		now := m.now().UTC().Truncate(time.Microsecond)
		if show.Started(now) {
			return ErrShowStarted
		}
		if taken := show.Seats.Contested(seats); len(taken) > 0 {
			return &SeatConflictError{Contested: taken}
		}
		b := &model.Booking{
			ID:          uuid.NewString(),
			UserID:      req.HolderID,
			ShowID:      show.ID,
			Seats:       append([]string(nil), seats...),
			AmountCents: show.PriceCents * int64(len(seats)),
			Status:      model.BookingPending,
			ExpiresAt:   now.Add(req.TTL),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		next := show.Clone()
		for _, s := range seats {
			next.Seats[s] = model.SeatHold{
				BookingID: b.ID,
				HolderID:  b.UserID,
				Status:    model.SeatHeld,
				ExpiresAt: b.ExpiresAt,
			}
		}
		if err := m.store.Commit(ctx, repository.Mutation{Show: next, Create: b}); err != nil {
			return translate(err)
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, booking.ShowID)
	m.log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"show_id":    booking.ShowID,
		"holder_id":  booking.UserID,
		"seats":      booking.Seats,
		"expires_at": booking.ExpiresAt,
	}).Info("seats held")
	return booking, nil
}

// ReleaseRequest is the input of Release.
//
//	Seats          – labels to free; nil means every seat of the booking.
//	Expire         – also move the booking pending → expired in the same
//	                 commit.  When the booking is no longer pending nothing
//	                 is released and ErrAlreadyFinalized is returned.
//	                 Seats must be nil: expiry always frees the whole booking.
//	RequireElapsed – with Expire, refuse bookings whose TTL has not passed.
type ReleaseRequest struct {
	ShowID         string
	BookingID      string
	HolderID       string
	Seats          []string
	Expire         bool
	RequireElapsed bool
}

// ReleaseResult lists the labels actually freed and, when Expire was set,
// the booking as it was committed.
type ReleaseResult struct {
	Released []string
	Booking  *model.Booking
}

// Release frees seats that are still held by the given booking and
// holder.  Confirmed seats and seats that were already released or
// reassigned are left untouched, so repeating a release is a no-op.
func (m *Manager) Release(ctx context.Context, req ReleaseRequest) (ReleaseResult, error) {
	if req.BookingID == "" {
		return ReleaseResult{}, fmt.Errorf("%w: booking is required", ErrInvalidHold)
	}
	if req.Expire && req.Seats != nil {
		return ReleaseResult{}, fmt.Errorf("%w: expiring a booking releases all of its seats", ErrInvalidHold)
	}
	var labels []string
	if req.Seats != nil {
		var err error
		if labels, err = NormalizeSeats(req.Seats); err != nil {
			return ReleaseResult{}, err
		}
	}

	var (
		res      ReleaseResult
		resolved string
	)
	err := m.retry(ctx, func() error {
		res = ReleaseResult{}
		showID, holderID, seats := req.ShowID, req.HolderID, labels
		var (
			booking    *model.Booking
			transition *repository.BookingTransition
		)
		if req.Expire || seats == nil || showID == "" || holderID == "" {
			b, err := m.store.GetBooking(ctx, req.BookingID)
			if err != nil {
				return translate(err)
			}
			if holderID == "" {
				holderID = b.UserID
			}
			if b.UserID != holderID || (showID != "" && b.ShowID != showID) {
				return ErrForbidden
			}
			showID = b.ShowID
			if seats == nil {
				seats = b.Seats
			}
			if req.Expire {
				now := m.now().UTC().Truncate(time.Microsecond)
				if req.RequireElapsed && now.Before(b.ExpiresAt) {
					return ErrNotExpired
				}
				if err := Transition(b, model.BookingExpired, now); err != nil {
					return err
				}
				booking = b
				transition = transitionOf(b, model.BookingExpired, now)
			}
		}

		resolved = showID
		show, err := m.store.GetShow(ctx, showID)
		if err != nil {
			return translate(err)
		}
		next := show.Clone()
		released := releaseOwned(next.Seats, seats, req.BookingID, holderID)
		if len(released) == 0 && transition == nil {
			return nil
		}
		mut := repository.Mutation{Transition: transition}
		if len(released) > 0 {
			mut.Show = next
		}
		if err := m.store.Commit(ctx, mut); err != nil {
			return translate(err)
		}
		res = ReleaseResult{Released: released, Booking: booking}
		return nil
	})
	if err != nil {
		return ReleaseResult{}, err
	}
	if len(res.Released) > 0 {
		m.invalidate(ctx, resolved)
	}
	entry := m.log.WithFields(logrus.Fields{"booking_id": req.BookingID, "released": res.Released})
	if res.Booking != nil {
		entry.Info("booking expired and seats released")
		if err := m.events.BookingExpired(ctx, *res.Booking); err != nil {
			entry.WithError(err).Warn("publish booking expired failed")
		}
	} else if len(res.Released) > 0 {
		entry.Info("seats released")
	}
	return res, nil
}

// Availability returns the occupied seats of a show, served from the
// cache when possible.
func (m *Manager) Availability(ctx context.Context, showID string) (model.SeatMap, error) {
	if seats, ok := m.cache.Get(ctx, showID); ok {
		return seats, nil
	}
	show, err := m.store.GetShow(ctx, showID)
	if err != nil {
		return nil, translate(err)
	}
	if err := m.cache.Set(ctx, showID, show.Seats); err != nil {
		m.log.WithError(err).WithField("show_id", showID).Debug("seat cache set failed")
		return show.Seats, nil
	}
	// A commit between the read and the Set has already run its
	// invalidation, so the entry just written may be stale.
	if cur, err := m.store.GetShow(ctx, showID); err != nil || cur.Version != show.Version {
		m.invalidate(ctx, showID)
	}
	return show.Seats, nil
}

// UpcomingShows lists shows that have not started yet.
func (m *Manager) UpcomingShows(ctx context.Context, q repository.ShowSearchQuery) ([]model.Show, int64, error) {
	q.After = m.now().UTC()
	return m.store.SearchShows(ctx, q)
}

// releaseOwned deletes from seats every label still held by bookingID and
// holderID and returns the deleted labels in input order.
func releaseOwned(seats model.SeatMap, labels []string, bookingID, holderID string) []string {
	var released []string
	for _, l := range labels {
		if h, ok := seats[l]; ok && h.OwnedBy(bookingID, holderID) {
			delete(seats, l)
			released = append(released, l)
		}
	}
	return released
}

// retry runs op until it stops failing with ErrStorageConflict or the
// attempt budget is spent.  Each attempt must re-read its inputs.
func (m *Manager) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err = op(); !errors.Is(err, ErrStorageConflict) {
			return err
		}
		if attempt == m.maxAttempts {
			break
		}
		m.log.WithField("attempt", attempt).Debug("conditional update lost a race, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func (m *Manager) invalidate(ctx context.Context, showID string) {
	if showID == "" {
		return
	}
	if err := m.cache.Invalidate(ctx, showID); err != nil {
		m.log.WithError(err).WithField("show_id", showID).Warn("seat cache invalidation failed")
	}
}
