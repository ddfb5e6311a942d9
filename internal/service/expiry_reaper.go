package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// SweepStats summarises one reaper cycle.
type SweepStats struct {
	Scanned int
	Expired int
	Skipped int // finalised concurrently or not yet due
	Failed  int
}

// Reaper is the Expiry Reaper: the only mechanism that reclaims holds.
// Nothing is scheduled per request; each cycle re-reads persisted
// expires_at values, so a restart loses no expiries.
type Reaper struct {
	m         *Manager
	interval  time.Duration
	batchSize int
	log       logrus.FieldLogger
}

// NewReaper returns a Reaper sweeping every interval, batchSize bookings
// at a time.
func NewReaper(m *Manager, interval time.Duration, batchSize int) *Reaper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Reaper{
		m:         m,
		interval:  interval,
		batchSize: batchSize,
		log:       m.log.WithField("component", "reaper"),
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval.String()).Info("expiry reaper started")
	r.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info("expiry reaper stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep expires every pending booking whose TTL has elapsed.  Bookings are
// read in pages of the batch size, each page starting after the last
// booking of the previous one, so bookings that keep failing cannot hide
// newer ones.  Each booking is handled on its own: a failure is logged and
// counted and the next cycle picks the booking up again.
func (r *Reaper) Sweep(ctx context.Context) SweepStats {
	var (
		stats  SweepStats
		cursor *repository.ExpiryCursor
	)
	now := r.m.now().UTC()
	for ctx.Err() == nil {
		due, err := r.m.store.ListExpiredPending(ctx, now, cursor, r.batchSize)
		if err != nil {
			r.log.WithError(err).Error("list expired bookings failed")
			break
		}
		r.expire(ctx, due, &stats)
		if len(due) < r.batchSize {
			break
		}
		last := due[len(due)-1]
		cursor = &repository.ExpiryCursor{ExpiresAt: last.ExpiresAt, ID: last.ID}
	}
	if stats.Scanned == 0 {
		return stats
	}

	entry := r.log.WithFields(logrus.Fields{
		"scanned": stats.Scanned,
		"expired": stats.Expired,
		"skipped": stats.Skipped,
		"failed":  stats.Failed,
	})
	if stats.Failed > 0 {
		entry.Warn("sweep finished with failures")
	} else {
		entry.Info("sweep finished")
	}
	return stats
}

func (r *Reaper) expire(ctx context.Context, due []model.Booking, stats *SweepStats) {
	for _, b := range due {
		if ctx.Err() != nil {
			r.log.Info("sweep interrupted")
			return
		}
		stats.Scanned++
		_, err := r.m.Release(ctx, ReleaseRequest{
			ShowID:         b.ShowID,
			BookingID:      b.ID,
			HolderID:       b.UserID,
			Expire:         true,
			RequireElapsed: true,
		})
		switch {
		case err == nil:
			stats.Expired++
		case errors.Is(err, ErrAlreadyFinalized), errors.Is(err, ErrNotExpired):
			stats.Skipped++
		default:
			stats.Failed++
			r.log.WithError(err).WithField("booking_id", b.ID).Warn("expire booking failed")
		}
	}
}
