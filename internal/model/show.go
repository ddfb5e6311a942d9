package model

import "time"

// Show represents a scheduled screening whose seats are sold under
// contention.  The seat map is embedded in the show document and is the
// only shared mutable state of the booking engine: every hold, release and
// confirmation is a conditional update of this map guarded by Version.
//
// Fields:
//
//	ID           – catalog identifier of the show.
//	Title        – movie title, informational only.
//	PriceCents   – unit price of one seat in cents.
//	ScheduleTime – when the show starts; holds are refused afterwards.
//	Seats        – occupied seats keyed by label; absence means free.
//	Version      – optimistic concurrency token, bumped on every write.
//	CreatedAt    – creation timestamp.
//	UpdatedAt    – last update timestamp.
type Show struct {
	ID           string    // shows.id
	Title        string    // shows.title
	PriceCents   int64     // shows.price_cents
	ScheduleTime time.Time // shows.schedule_time
	Seats        SeatMap   // shows.seat_map (JSON)
	Version      uint64    // shows.version
	CreatedAt    time.Time // shows.created_at
	UpdatedAt    time.Time // shows.updated_at
}

// Started reports whether the show has begun at the given instant.
func (s *Show) Started(now time.Time) bool {
	return !s.ScheduleTime.IsZero() && !now.Before(s.ScheduleTime)
}

// Clone returns a deep copy so callers can build the next seat map without
// mutating the snapshot they read.
func (s *Show) Clone() *Show {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Seats = s.Seats.Clone()
	return &cp
}
