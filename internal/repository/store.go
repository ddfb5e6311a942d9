package repository

import (
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// Mutation describes one atomic unit of work against a show and its
// bookings.  Either every part of it is applied or none is.
//
//	Show       – when non-nil, its Seats replace the stored seat map on the
//	             condition that the stored version still equals
//	             Show.Version.  On success Show.Version is advanced.
//	Create     – when non-nil, the booking is inserted.
//	Transition – when non-nil, the booking moves out of pending; the write
//	             is rejected if it is no longer pending.
type Mutation struct {
	Show       *model.Show
	Create     *model.Booking
	Transition *BookingTransition
}

// BookingTransition moves a pending booking into a terminal state.
type BookingTransition struct {
	BookingID string
	To        model.BookingStatus
	At        time.Time
}

// BookingFilter narrows booking listings.  Zero values mean "no
// constraint"; Limit defaults to 100.
type BookingFilter struct {
	Status model.BookingStatus
	ShowID string
	UserID string
	Limit  int
	Offset int
}

// ExpiryCursor marks the last booking a reaper page returned.  Pages are
// ordered by (expires_at, id).
type ExpiryCursor struct {
	ExpiresAt time.Time
	ID        string
}

// before reports whether the cursor sorts before (expiresAt, id).
func (c ExpiryCursor) before(expiresAt time.Time, id string) bool {
	if !c.ExpiresAt.Equal(expiresAt) {
		return c.ExpiresAt.Before(expiresAt)
	}
	return c.ID < id
}

// EffectiveLimit clamps Limit into [1, 500].
func (f BookingFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return 100
	case f.Limit > 500:
		return 500
	}
	return f.Limit
}
