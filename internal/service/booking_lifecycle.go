package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// CanTransition reports whether a booking in state from may move to to.
// Only pending → confirmed and pending → expired exist.
func CanTransition(from, to model.BookingStatus) bool {
	return from == model.BookingPending && (to == model.BookingConfirmed || to == model.BookingExpired)
}

// Transition applies the state machine to b in memory.  A booking that is
// already confirmed or expired is left untouched and ErrAlreadyFinalized is
// returned; that outcome is a no-op for retried webhooks and reaper runs.
func Transition(b *model.Booking, to model.BookingStatus, at time.Time) error {
	if b.Status.Terminal() {
		return ErrAlreadyFinalized
	}
	if !CanTransition(b.Status, to) {
		return fmt.Errorf("invalid transition %s -> %s", b.Status, to)
	}
	at = at.UTC()
	b.Status = to
	b.UpdatedAt = at
	switch to {
	case model.BookingConfirmed:
		b.ConfirmedAt = &at
	case model.BookingExpired:
		b.ExpiredAt = &at
	}
	return nil
}

// transitionOf builds the guarded store write matching Transition.
func transitionOf(b *model.Booking, to model.BookingStatus, at time.Time) *repository.BookingTransition {
	return &repository.BookingTransition{BookingID: b.ID, To: to, At: at}
}

// translate maps repository errors onto the service taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return fmt.Errorf("%w: %v", ErrStorageConflict, err)
	case errors.Is(err, repository.ErrTransitionRejected):
		return ErrAlreadyFinalized
	case errors.Is(err, repository.ErrShowNotFound):
		return ErrShowNotFound
	case errors.Is(err, repository.ErrBookingNotFound):
		return ErrBookingNotFound
	}
	return err
}
