package service

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidHold is returned when a hold request violates its
	// preconditions (no seats, duplicate or malformed labels, ttl <= 0).
	ErrInvalidHold = errors.New("invalid hold request")
	// ErrShowNotFound is returned when the show does not exist.
	ErrShowNotFound = errors.New("show not found")
	// ErrShowStarted is returned when holding seats for a show that began.
	ErrShowStarted = errors.New("show already started")
	// ErrBookingNotFound is returned when a booking id does not resolve.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrAlreadyFinalized reports a transition attempted on a confirmed or
	// expired booking.  Automated callers treat it as a no-op.
	ErrAlreadyFinalized = errors.New("booking already finalized")
	// ErrNotExpired is returned when the reaper path is asked to expire a
	// booking whose TTL has not elapsed yet.
	ErrNotExpired = errors.New("booking hold has not expired")
	// ErrUnknownReference is returned when a payment confirmation names a
	// reference no booking carries.
	ErrUnknownReference = errors.New("unknown payment reference")
	// ErrTooLate is returned when payment is confirmed for a booking whose
	// hold was already reclaimed.
	ErrTooLate = errors.New("payment confirmed after hold expired")
	// ErrHoldLost is returned when a pending booking's seats are no longer
	// held by it.  Confirmation fails closed rather than reviving seats.
	ErrHoldLost = errors.New("seats no longer held by booking")
	// ErrStorageConflict is returned when the conditional update kept losing
	// races after the configured number of attempts.
	ErrStorageConflict = errors.New("storage conflict")
	// ErrGatewayUnavailable is returned when no checkout session could be
	// created; the hold has been released.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrInvalidFilter is returned for an unknown status in a list query.
	ErrInvalidFilter = errors.New("invalid booking filter")
	// ErrForbidden is returned when the caller does not own the booking.
	ErrForbidden = errors.New("forbidden")
)

// SeatConflictError reports which requested seats were unavailable at
// hold time.  No state was written.
type SeatConflictError struct {
	Contested []string
}

func (e *SeatConflictError) Error() string {
	return "seats unavailable: " + strings.Join(e.Contested, ",")
}
