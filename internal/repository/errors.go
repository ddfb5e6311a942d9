package repository

// Sentinel errors shared by the show and booking stores.  They let the
// service layer tell a lost optimistic race from a missing record or a
// booking that someone else already finalised.

import "errors"

// ErrShowNotFound indicates that a show was not located in the store.
var ErrShowNotFound = errors.New("show not found")

// ErrShowExists is returned when registering a show id that is already taken.
var ErrShowExists = errors.New("show already exists")

// ErrBookingNotFound indicates that no booking matched the id or payment
// reference.
var ErrBookingNotFound = errors.New("booking not found")

// ErrVersionConflict is returned by Commit when the show's version no
// longer matches the version the caller read.  Nothing was written; the
// caller should re-read and retry.
var ErrVersionConflict = errors.New("show version conflict")

// ErrTransitionRejected is returned by Commit when the booking targeted by
// a transition is no longer pending.  The whole commit is rolled back.
var ErrTransitionRejected = errors.New("booking is not pending")

// ErrPaymentRefConflict signals that a booking already carries a payment
// reference or the reference is used by another booking.
var ErrPaymentRefConflict = errors.New("payment reference conflict")
