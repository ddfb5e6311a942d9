package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// ConfirmResult carries the booking after confirmation.  Replayed is true
// when the booking was already confirmed and nothing was written.
type ConfirmResult struct {
	Booking  *model.Booking
	Replayed bool
}

// Confirmer is the Payment Confirmation Handler.  It promotes a pending
// booking and its seats from held to confirmed in one conditional commit.
// It is safe under duplicate webhook delivery and under races with the
// expiry reaper.
type Confirmer struct {
	m *Manager
}

// NewConfirmer returns a Confirmer sharing the manager's store, retry
// budget, events and cache.
func NewConfirmer(m *Manager) *Confirmer {
	return &Confirmer{m: m}
}

// Confirm finalises the booking identified by paymentRef.
//
//   - unknown reference              → ErrUnknownReference
//   - booking already confirmed      → success, Replayed
//   - booking expired                → ErrTooLate (a payment.late event is emitted)
//   - seats not held by the booking  → ErrHoldLost, nothing written
func (c *Confirmer) Confirm(ctx context.Context, paymentRef string) (ConfirmResult, error) {
	m := c.m
	log := m.log.WithField("payment_ref", paymentRef)
	if paymentRef == "" {
		return ConfirmResult{}, ErrUnknownReference
	}

	var (
		result ConfirmResult
		show   *model.Show
	)
	err := m.retry(ctx, func() error {
		b, err := m.store.GetBookingByPaymentRef(ctx, paymentRef)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return ErrUnknownReference
			}
			return err
		}
		switch b.Status {
		case model.BookingConfirmed:
			result = ConfirmResult{Booking: b, Replayed: true}
			return nil
		case model.BookingExpired:
			result = ConfirmResult{Booking: b}
			return ErrTooLate
		}

		s, err := m.store.GetShow(ctx, b.ShowID)
		if err != nil {
			return translate(err)
		}
		next := s.Clone()
		for _, label := range b.Seats {
			h, ok := next.Seats[label]
			if !ok || !h.OwnedBy(b.ID, b.UserID) {
				result = ConfirmResult{Booking: b}
				return fmt.Errorf("%w: seat %s", ErrHoldLost, label)
			}
			h.Status = model.SeatConfirmed
			h.ExpiresAt = time.Time{}
			next.Seats[label] = h
		}
		now := m.now().UTC().Truncate(time.Microsecond)
		if err := Transition(b, model.BookingConfirmed, now); err != nil {
			return err
		}
		err = m.store.Commit(ctx, repository.Mutation{
			Show:       next,
			Transition: transitionOf(b, model.BookingConfirmed, now),
		})
		if err = translate(err); errors.Is(err, ErrAlreadyFinalized) {
			// someone finalised it between our read and our write; a
			// conflict makes the retry loop re-read and re-decide
			return fmt.Errorf("%w: booking finalised concurrently", ErrStorageConflict)
		} else if err != nil {
			return err
		}
		result = ConfirmResult{Booking: b}
		show = next
		return nil
	})

	switch {
	case errors.Is(err, ErrTooLate):
		log.WithField("booking_id", result.Booking.ID).Warn("payment confirmed after hold expired")
		if perr := m.events.LatePayment(ctx, *result.Booking); perr != nil {
			log.WithError(perr).Warn("publish late payment failed")
		}
		return result, err
	case errors.Is(err, ErrUnknownReference):
		log.Warn("payment confirmation for unknown reference")
		return ConfirmResult{}, err
	case err != nil:
		if result.Booking != nil {
			log = log.WithField("booking_id", result.Booking.ID)
		}
		log.WithError(err).Error("payment confirmation failed")
		return result, err
	}

	log = log.WithField("booking_id", result.Booking.ID)
	if result.Replayed {
		log.Info("duplicate payment confirmation ignored")
		return result, nil
	}
	m.invalidate(ctx, result.Booking.ShowID)
	log.WithField("seats", result.Booking.Seats).Info("booking confirmed")
	// side effects run only after the commit and never affect the outcome
	if perr := m.events.BookingConfirmed(ctx, *result.Booking, *show); perr != nil {
		log.WithError(perr).Warn("publish booking confirmed failed")
	}
	return result, nil
}
