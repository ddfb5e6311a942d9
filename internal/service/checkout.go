package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/gateway"
	"github.com/iliyamo/seat-booking-engine/internal/model"
)

const compensateTimeout = 5 * time.Second

// SessionCreator opens checkout sessions with the payment provider.
type SessionCreator interface {
	CreateSession(ctx context.Context, req gateway.SessionRequest) (gateway.Session, error)
}

// CheckoutResult is returned by Checkout.Start.
// SessionExpiresAt never falls after the hold's own expiry.
type CheckoutResult struct {
	Booking          *model.Booking
	PaymentRef       string
	CheckoutURL      string
	SessionExpiresAt time.Time
}

// Checkout ties a seat hold to a provider checkout session.
type Checkout struct {
	m        *Manager
	sessions SessionCreator
}

// NewCheckout returns a Checkout using m for holds and sessions for the
// provider side.
func NewCheckout(m *Manager, sessions SessionCreator) *Checkout {
	return &Checkout{m: m, sessions: sessions}
}

// Start holds the requested seats, opens a checkout session and records its
// id as the booking's payment reference.  When the provider step fails the
// hold is expired again right away and ErrGatewayUnavailable is returned.
func (c *Checkout) Start(ctx context.Context, req HoldRequest) (CheckoutResult, error) {
	b, err := c.m.TryHold(ctx, req)
	if err != nil {
		return CheckoutResult{}, err
	}
	log := c.m.log.WithField("booking_id", b.ID)

	sess, err := c.sessions.CreateSession(ctx, gateway.SessionRequest{
		BookingID:   b.ID,
		AmountCents: b.AmountCents,
		Description: fmt.Sprintf("%d seat(s) for show %s", len(b.Seats), b.ShowID),
		ExpiresAt:   b.ExpiresAt,
	})
	if err == nil {
		err = c.m.store.AttachPaymentRef(ctx, b.ID, sess.ID, sess.URL)
	}
	if err != nil {
		log.WithError(err).Error("checkout session failed, releasing hold")
		c.compensate(ctx, b)
		return CheckoutResult{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	ref := sess.ID
	b.PaymentRef = &ref
	b.CheckoutURL = sess.URL
	until := sess.ExpiresAt
	if until.IsZero() || until.After(b.ExpiresAt) {
		until = b.ExpiresAt
	}
	log.WithField("payment_ref", ref).Info("checkout session created")
	return CheckoutResult{Booking: b, PaymentRef: ref, CheckoutURL: sess.URL, SessionExpiresAt: until}, nil
}

// compensate expires the booking so its seats return to the pool.  It uses
// a fresh context: the request context may be the reason we are here.
func (c *Checkout) compensate(ctx context.Context, b *model.Booking) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensateTimeout)
	defer cancel()
	_, err := c.m.Release(cctx, ReleaseRequest{
		ShowID:    b.ShowID,
		BookingID: b.ID,
		HolderID:  b.UserID,
		Expire:    true,
	})
	if err != nil && !errors.Is(err, ErrAlreadyFinalized) {
		// the reaper reclaims it once the TTL passes
		c.m.log.WithError(err).WithField("booking_id", b.ID).Error("compensating release failed")
	}
}
