// Package gateway is the adapter to the external payment provider.  It is
// the only component that talks to the provider: it opens hosted checkout
// sessions and verifies the signatures on inbound payment notifications.
package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidSignature is returned when a notification signature does
	// not match the payment reference.
	ErrInvalidSignature = errors.New("invalid provider signature")
	// ErrInvalidSession is returned for session requests the provider
	// would refuse.
	ErrInvalidSession = errors.New("invalid checkout session request")
)

// SessionRequest describes the checkout a booking needs.
type SessionRequest struct {
	BookingID   string
	AmountCents int64
	Description string
	ExpiresAt   time.Time
}

// Session is a created checkout session.  ID is the payment reference the
// provider echoes back on confirmation.
type Session struct {
	ID        string
	URL       string
	ExpiresAt time.Time
}

// Gateway is the provider contract used by the checkout flow and the
// payment webhook.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	VerifySignature(paymentRef, signature string) error
}

// HostedCheckout is a Gateway for a redirect-style hosted checkout page.
// Sessions are identified by "cs_<uuid>" and signed with HMAC-SHA256 under
// a shared webhook secret.
type HostedCheckout struct {
	baseURL string
	secret  []byte
	newID   func() string
}

// NewHostedCheckout returns a HostedCheckout building URLs under baseURL.
func NewHostedCheckout(baseURL, secret string) *HostedCheckout {
	return &HostedCheckout{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		newID:   func() string { return "cs_" + uuid.NewString() },
	}
}

// CreateSession opens a session for req.  The session lifetime ends one
// minute before the hold so a payment cannot land on a reclaimed seat.
func (g *HostedCheckout) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	if req.BookingID == "" || req.AmountCents < 0 {
		return Session{}, ErrInvalidSession
	}
	if len(g.secret) == 0 || g.baseURL == "" {
		return Session{}, fmt.Errorf("hosted checkout not configured")
	}
	id := g.newID()
	s := Session{ID: id, URL: g.baseURL + "/" + id}
	if !req.ExpiresAt.IsZero() {
		s.ExpiresAt = req.ExpiresAt.Add(-time.Minute)
	}
	return s, nil
}

// Sign returns the hex signature the provider attaches to notifications
// for paymentRef.
func (g *HostedCheckout) Sign(paymentRef string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks signature against paymentRef in constant time.
func (g *HostedCheckout) VerifySignature(paymentRef, signature string) error {
	if paymentRef == "" || signature == "" || len(g.secret) == 0 {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(paymentRef))
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}
