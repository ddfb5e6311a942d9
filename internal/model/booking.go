package model

import "time"

// BookingStatus is the lifecycle state of a booking.  pending is the only
// non-terminal state.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingExpired   BookingStatus = "expired"
)

// Valid reports whether s is one of the known states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingExpired:
		return true
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s BookingStatus) Terminal() bool {
	return s == BookingConfirmed || s == BookingExpired
}

// Booking is the ledger entry for one hold.  It is the authority for which
// seats belong to which hold; the show's seat map is a projection of all
// pending and confirmed bookings.
//
// Fields:
//
//	ID          – primary key (uuid).
//	UserID      – holder who created the booking.
//	ShowID      – show the seats belong to.
//	Seats       – ordered seat labels, immutable after creation.
//	AmountCents – price of all seats at creation time.
//	Status      – pending, confirmed or expired.
//	ExpiresAt   – creation time plus hold TTL.
//	PaymentRef  – checkout session id, set once a session exists.
//	CheckoutURL – where the client completes payment.
//	ConfirmedAt – when payment was confirmed.
//	ExpiredAt   – when the hold was reclaimed.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Booking struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	ShowID      string        `json:"show_id"`
	Seats       []string      `json:"seats"`
	AmountCents int64         `json:"amount_cents"`
	Status      BookingStatus `json:"status"`
	ExpiresAt   time.Time     `json:"expires_at"`
	PaymentRef  *string       `json:"payment_ref,omitempty"`
	CheckoutURL string        `json:"checkout_url,omitempty"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	ExpiredAt   *time.Time    `json:"expired_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Clone returns a deep copy of the booking.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Seats = append([]string(nil), b.Seats...)
	if b.PaymentRef != nil {
		ref := *b.PaymentRef
		cp.PaymentRef = &ref
	}
	if b.ConfirmedAt != nil {
		t := *b.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	if b.ExpiredAt != nil {
		t := *b.ExpiredAt
		cp.ExpiredAt = &t
	}
	return &cp
}

// BookingStats aggregates the ledger for the admin dashboard.
type BookingStats struct {
	TotalBookings  int64                   `json:"total_bookings"`
	ByStatus       map[BookingStatus]int64 `json:"by_status"`
	RevenueCents   int64                   `json:"revenue_cents"`
	ConfirmedSeats int64                   `json:"confirmed_seats"`
}
