// Package queue carries booking lifecycle events over RabbitMQ: the
// publisher used by the service layer and the background consumer that
// records confirmations and hands them to the mailer.
package queue

import (
	"time"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

// Queue names.  All queues are durable and bound to the default exchange.
const (
	QueueBookingConfirmed = "booking.confirmed"
	QueueBookingExpired   = "booking.expired"
	QueuePaymentLate      = "payment.late"
)

// BookingConfirmedEvent is published once a booking and its seats are
// durably confirmed.  It holds everything a receipt needs so consumers never
// query the primary database.
type BookingConfirmedEvent struct {
	BookingID    string   `json:"booking_id"`
	UserID       string   `json:"user_id"`
	ShowID       string   `json:"show_id"`
	ShowTitle    string   `json:"show_title"`
	ScheduleTime string   `json:"schedule_time,omitempty"`
	Seats        []string `json:"seats"`
	AmountCents  int64    `json:"amount_cents"`
	PaymentRef   string   `json:"payment_ref"`
	ConfirmedAt  string   `json:"confirmed_at"`
}

// BookingExpiredEvent is published when a pending booking is reclaimed.
type BookingExpiredEvent struct {
	BookingID string   `json:"booking_id"`
	UserID    string   `json:"user_id"`
	ShowID    string   `json:"show_id"`
	Seats     []string `json:"seats"`
	ExpiredAt string   `json:"expired_at"`
}

// LatePaymentEvent reports a payment that arrived for an expired booking.
// Refunds are handled out of band by whoever consumes payment.late.
type LatePaymentEvent struct {
	BookingID   string `json:"booking_id"`
	UserID      string `json:"user_id"`
	PaymentRef  string `json:"payment_ref"`
	AmountCents int64  `json:"amount_cents"`
	ExpiredAt   string `json:"expired_at,omitempty"`
	ReceivedAt  string `json:"received_at"`
}

func newBookingConfirmedEvent(b model.Booking, s model.Show) BookingConfirmedEvent {
	ev := BookingConfirmedEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		ShowTitle:   s.Title,
		Seats:       b.Seats,
		AmountCents: b.AmountCents,
		PaymentRef:  deref(b.PaymentRef),
		ConfirmedAt: stamp(b.ConfirmedAt, b.UpdatedAt),
	}
	if !s.ScheduleTime.IsZero() {
		ev.ScheduleTime = s.ScheduleTime.UTC().Format(time.RFC3339)
	}
	return ev
}

func newBookingExpiredEvent(b model.Booking) BookingExpiredEvent {
	return BookingExpiredEvent{
		BookingID: b.ID,
		UserID:    b.UserID,
		ShowID:    b.ShowID,
		Seats:     b.Seats,
		ExpiredAt: stamp(b.ExpiredAt, b.UpdatedAt),
	}
}

func newLatePaymentEvent(b model.Booking, now time.Time) LatePaymentEvent {
	ev := LatePaymentEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		PaymentRef:  deref(b.PaymentRef),
		AmountCents: b.AmountCents,
		ReceivedAt:  now.UTC().Format(time.RFC3339),
	}
	if b.ExpiredAt != nil {
		ev.ExpiredAt = b.ExpiredAt.UTC().Format(time.RFC3339)
	}
	return ev
}

func stamp(at *time.Time, fallback time.Time) string {
	if at != nil {
		return at.UTC().Format(time.RFC3339)
	}
	return fallback.UTC().Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
