package queue

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
)

// Mailer delivers booking receipts.  SMTP delivery lives outside this
// service; LogMailer stands in for it.
type Mailer interface {
	SendConfirmation(ctx context.Context, ev BookingConfirmedEvent) error
}

// LogMailer writes the receipt it would have sent to the log.
type LogMailer struct {
	Log logrus.FieldLogger
}

func (m LogMailer) SendConfirmation(_ context.Context, ev BookingConfirmedEvent) error {
	log := m.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log.WithFields(logrus.Fields{
		"to":         ev.UserID,
		"booking_id": ev.BookingID,
		"show":       ev.ShowTitle,
		"seats":      strings.Join(ev.Seats, ","),
	}).Info("booking receipt sent")
	return nil
}
