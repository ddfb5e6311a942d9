package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Consumer listens on booking.confirmed, appends each event to
// <dir>/booking.log and sends the receipt through the Mailer.
type Consumer struct {
	url    string
	dir    string
	mailer Mailer
	log    logrus.FieldLogger

	mu sync.Mutex // serialises appends to booking.log
}

// NewConsumer returns a Consumer writing under dir.
func NewConsumer(url, dir string, mailer Mailer, log logrus.FieldLogger) *Consumer {
	if dir == "" {
		dir = "logs"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if mailer == nil {
		mailer = LogMailer{Log: log}
	}
	return &Consumer{url: url, dir: dir, mailer: mailer, log: log.WithField("component", "booking-consumer")}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff capped at 30s.
func (c *Consumer) Run(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).WithField("retry_in", backoff.String()).Warn("dial broker failed")
			if !sleep(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			break
		}
		c.log.WithError(err).Warn("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return
		}
	}
	c.log.Info("booking consumer stopped")
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.WithError(err).Warn("set qos failed")
	}
	if _, err := ch.QueueDeclare(QueueBookingConfirmed, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, QueueBookingConfirmed, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	c.log.WithField("queue", QueueBookingConfirmed).Info("booking consumer listening")
	for d := range msgs {
		if err := c.HandleMessage(ctx, d.Body); err != nil {
			c.log.WithError(err).Error("handle message failed")
			_ = d.Nack(false, false) // no requeue: a poison message would spin
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// HandleMessage processes one booking.confirmed payload.  Mailer failures
// are logged; the log line is already written at that point.
func (c *Consumer) HandleMessage(ctx context.Context, body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == "" {
		return errors.New("event without booking id")
	}
	if err := c.appendLog(ev); err != nil {
		return err
	}
	if err := c.mailer.SendConfirmation(ctx, ev); err != nil {
		c.log.WithError(err).WithField("booking_id", ev.BookingID).Warn("send receipt failed")
	}
	return nil
}

func (c *Consumer) appendLog(ev BookingConfirmedEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatConfirmed(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func formatConfirmed(ev BookingConfirmedEvent) string {
	return fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | user_id=%s | show_id=%s | show=%q | total=%d cents | seats=[%s] | payment_ref=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.ShowID, ev.ShowTitle, ev.AmountCents, strings.Join(ev.Seats, ","), ev.PaymentRef)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
