package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/model"
)

const (
	dialTimeout   = 2 * time.Second
	dialCoolDown  = 15 * time.Second
	publishBuffer = 1024
)

var (
	// ErrBrokerUnavailable is returned while the publisher waits out the
	// cool-down after a failed dial.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrBufferFull is returned when an event is dropped because Run is
	// not keeping up.
	ErrBufferFull = errors.New("event buffer full")
)

type outbound struct {
	queue string
	event any
}

// Publisher sends lifecycle events to RabbitMQ as persistent JSON messages.
// The EventSink methods only enqueue; Run drains the buffer on its own
// goroutine so a slow or absent broker never delays a booking operation.
// The connection is opened lazily, and after a failed dial no new attempt
// is made until the cool-down has passed.
type Publisher struct {
	url      string
	log      logrus.FieldLogger
	now      func() time.Time
	dial     func(url string) (*amqp.Connection, error)
	coolDown time.Duration
	pending  chan outbound

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared map[string]bool
	retryAt  time.Time
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string, log logrus.FieldLogger) *Publisher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		url:      url,
		log:      log.WithField("component", "publisher"),
		now:      time.Now,
		dial:     dialBroker,
		coolDown: dialCoolDown,
		pending:  make(chan outbound, publishBuffer),
		declared: make(map[string]bool),
	}
}

func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}

func (p *Publisher) BookingConfirmed(_ context.Context, b model.Booking, s model.Show) error {
	return p.enqueue(QueueBookingConfirmed, newBookingConfirmedEvent(b, s))
}

func (p *Publisher) BookingExpired(_ context.Context, b model.Booking) error {
	return p.enqueue(QueueBookingExpired, newBookingExpiredEvent(b))
}

func (p *Publisher) LatePayment(_ context.Context, b model.Booking) error {
	return p.enqueue(QueuePaymentLate, newLatePaymentEvent(b, p.now()))
}

func (p *Publisher) enqueue(queue string, event any) error {
	select {
	case p.pending <- outbound{queue: queue, event: event}:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrBufferFull, queue)
	}
}

// Run publishes buffered events until ctx is done, then makes one
// best-effort pass over whatever is still queued.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.flush()
			p.log.Info("event publisher stopped")
			return
		case ev := <-p.pending:
			if err := p.Publish(ctx, ev.queue, ev.event); err != nil {
				p.log.WithError(err).WithField("queue", ev.queue).Warn("event not published")
			}
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-p.pending:
			if err := p.Publish(ctx, ev.queue, ev.event); err != nil {
				p.log.WithError(err).WithField("queue", ev.queue).Warn("event not published")
			}
		default:
			return
		}
	}
}

// Publish marshals v and sends it to queue.
func (p *Publisher) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(queue)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", queue, err)
	}
	p.log.WithField("queue", queue).Debug("event published")
	return nil
}

// channel returns an open channel with queue declared.  Caller holds mu.
func (p *Publisher) channel(queue string) (*amqp.Channel, error) {
	if p.ch == nil || p.ch.IsClosed() {
		p.reset()
		if now := p.now(); now.Before(p.retryAt) {
			return nil, fmt.Errorf("%w: next dial in %s", ErrBrokerUnavailable, p.retryAt.Sub(now).Round(time.Second))
		}
		conn, err := p.dial(p.url)
		if err != nil {
			p.retryAt = p.now().Add(p.coolDown)
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			p.retryAt = p.now().Add(p.coolDown)
			return nil, fmt.Errorf("open channel: %w", err)
		}
		p.conn, p.ch = conn, ch
	}
	if !p.declared[queue] {
		if _, err := p.ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			p.reset()
			return nil, fmt.Errorf("declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}
	return p.ch, nil
}

// reset drops the current connection.  Caller holds mu.
func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
	p.declared = make(map[string]bool)
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
