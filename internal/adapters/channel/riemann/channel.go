// Package riemann implements the delivery channel over a persistent Riemann
// TCP connection.
package riemann

import (
	"context"
	"fmt"
	"time"

	riemanngo "github.com/riemann/riemann-go-client"
	"go.uber.org/zap"

	"github.com/dlobue/metrics-riemann/internal/domain"
	"github.com/dlobue/metrics-riemann/internal/ports"
)

const (
	defaultTimeout        = 5 * time.Second
	defaultMaxBatchEvents = 8192
)

// Channel keeps one TCP connection to a Riemann collector across report
// cycles. The wrapped client does not expose connection state, so the
// channel tracks its own flag: Connect is a no-op while the flag is up, and
// an I/O failure on send takes it down so the next cycle re-dials. Not safe
// for concurrent use; cycles are expected to be serialized.
type Channel struct {
	client    riemanngo.Client
	maxBatch  int
	connected bool
	log       *zap.Logger
}

var _ ports.Channel = (*Channel)(nil)

// Option tweaks a Channel at construction.
type Option func(*Channel)

// WithLogger replaces the no-op default logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Channel) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxBatchEvents caps how many events one send may carry. Oversized
// batches fail with *domain.BatchTooLargeError before any network use.
func WithMaxBatchEvents(n int) Option {
	return func(c *Channel) { c.maxBatch = n }
}

// New prepares a channel for the given collector address. Nothing is dialed
// until the first Connect.
func New(addr string, timeout time.Duration, opts ...Option) *Channel {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Channel{
		client:   riemanngo.NewTCPClient(addr, timeout),
		maxBatch: defaultMaxBatchEvents,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// IsConnected reports whether the channel believes its connection is open.
func (c *Channel) IsConnected() bool { return c.connected }

// Connect dials the collector if not already connected.
func (c *Channel) Connect() error {
	if c.connected {
		return nil
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect riemann: %w", err)
	}
	c.log.Debug("riemann connection established")
	c.connected = true
	return nil
}

// SendEventsWithAck submits the batch in a single round trip and reports
// whether the collector acknowledged it.
func (c *Channel) SendEventsWithAck(ctx context.Context, events []domain.Event) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !c.connected {
		return false, domain.ErrNotConnected
	}
	if c.maxBatch > 0 && len(events) > c.maxBatch {
		return false, &domain.BatchTooLargeError{Events: len(events), Limit: c.maxBatch}
	}

	batch := make([]riemanngo.Event, len(events))
	for i, ev := range events {
		batch[i] = toWire(ev)
	}

	msg, err := riemanngo.SendEvents(c.client, &batch)
	if err != nil {
		// Some client versions surface a server rejection as an error
		// alongside the response message; that is not a connection
		// problem.
		if msg != nil && !msg.GetOk() && msg.GetError() != "" {
			return false, &domain.ServerError{Reason: msg.GetError()}
		}
		c.connected = false
		return false, fmt.Errorf("send events: %w", err)
	}
	if msg == nil {
		return false, nil
	}
	if !msg.GetOk() {
		if reason := msg.GetError(); reason != "" {
			return false, &domain.ServerError{Reason: reason}
		}
		return false, nil
	}
	return true, nil
}

// Close tears the connection down. The channel can be reused: the next
// Connect re-dials.
func (c *Channel) Close() error {
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.client.Close()
}

func toWire(ev domain.Event) riemanngo.Event {
	return riemanngo.Event{
		Service: ev.Service,
		Host:    ev.Host,
		Metric:  ev.Metric,
		Time:    time.Unix(ev.Time, 0),
		Tags:    ev.Tags,
		TTL:     time.Duration(float64(ev.TTL) * float64(time.Second)),
	}
}
