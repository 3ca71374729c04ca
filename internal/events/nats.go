package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// HeaderEventID carries the event id so consumers can deduplicate without decoding.
const HeaderEventID = "Murmur-Event-Id"

// drainTimeout bounds how long Close waits for pending messages.
const drainTimeout = 10 * time.Second

type msgPublisher interface {
	PublishMsg(msg *nats.Msg) error
}

// drainer is the part of *nats.Conn used on shutdown.
type drainer interface {
	FlushTimeout(timeout time.Duration) error
	Drain() error
	Close()
}

// NATSPublisher publishes events as JSON on core NATS subjects, with the
// trace context of the request in the message headers.
type NATSPublisher struct {
	conn      msgPublisher
	close     func() error
	connected func() bool
	prefix    string
	logger    *slog.Logger
}

// Connect dials url and returns a publisher using subjects under prefix.
func Connect(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	closed := make(chan struct{})
	nc, err := nats.Connect(url,
		nats.Name("murmur-server"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	p := newNATSPublisher(nc, prefix, logger)
	p.connected = nc.IsConnected
	p.close = func() error {
		return drainAndWait(nc, closed, drainTimeout, logger)
	}
	return p, nil
}

// drainAndWait flushes pending publishes, starts a drain and blocks until the
// connection reports closed. Drain is asynchronous, so returning earlier could
// let the process exit with messages still buffered.
func drainAndWait(conn drainer, closed <-chan struct{}, timeout time.Duration, logger *slog.Logger) error {
	if err := conn.FlushTimeout(timeout); err != nil {
		logger.Warn("NATS flush failed", "error", err)
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-closed:
		return nil
	case <-timer.C:
		conn.Close()
		return fmt.Errorf("drain nats: not closed after %s", timeout)
	}
}

func newNATSPublisher(conn msgPublisher, prefix string, logger *slog.Logger) *NATSPublisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject an event type is published on.
func (p *NATSPublisher) Subject(typ Type) string {
	return p.prefix + "." + string(typ)
}

// Publish sends event.
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := &nats.Msg{
		Subject: p.Subject(event.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	msg.Header.Set(HeaderEventID, event.ID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}

	p.logger.DebugContext(ctx, "event published", "subject", msg.Subject, "event_id", event.ID)
	return nil
}

// Connected reports whether the broker connection is up. Publishers without a
// live connection, as in tests, always report true.
func (p *NATSPublisher) Connected() bool {
	if p.connected == nil {
		return true
	}
	return p.connected()
}

// Close flushes and drains the connection, waiting for the drain to finish.
func (p *NATSPublisher) Close() error {
	if p.close != nil {
		return p.close()
	}
	return nil
}
