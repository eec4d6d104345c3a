// Package events publishes query telemetry over NATS. The publisher is
// fire-and-forget: a nil or disconnected publisher never fails a request.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// msgCarrier adapts NATS message headers to the OTel TextMapCarrier.
type msgCarrier nats.Msg

func (c *msgCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *msgCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *msgCarrier) Keys() []string {
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher emits JSON events to a NATS subject with trace headers attached.
// The zero value is a disabled publisher whose Emit is a no-op.
type Publisher struct {
	nc  *nats.Conn
	log *slog.Logger
}

// Connect dials NATS and returns a live publisher. An empty URL returns a
// disabled publisher and no error, so telemetry stays optional.
func Connect(url string, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	if url == "" {
		return &Publisher{log: log}, nil
	}
	nc, err := nats.Connect(url, nats.Name("medisense-api"))
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	return &Publisher{nc: nc, log: log}, nil
}

// NewPublisher wraps an existing connection; used by tests.
func NewPublisher(nc *nats.Conn, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{nc: nc, log: log}
}

// Enabled reports whether events will actually leave the process.
func (p *Publisher) Enabled() bool {
	return p != nil && p.nc != nil
}

// Emit marshals v and publishes it to subject. Failures are logged, never
// returned: telemetry must not affect the request path.
func (p *Publisher) Emit(ctx context.Context, subject string, v any) {
	if !p.Enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		p.log.Warn("event marshal failed", "subject", subject, "err", err)
		return
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*msgCarrier)(msg))
	if err := p.nc.PublishMsg(msg); err != nil {
		p.log.Warn("event publish failed", "subject", subject, "err", err)
	}
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.Enabled() {
		p.nc.Drain()
	}
}

// Subscribe registers a handler for JSON events of type T on subject. Trace
// context is restored from message headers; malformed payloads are dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*msgCarrier)(msg))
		handler(ctx, v)
	})
}
