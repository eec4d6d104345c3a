package events

import (
	"context"
	"log/slog"
	"testing"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel/propagation"
)

func TestDisabledPublisher(t *testing.T) {
	p, err := Connect("", slog.Default())
	if err != nil {
		t.Fatalf("empty URL must not error: %v", err)
	}
	if p.Enabled() {
		t.Error("empty URL must yield a disabled publisher")
	}
	// Must not panic.
	p.Emit(context.Background(), "medisense.rag.query", map[string]int{"x": 1})
	p.Close()
}

func TestNilPublisherIsSafe(t *testing.T) {
	var p *Publisher
	if p.Enabled() {
		t.Error("nil publisher must report disabled")
	}
	p.Emit(context.Background(), "subject", struct{}{})
	p.Close()
}

func TestMsgCarrier(t *testing.T) {
	msg := &nats.Msg{Subject: "s"}
	c := (*msgCarrier)(msg)

	if got := c.Get("traceparent"); got != "" {
		t.Errorf("empty header Get = %q", got)
	}
	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get after Set = %q", got)
	}
	if keys := c.Keys(); len(keys) != 1 {
		t.Errorf("Keys = %v", keys)
	}

	// The carrier satisfies the propagation interface.
	var _ propagation.TextMapCarrier = c
}
