// Package bus implements an abstract messaging contract: a uniform
// publish/subscribe surface over two backends with different delivery
// semantics. The concrete message-bus clients (a real Kafka-like broker
// and a real AMQP-like broker) are out of scope — this package only owns
// the Adapter that routes logical channels to one of two backend
// implementations and manages their health/reconnection.
package bus

import (
	"context"
	"time"
)

// Handler processes a single message delivered on a channel. It returns
// nothing, so a handler deals with its own processing failures; the
// backend does not retry a delivery, and delivery of subsequent messages
// continues regardless.
type Handler func(ctx context.Context, channel string, payload []byte)

// CancelFunc stops a subscription when called. Idempotent.
type CancelFunc func()

// Status reports connectivity for both backends.
type Status struct {
	KafkaConnected bool
	AMQPConnected  bool
	LastError      string
}

// Bus is the abstract contract every component depends on. Components
// never depend on a concrete backend.
type Bus interface {
	// Publish is best-effort; no retries at this layer.
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe registers a durable consumer. Delivery is at-least-once;
	// ordering within one channel is preserved per-backend only.
	Subscribe(ctx context.Context, channel string, handler Handler) (CancelFunc, error)
	// Health reports backend connectivity.
	Health(ctx context.Context) Status
}

// backend is the uniform interface the Adapter drives underneath a logical
// channel, implemented twice (kafka-like, amqp-like) with different
// internal delivery semantics but the same external shape.
type backend interface {
	name() string
	publish(ctx context.Context, channel string, payload []byte) error
	subscribe(ctx context.Context, channel string, handler Handler) (CancelFunc, error)
	connected() bool
	lastError() string
	// reconnect is attempted on every publish and every health() call,
	// bounded by exponential backoff.
	reconnect(ctx context.Context) error
}

// reconnectDeadline bounds how long a single reconnect attempt may block
// the calling publish/health call.
const reconnectDeadline = 5 * time.Second
