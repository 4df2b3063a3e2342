package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
)

// Adapter is a single Bus implementation that routes logical channels to
// one of two backend flavors via a static RoutingTable, and exposes
// uniform health/reconnect semantics.
type Adapter struct {
	routing RoutingTable
	kafka   *kafkaLikeBackend
	amqp    *amqpLikeBackend
}

// NewAdapter wires the two backend simulations behind their dialers. In
// production wiring, the dialers would establish real connections; here
// they model two heterogeneous message buses as an external collaborator
// whose concrete client is out of scope for this package.
func NewAdapter(routing RoutingTable, kafkaDialer, amqpDialer Dialer) *Adapter {
	return &Adapter{
		routing: routing,
		kafka:   newKafkaLikeBackend(kafkaDialer),
		amqp:    newAMQPLikeBackend(amqpDialer),
	}
}

func (a *Adapter) backendFor(channel string) (backend, error) {
	kind, ok := a.routing[channel]
	if !ok {
		return nil, cladcerr.New(cladcerr.NotFound, "bus", fmt.Sprintf("no route for channel %q", channel))
	}
	switch kind {
	case KafkaLike:
		return a.kafka, nil
	case AMQPLike:
		return a.amqp, nil
	default:
		return nil, cladcerr.New(cladcerr.Fatal, "bus", fmt.Sprintf("unknown backend kind %q", kind))
	}
}

// Publish implements Bus. Failure modes: BusUnavailable if the routed
// backend is down (after attempting a reconnect), Serialization is the
// caller's responsibility (encoding happens before Publish is called).
func (a *Adapter) Publish(ctx context.Context, channel string, payload []byte) error {
	be, err := a.backendFor(channel)
	if err != nil {
		return err
	}
	if !be.connected() {
		if rerr := be.reconnect(ctx); rerr != nil {
			return cladcerr.Wrap(cladcerr.BusUnavailable, "bus",
				fmt.Sprintf("backend %s unavailable for channel %q", be.name(), channel), rerr)
		}
	}
	if err := be.publish(ctx, channel, payload); err != nil {
		return cladcerr.Wrap(cladcerr.BusUnavailable, "bus",
			fmt.Sprintf("publish to %q failed", channel), err)
	}
	return nil
}

// Subscribe implements Bus. Subscriptions survive backend disconnects —
// delivery simply resumes once the backend reconnects (no re-subscribe
// required), since the backend's subscriber map is independent of its
// connection state.
func (a *Adapter) Subscribe(ctx context.Context, channel string, handler Handler) (CancelFunc, error) {
	be, err := a.backendFor(channel)
	if err != nil {
		return nil, err
	}
	cancel, err := be.subscribe(ctx, channel, handler)
	if err != nil {
		return nil, cladcerr.Wrap(cladcerr.BusUnavailable, "bus", "subscribe failed", err)
	}
	slog.Info("subscribed to channel", "channel", channel, "backend", be.name())
	return cancel, nil
}

// Health implements Bus, attempting reconnects on both backends first.
func (a *Adapter) Health(ctx context.Context) Status {
	if !a.kafka.connected() {
		_ = a.kafka.reconnect(ctx)
	}
	if !a.amqp.connected() {
		_ = a.amqp.reconnect(ctx)
	}
	return Status{
		KafkaConnected: a.kafka.connected(),
		AMQPConnected:  a.amqp.connected(),
		LastError:      firstNonEmpty(a.kafka.lastError(), a.amqp.lastError()),
	}
}

// DisconnectForTesting forcibly marks a backend disconnected, used by
// monitoring/incident tests to exercise the reconnect auto-recovery path.
func (a *Adapter) DisconnectForTesting(kind BackendKind, reason string) {
	switch kind {
	case KafkaLike:
		a.kafka.markDisconnected(reason)
	case AMQPLike:
		a.amqp.markDisconnected(reason)
	}
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ Bus = (*Adapter)(nil)
