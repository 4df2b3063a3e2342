package bus

import (
	"context"
	"fmt"
	"sync"
)

// amqpLikeBackend models a durable-queue broker: subscribers on the same
// channel form a single competing-consumer group, so each message is
// delivered to exactly one of them (round-robin).
type amqpLikeBackend struct {
	*memoryBroker
	countersMu sync.Mutex
	counters   map[string]uint64
}

func newAMQPLikeBackend(dialer Dialer) *amqpLikeBackend {
	return &amqpLikeBackend{
		memoryBroker: newMemoryBroker("amqp-like", dialer),
		counters:     make(map[string]uint64),
	}
}

func (a *amqpLikeBackend) name() string { return "amqp-like" }

func (a *amqpLikeBackend) publish(ctx context.Context, channel string, payload []byte) error {
	if !a.connected() {
		return fmt.Errorf("amqp-like backend disconnected")
	}
	subs := a.snapshot(channel)
	if len(subs) == 0 {
		return nil
	}
	a.countersMu.Lock()
	a.counters[channel]++
	idx := a.counters[channel] % uint64(len(subs))
	a.countersMu.Unlock()
	subs[idx].handler(ctx, channel, payload)
	return nil
}

func (a *amqpLikeBackend) subscribe(_ context.Context, channel string, handler Handler) (CancelFunc, error) {
	return a.addSubscriber(channel, handler), nil
}
