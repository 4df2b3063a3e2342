package bus

import (
	"context"
	"fmt"
)

// kafkaLikeBackend models a topic-based broker: every subscriber on a
// channel receives every message independently (broadcast fan-out).
type kafkaLikeBackend struct {
	*memoryBroker
}

func newKafkaLikeBackend(dialer Dialer) *kafkaLikeBackend {
	return &kafkaLikeBackend{memoryBroker: newMemoryBroker("kafka-like", dialer)}
}

func (k *kafkaLikeBackend) name() string { return "kafka-like" }

func (k *kafkaLikeBackend) publish(ctx context.Context, channel string, payload []byte) error {
	if !k.connected() {
		return fmt.Errorf("kafka-like backend disconnected")
	}
	for _, sub := range k.snapshot(channel) {
		sub.handler(ctx, channel, payload)
	}
	return nil
}

func (k *kafkaLikeBackend) subscribe(_ context.Context, channel string, handler Handler) (CancelFunc, error) {
	return k.addSubscriber(channel, handler), nil
}
