package bus

// RoutingTable maps a logical dotted channel name to the backend it is
// carried on. The adapter maps a single logical channel to backend-
// specific primitives; the coordinator chooses the backend per channel
// via this static table.
type RoutingTable map[string]BackendKind

// BackendKind names which backend flavor carries a channel.
type BackendKind string

const (
	KafkaLike BackendKind = "kafka_like"
	AMQPLike  BackendKind = "amqp_like"
)

// DefaultRoutingTable assigns every channel the system uses. High
// fan-out telemetry/event streams go to the topic-semantics backend;
// work-item channels needing competing consumers go to the queue-
// semantics backend.
func DefaultRoutingTable() RoutingTable {
	return RoutingTable{
		"omni.learning.events":     KafkaLike,
		"omni.rl.experiences":      KafkaLike,
		"omni.rl.rewards":          KafkaLike,
		"omni.rl.actions":          KafkaLike,
		"omni.rl.learning":         AMQPLike,
		"omni.rl.inference":        AMQPLike,
		"omni.model.updates":       KafkaLike,
		"omni.workflows":           KafkaLike,
		"omni.performance.metrics": KafkaLike,
	}
}
