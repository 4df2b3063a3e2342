package modelregistry

import (
	"context"
	"encoding/json"
	"time"
)

// EventPublisher is the narrow slice of the bus adapter this package
// needs. internal/bus.Adapter satisfies it directly.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

const modelUpdatesChannel = "omni.model.updates"

type deployedEvent struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Performance float64   `json:"performance"`
	Timestamp   time.Time `json:"timestamp"`
}

type rolledBackEvent struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *Registry) publishDeployed(ctx context.Context, m *Model) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(deployedEvent{
		Type:        "model_deployed",
		Name:        m.Name,
		Version:     m.Version.String(),
		Performance: m.CurrentPerformance,
		Timestamp:   time.Now().UTC(),
	})
	if err != nil {
		return
	}
	_ = r.publisher.Publish(ctx, modelUpdatesChannel, payload)
}

func (r *Registry) publishRolledBack(ctx context.Context, m *Model) {
	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(rolledBackEvent{
		Type:      "model_rolled_back",
		Name:      m.Name,
		Version:   m.Version.String(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return
	}
	_ = r.publisher.Publish(ctx, modelUpdatesChannel, payload)
}
