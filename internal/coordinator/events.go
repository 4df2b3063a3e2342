package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/expbuffer"
	"github.com/codeready-toolchain/cladc/internal/improvement"
)

// learningEventPayload mirrors the JSON shape consumed on
// omni.learning.events.
type learningEventPayload struct {
	Angel     string             `json:"angel"`
	Domain    string             `json:"domain"`
	Input     any                `json:"input"`
	Output    eventstore.Output  `json:"output"`
	Metrics   map[string]float64 `json:"metrics"`
	Timestamp time.Time          `json:"timestamp"`
}

// experiencePayload mirrors omni.rl.experiences.
type experiencePayload struct {
	Algorithm string    `json:"algorithm"`
	State     any       `json:"state"`
	Action    any       `json:"action"`
	Reward    float64   `json:"reward"`
	NextState any       `json:"next_state"`
	Timestamp time.Time `json:"timestamp"`
}

// rewardPayload mirrors omni.rl.rewards: `{agent_id, reward, t}`.
type rewardPayload struct {
	AgentID string    `json:"agent_id"`
	Reward  float64   `json:"reward"`
	T       time.Time `json:"t"`
}

// actionPayload mirrors omni.rl.actions (bidirectional):
// `{agent_id, algorithm, action, confidence?}`.
type actionPayload struct {
	AgentID    string   `json:"agent_id"`
	Algorithm  string   `json:"algorithm"`
	Action     any      `json:"action"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// learningRequestPayload mirrors omni.rl.learning: `{algorithm, config}` —
// triggers a learning request, routed to the improvement pipeline keyed by
// algorithm name (one model per RL algorithm).
type learningRequestPayload struct {
	Algorithm string         `json:"algorithm"`
	Config    map[string]any `json:"config"`
}

// inferencePayload mirrors omni.rl.inference: `{algorithm, state}` — the
// response is published back on omni.rl.actions.
type inferencePayload struct {
	Algorithm string `json:"algorithm"`
	State     any    `json:"state"`
}

// typeDiscriminator reads only the `type` field of a payload: every
// payload is UTF-8 JSON with a top-level type discriminator.
type typeDiscriminator struct {
	Type string `json:"type"`
}

// Dispatcher translates inbound bus payloads into calls against the
// event store, experience buffer, and improvement pipeline, and
// publishes inference results back onto omni.rl.actions. Every handler
// is defensive: a malformed payload is logged and dropped, never panics
// the subscription goroutine.
type Dispatcher struct {
	events      *eventstore.Store
	buffer      *expbuffer.Buffer
	pipeline    *improvement.Pipeline
	rl          capability.RLCapability
	publishFunc func(ctx context.Context, channel string, payload []byte) error
}

// NewDispatcher wires the components the Coordinator hands bus payloads
// to.
func NewDispatcher(events *eventstore.Store, buffer *expbuffer.Buffer, pipeline *improvement.Pipeline, rl capability.RLCapability, publish func(ctx context.Context, channel string, payload []byte) error) *Dispatcher {
	return &Dispatcher{events: events, buffer: buffer, pipeline: pipeline, rl: rl, publishFunc: publish}
}

// HandleLearningEvents is the Handler for omni.learning.events.
func (d *Dispatcher) HandleLearningEvents(ctx context.Context, channel string, payload []byte) {
	var p learningEventPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("coordinator: malformed learning event, dropping", "channel", channel, "error", err)
		return
	}
	if _, err := d.events.Append(eventstore.LearningEvent{
		Angel: p.Angel, Domain: p.Domain, Input: p.Input, Output: p.Output,
		Metrics: p.Metrics, Timestamp: p.Timestamp,
	}); err != nil {
		slog.Warn("coordinator: failed to append learning event", "error", err)
	}
}

// HandleExperiences is the Handler for omni.rl.experiences.
func (d *Dispatcher) HandleExperiences(_ context.Context, channel string, payload []byte) {
	var p experiencePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("coordinator: malformed experience, dropping", "channel", channel, "error", err)
		return
	}
	d.buffer.Enqueue(capability.Experience{
		Algorithm: p.Algorithm, State: p.State, Action: p.Action,
		Reward: p.Reward, NextState: p.NextState, Timestamp: p.Timestamp,
	})
}

// HandleRewards is the Handler for omni.rl.rewards: a reward signal that
// arrives asynchronously from the action it corresponds to, recorded as a
// standalone partial experience so the RL capability still observes it on
// the next batch.
func (d *Dispatcher) HandleRewards(_ context.Context, channel string, payload []byte) {
	var p rewardPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("coordinator: malformed reward, dropping", "channel", channel, "error", err)
		return
	}
	d.buffer.Enqueue(capability.Experience{
		Algorithm: p.AgentID, Reward: p.Reward, Timestamp: p.T,
	})
}

// HandleActions is the Handler for the consume direction of
// omni.rl.actions: an externally-taken action recorded for learning.
func (d *Dispatcher) HandleActions(_ context.Context, channel string, payload []byte) {
	var p actionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("coordinator: malformed action, dropping", "channel", channel, "error", err)
		return
	}
	d.buffer.Enqueue(capability.Experience{
		Algorithm: p.Algorithm, Action: p.Action, Timestamp: time.Now().UTC(),
	})
}

// HandleLearningRequest is the Handler for omni.rl.learning: `{algorithm,
// config}` triggers a manual improvement request for that algorithm's
// model.
func (d *Dispatcher) HandleLearningRequest(ctx context.Context, channel string, payload []byte) {
	var p learningRequestPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("coordinator: malformed learning request, dropping", "channel", channel, "error", err)
		return
	}
	if p.Algorithm == "" {
		slog.Warn("coordinator: learning request missing algorithm, dropping")
		return
	}
	if _, err := d.pipeline.TriggerManualRequest(ctx, p.Algorithm); err != nil {
		slog.Warn("coordinator: failed to trigger learning request", "algorithm", p.Algorithm, "error", err)
	}
}

// HandleInference is the Handler for omni.rl.inference: infers an action
// and republishes it on omni.rl.actions.
func (d *Dispatcher) HandleInference(ctx context.Context, channel string, payload []byte) {
	var p inferencePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		slog.Warn("coordinator: malformed inference request, dropping", "channel", channel, "error", err)
		return
	}
	deadlineCtx, cancel := context.WithTimeout(ctx, capability.InferDeadline)
	defer cancel()
	action, err := d.rl.Infer(deadlineCtx, p.Algorithm, p.State)
	if err != nil {
		slog.Warn("coordinator: inference failed", "algorithm", p.Algorithm, "error", err)
		return
	}
	out, err := json.Marshal(actionPayload{Algorithm: p.Algorithm, Action: action})
	if err != nil {
		return
	}
	if d.publishFunc == nil {
		return
	}
	if err := d.publishFunc(ctx, actionsChannel, out); err != nil {
		slog.Warn("coordinator: failed to publish inferred action", "error", err)
	}
}

// Dispatch routes an inbound payload based on its channel, warning and
// dropping anything it does not recognize so new channel producers
// don't break older deployments.
func (d *Dispatcher) Dispatch(ctx context.Context, channel string, payload []byte) {
	switch channel {
	case learningEventsChannel:
		d.HandleLearningEvents(ctx, channel, payload)
	case experiencesChannel:
		d.HandleExperiences(ctx, channel, payload)
	case rewardsChannel:
		d.HandleRewards(ctx, channel, payload)
	case actionsChannel:
		d.HandleActions(ctx, channel, payload)
	case learningRequestChannel:
		d.HandleLearningRequest(ctx, channel, payload)
	case inferenceChannel:
		d.HandleInference(ctx, channel, payload)
	default:
		var disc typeDiscriminator
		_ = json.Unmarshal(payload, &disc)
		slog.Warn("coordinator: no handler for channel, ignoring", "channel", channel, "type", disc.Type)
	}
}
