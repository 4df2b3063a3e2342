package coordinator

// Channel names. Kept local to this package so Dispatch's switch and the
// Coordinator's subscribe loop share one source of truth independent of
// internal/bus's routing table (which only cares about backend
// assignment, not semantics).
const (
	learningEventsChannel  = "omni.learning.events"
	experiencesChannel     = "omni.rl.experiences"
	rewardsChannel         = "omni.rl.rewards"
	actionsChannel         = "omni.rl.actions"
	learningRequestChannel = "omni.rl.learning"
	inferenceChannel       = "omni.rl.inference"
	modelUpdatesChannel    = "omni.model.updates"
	workflowsChannel       = "omni.workflows"
	metricsChannel         = "omni.performance.metrics"
)

// consumedChannels are subscribed to at startup.
var consumedChannels = []string{
	learningEventsChannel,
	experiencesChannel,
	rewardsChannel,
	actionsChannel,
	learningRequestChannel,
	inferenceChannel,
}
