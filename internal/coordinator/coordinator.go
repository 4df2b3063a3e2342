package coordinator

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/cladc/internal/bus"
	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/config"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/expbuffer"
	"github.com/codeready-toolchain/cladc/internal/improvement"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/notify"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

// componentName labels used in the ComponentRegistry, one per module the
// Coordinator sequences at startup.
const (
	compBus         = "bus"
	compEventStore  = "eventstore"
	compExpBuffer   = "expbuffer"
	compModelReg    = "modelregistry"
	compImprovement = "improvement"
	compMonitoring  = "monitoring"
	compReporting   = "reporting"
)

// Coordinator owns the process lifecycle and is the internal event hub.
// Every collaborator is constructed by the caller and handed in fully
// formed; the Coordinator only sequences startup, runs the periodic
// loops, and translates between the bus and the rest of the system.
type Coordinator struct {
	cfg       *config.Config
	bus       bus.Bus
	snapshots SnapshotStore
	registry  *ComponentRegistry

	events     *eventstore.Store
	buffer     *expbuffer.Buffer
	models     *modelregistry.Registry
	pipeline   *improvement.Pipeline
	metrics    *monitoring.Collector
	alerts     *monitoring.AlertBook
	incidents  *monitoring.IncidentBook
	reports    *reporting.Generator
	schedule   *reporting.Scheduler
	docs       *reporting.DocStore
	notifier   *notify.EscalationNotifier
	dispatcher *Dispatcher

	unsubscribe []bus.CancelFunc
	stopCh      chan struct{}
	wg          sync.WaitGroup
}

// Deps bundles every collaborator the Coordinator sequences and drives.
// All fields are required except Snapshots, which may be nil to run with
// no persistence (tests, or a deliberately ephemeral deployment).
type Deps struct {
	Config    *config.Config
	Bus       bus.Bus
	Snapshots SnapshotStore

	Events    *eventstore.Store
	Buffer    *expbuffer.Buffer
	Models    *modelregistry.Registry
	Pipeline  *improvement.Pipeline
	Metrics   *monitoring.Collector
	Alerts    *monitoring.AlertBook
	Incidents *monitoring.IncidentBook
	Reports   *reporting.Generator
	Schedule  *reporting.Scheduler
	Docs      *reporting.DocStore
	RL        capability.RLCapability
	// Notifier delivers escalation-target notifications configured via
	// EscalationRules. May be nil to run with no external delivery
	// channel configured.
	Notifier *notify.EscalationNotifier
}

// New constructs a Coordinator. It does not start anything; call Start.
func New(d Deps) *Coordinator {
	reg := NewComponentRegistry(time.Now().UTC())
	c := &Coordinator{
		cfg: d.Config, bus: d.Bus, snapshots: d.Snapshots, registry: reg,
		events: d.Events, buffer: d.Buffer, models: d.Models, pipeline: d.Pipeline,
		metrics: d.Metrics, alerts: d.Alerts, incidents: d.Incidents,
		reports: d.Reports, schedule: d.Schedule, docs: d.Docs, notifier: d.Notifier,
		stopCh: make(chan struct{}),
	}
	c.dispatcher = NewDispatcher(d.Events, d.Buffer, d.Pipeline, d.RL, d.Bus.Publish)
	if d.Incidents != nil && d.Bus != nil {
		d.Incidents.RegisterProcedure(compBus, c.recoverBus)
	}
	return c
}

// recoverBus is the auto-recovery procedure for incidents opened against
// the bus component: Health already attempts a reconnect on both
// backends, so recovery succeeds once both report connected.
func (c *Coordinator) recoverBus(ctx context.Context) error {
	status := c.bus.Health(ctx)
	if !status.KafkaConnected || !status.AMQPConnected {
		return cladcerr.New(cladcerr.BusUnavailable, "coordinator", "bus reconnect incomplete: "+status.LastError)
	}
	return nil
}

// Registry exposes the component registry for the Control API's status()
// and /health endpoints.
func (c *Coordinator) Registry() *ComponentRegistry { return c.registry }

// Start restores state, subscribes to every consumed channel, marks
// every component running, starts the improvement worker pool, and
// launches every periodic loop with a staggered initial offset.
func (c *Coordinator) Start(ctx context.Context) error {
	c.restoreSnapshots(ctx)

	for _, ch := range consumedChannels {
		ch := ch
		cancel, err := c.bus.Subscribe(ctx, ch, c.dispatcher.Dispatch)
		if err != nil {
			c.registry.Set(compBus, ComponentDegraded, err.Error())
			return cladcerr.Wrap(cladcerr.BusUnavailable, "coordinator", "subscribe failed for "+ch, err)
		}
		c.unsubscribe = append(c.unsubscribe, cancel)
	}
	c.registry.Set(compBus, ComponentRunning, "")

	c.registry.Set(compEventStore, ComponentRunning, "")
	c.registry.Set(compExpBuffer, ComponentRunning, "")
	c.registry.Set(compModelReg, ComponentRunning, "")
	c.registry.Set(compImprovement, ComponentRunning, "")
	c.registry.Set(compMonitoring, ComponentRunning, "")
	c.registry.Set(compReporting, ComponentRunning, "")

	c.pipeline.Start(ctx)

	c.startStaggeredLoop(ctx, "flush", c.cfg.FlushInterval, 0, c.runFlush)
	c.startStaggeredLoop(ctx, "improvement_sweep", c.cfg.ImprovementInterval, 2*time.Second, c.runImprovementSweep)
	c.startStaggeredLoop(ctx, "retraining_sweep", c.cfg.DeploymentInterval, 4*time.Second, c.runRetrainingSweep)
	c.startStaggeredLoop(ctx, "ab_test_sweep", c.cfg.ModelValidationInterval, 6*time.Second, c.runABTestSweep)
	c.startStaggeredLoop(ctx, "monitoring", c.cfg.MonitoringInterval, 1*time.Second, c.runMonitoring)
	c.startStaggeredLoop(ctx, "health_check", c.cfg.HealthCheckInterval, 3*time.Second, c.runHealthCheck)
	c.startStaggeredLoop(ctx, "reporting", c.cfg.ReportGenerationInterval, 5*time.Second, c.runReporting)
	c.startStaggeredLoop(ctx, "documentation", c.cfg.DocumentationUpdateInterval, 7*time.Second, c.runDocumentation)
	c.startStaggeredLoop(ctx, "retention_cleanup", c.cfg.EventRetention/7, 8*time.Second, c.runRetentionCleanup)
	c.startStaggeredLoop(ctx, "snapshot", snapshotInterval(c.cfg), 9*time.Second, c.runSnapshot)

	slog.Info("coordinator started", "loops", 10)
	return nil
}

// Stop signals every loop to exit, waits for them, and stops the worker
// pool and subscriptions. Safe to call once.
func (c *Coordinator) Stop() {
	close(c.stopCh)
	c.wg.Wait()
	c.pipeline.Stop()
	for _, cancel := range c.unsubscribe {
		cancel()
	}
	for _, name := range []string{compBus, compEventStore, compExpBuffer, compModelReg, compImprovement, compMonitoring, compReporting} {
		c.registry.Set(name, ComponentStopped, "")
	}
}

func (c *Coordinator) restoreSnapshots(ctx context.Context) {
	if c.snapshots == nil {
		return
	}
	snap, err := c.snapshots.Restore()
	if err != nil {
		slog.Warn("coordinator: snapshot restore failed, starting from empty state", "error", err)
		return
	}
	c.events.Restore(snap.Events)
	c.models.Restore(snap.Models)
	c.alerts.Restore(snap.Alerts)
	c.incidents.Restore(snap.Incidents)
	c.reports.RestoreHistory(snap.Reports)
	c.docs.Restore(snap.Docs)
	_ = ctx
}

// startStaggeredLoop launches a named ticker loop offset by initialDelay
// so the periodic loops don't all fire on the same tick and thunder the
// herd of collaborators they drive.
func (c *Coordinator) startStaggeredLoop(ctx context.Context, name string, interval, initialDelay time.Duration, fn func(context.Context)) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		select {
		case <-time.After(initialDelay):
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				loopCtx, cancel := context.WithTimeout(ctx, interval)
				c.runLoopIteration(loopCtx, name, fn)
				cancel()
			}
		}
	}()
}

// runLoopIteration recovers a panicking iteration so one misbehaving
// loop never brings down the others, logging under the loop's own name
// for traceability.
func (c *Coordinator) runLoopIteration(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("coordinator: loop iteration panicked", "loop", name, "panic", r)
		}
	}()
	fn(ctx)
}

func (c *Coordinator) runFlush(ctx context.Context) {
	c.buffer.FlushAll(ctx)
}

func (c *Coordinator) runImprovementSweep(ctx context.Context) {
	c.pipeline.RunScheduledSweep(ctx)
}

func (c *Coordinator) runRetrainingSweep(ctx context.Context) {
	c.pipeline.RunRetrainingSweep(ctx)
}

func (c *Coordinator) runABTestSweep(_ context.Context) {
	c.pipeline.RunABTestSweep()
	c.pipeline.ResolveDueABTests(time.Now().UTC())
}

func (c *Coordinator) runMonitoring(ctx context.Context) {
	now := time.Now().UTC()
	sys, err := c.metrics.SampleSystem(ctx)
	if err != nil {
		slog.Warn("coordinator: system metric sampling failed", "error", err)
		return
	}
	c.publishMetrics(ctx, sys)

	if alert := c.alerts.Evaluate("system.cpu", "cpu_percent", sys.CPUPercent, now); alert != nil {
		c.onAlert(ctx, *alert)
	}
	if alert := c.alerts.Evaluate("system.memory", "memory_fraction", sys.HeapFraction, now); alert != nil {
		c.onAlert(ctx, *alert)
	}
	for _, escalated := range c.groupEscalationsByTarget(c.alerts.EvaluateEscalations(now)) {
		c.notifier.NotifyEscalated(ctx, escalated.target, escalated.alerts)
	}
	c.alerts.Purge(now)

	byPrefix := c.alerts.ActiveByPrefix()
	for _, inc := range c.incidents.DetectIncidents(byPrefix, now) {
		slog.Warn("coordinator: incident opened", "id", inc.ID, "component_prefix", inc.ComponentPrefix)
	}
	for _, inc := range c.incidents.Snapshot() {
		if inc.State != monitoring.IncidentDetected && inc.State != monitoring.IncidentInvestigating {
			continue
		}
		if err := c.incidents.AttemptAutoRecovery(ctx, inc.ID); err != nil {
			slog.Warn("coordinator: auto-recovery attempt failed", "id", inc.ID, "component_prefix", inc.ComponentPrefix, "error", err)
		}
	}
	c.incidents.AutoResolveRecovered(c.alerts, now)
}

type targetedAlerts struct {
	target string
	alerts []monitoring.Alert
}

// groupEscalationsByTarget buckets newly-escalated alerts by the
// configured per-severity escalation target, so one notification batch
// goes out per destination.
func (c *Coordinator) groupEscalationsByTarget(escalated []monitoring.Alert) []targetedAlerts {
	byTarget := make(map[string][]monitoring.Alert)
	for _, a := range escalated {
		byTarget[c.escalationTarget(a.Severity)] = append(byTarget[c.escalationTarget(a.Severity)], a)
	}
	out := make([]targetedAlerts, 0, len(byTarget))
	for target, alerts := range byTarget {
		out = append(out, targetedAlerts{target: target, alerts: alerts})
	}
	return out
}

func (c *Coordinator) escalationTarget(sev monitoring.AlertSeverity) string {
	switch sev {
	case monitoring.SeverityHigh:
		return c.cfg.EscalationRules.Critical.Target
	default:
		return c.cfg.EscalationRules.Medium.Target
	}
}

func (c *Coordinator) onAlert(ctx context.Context, a monitoring.Alert) {
	if a.Type == monitoring.AlertCritical {
		if _, err := c.pipeline.OnHealthIssue(ctx, a.Monitor); err != nil {
			slog.Warn("coordinator: failed to trigger health-issue improvement", "monitor", a.Monitor, "error", err)
		}
	}
}

// TriggerHealthCheck runs the same health-check sweep the periodic loop
// performs, synchronously, for the Control API's on-demand health-check
// trigger.
func (c *Coordinator) TriggerHealthCheck(ctx context.Context) {
	c.runHealthCheck(ctx)
}

func (c *Coordinator) runHealthCheck(ctx context.Context) {
	for _, m := range c.models.List() {
		drift, err := c.models.DriftIndicator(m.Name)
		if err != nil || drift.Severity == modelregistry.DriftNone {
			continue
		}
		if _, err := c.pipeline.OnDrift(ctx, m.Name); err != nil {
			slog.Warn("coordinator: failed to trigger drift improvement", "model", m.Name, "error", err)
		}
	}
	status := bus.Status{}
	if c.bus != nil {
		status = c.bus.Health(ctx)
	}
	state := ComponentRunning
	if !status.KafkaConnected || !status.AMQPConnected {
		state = ComponentDegraded
	}
	c.registry.Set(compBus, state, status.LastError)

	now := time.Now().UTC()
	if alert := c.alerts.Evaluate("bus.kafka", "error_rate", connectivityValue(status.KafkaConnected), now); alert != nil {
		c.onAlert(ctx, *alert)
	}
	if alert := c.alerts.Evaluate("bus.amqp", "error_rate", connectivityValue(status.AMQPConnected), now); alert != nil {
		c.onAlert(ctx, *alert)
	}
}

// connectivityValue maps backend connectivity onto the error_rate metric
// scale so a disconnected backend reads as a critical alert and a
// connected one resolves after clearing the warning tier.
func connectivityValue(connected bool) float64 {
	if connected {
		return 0
	}
	return 100
}

func (c *Coordinator) runReporting(ctx context.Context) {
	for _, rt := range c.schedule.Due(time.Now()) {
		if _, err := c.reports.Generate(ctx, rt, reporting.GenerateOptions{Formats: []reporting.Format{reporting.FormatJSON, reporting.FormatMarkdown}}); err != nil {
			slog.Warn("coordinator: scheduled report generation failed", "type", rt, "error", err)
		}
	}
}

func (c *Coordinator) runDocumentation(_ context.Context) {
	c.docs.Refresh(c.models.List())
}

func (c *Coordinator) runRetentionCleanup(_ context.Context) {
	c.events.Cleanup(c.cfg.EventRetention)
	c.alerts.Purge(time.Now().UTC())
	c.reports.Cleanup(c.cfg.ReportRetention)
}

func (c *Coordinator) runSnapshot(_ context.Context) {
	if c.snapshots == nil {
		return
	}
	snap := StateSnapshot{
		Events:    c.events.Snapshot(),
		Models:    c.models.Snapshot(),
		Alerts:    c.alerts.Snapshot(""),
		Incidents: c.incidents.Snapshot(),
		Reports:   c.reports.History(""),
		Docs:      c.docs.Snapshot(""),
	}
	if err := c.snapshots.Persist(snap); err != nil {
		slog.Warn("coordinator: snapshot persist failed", "error", err)
	}
}

type metricsSnapshotEvent struct {
	Type      string                   `json:"type"`
	System    monitoring.SystemMetrics `json:"system"`
	Timestamp time.Time                `json:"timestamp"`
}

func (c *Coordinator) publishMetrics(ctx context.Context, sys monitoring.SystemMetrics) {
	payload, err := json.Marshal(metricsSnapshotEvent{Type: "metrics_snapshot", System: sys, Timestamp: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := c.bus.Publish(ctx, metricsChannel, payload); err != nil {
		slog.Warn("coordinator: failed to publish performance metrics", "error", err)
	}
}

// snapshotInterval derives the full-state snapshot cadence from the
// monitoring interval, since there is no dedicated snapshot interval of
// its own (see DESIGN.md).
func snapshotInterval(cfg *config.Config) time.Duration {
	if cfg.MonitoringInterval <= 0 {
		return time.Minute
	}
	return cfg.MonitoringInterval * 5
}
