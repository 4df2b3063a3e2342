package improvement

import (
	"context"
	"time"
)

// RunScheduledSweep selects models needing improvement and enqueues a
// task per model: current_performance < 0.8, unhealthy, or last
// updated more than 24h ago.
func (p *Pipeline) RunScheduledSweep(ctx context.Context) []string {
	var enqueued []string
	for _, m := range p.registry.List() {
		stale := time.Since(m.LastUpdated) > 24*time.Hour
		unhealthy := m.Health != "" && m.Health != "healthy"
		if m.CurrentPerformance < 0.8 || unhealthy || stale {
			if _, err := p.EnqueueTask(ctx, m.Name, TriggerScheduledSweep, Options{
				ValidationMinPerformance: 0.7,
				BackupBeforeUpdate:       p.defaultBackup,
			}); err == nil {
				enqueued = append(enqueued, m.Name)
			}
		}
	}
	return enqueued
}

// RunRetrainingSweep selects models below 0.75 performance or stale by
// more than 7 days, running a stricter pipeline: validation threshold
// 0.75, rigorous flag true.
func (p *Pipeline) RunRetrainingSweep(ctx context.Context) []string {
	var enqueued []string
	for _, m := range p.registry.List() {
		stale := time.Since(m.LastUpdated) > 7*24*time.Hour
		if m.CurrentPerformance < 0.75 || stale {
			if _, err := p.EnqueueTask(ctx, m.Name, TriggerRetraining, Options{
				ValidationMinPerformance: 0.75,
				Rigorous:                 true,
				BackupBeforeUpdate:       true,
			}); err == nil {
				enqueued = append(enqueued, m.Name)
			}
		}
	}
	return enqueued
}

// OnDrift enqueues a task in response to C4's drift callback.
func (p *Pipeline) OnDrift(ctx context.Context, modelName string) (*ImprovementTask, error) {
	return p.EnqueueTask(ctx, modelName, TriggerDrift, Options{
		ValidationMinPerformance: 0.7,
		BackupBeforeUpdate:       true,
	})
}

// OnHealthIssue enqueues a task in response to C6's health-issue callback.
func (p *Pipeline) OnHealthIssue(ctx context.Context, modelName string) (*ImprovementTask, error) {
	return p.EnqueueTask(ctx, modelName, TriggerHealthIssue, Options{
		ValidationMinPerformance: 0.7,
		BackupBeforeUpdate:       p.defaultBackup,
	})
}

// TriggerManualRequest enqueues a task on behalf of the Control API (C10).
func (p *Pipeline) TriggerManualRequest(ctx context.Context, modelName string) (*ImprovementTask, error) {
	return p.EnqueueTask(ctx, modelName, TriggerManual, Options{
		ValidationMinPerformance: 0.7,
		BackupBeforeUpdate:       p.defaultBackup,
	})
}
