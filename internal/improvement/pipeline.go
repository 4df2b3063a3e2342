package improvement

import (
	"context"
	"fmt"
	"time"

	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/cladcerr"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
)

// aborted lets a step stop runPipeline without a panic/recover dance: a
// step that returns an aborted error ends the task as StatusAborted
// rather than StatusFailed, with CurrentStep still naming that step.
type aborted struct{ err error }

func (a aborted) Error() string { return a.err.Error() }

// runPipeline executes the six-step state machine for task against
// model, honoring ctx for cancellation/abort at any step.
func (p *Pipeline) runPipeline(ctx context.Context, task *ImprovementTask) {
	steps := []func(context.Context, *ImprovementTask) error{
		p.stepAnalyze,
		p.stepCollectData,
		p.stepTrain,
		p.stepValidate,
		p.stepTestDeploy,
		p.stepDeploy,
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			p.finish(task, StatusAborted, err)
			return
		}
		task.CurrentStep = stepOrder[i]
		p.touch(task)
		if err := step(ctx, task); err != nil {
			var ab aborted
			if asAborted(err, &ab) {
				p.finish(task, StatusAborted, ab.err)
				return
			}
			p.finish(task, StatusFailed, err)
			return
		}
	}
	p.finish(task, StatusCompleted, nil)
}

func asAborted(err error, out *aborted) bool {
	a, ok := err.(aborted)
	if ok {
		*out = a
	}
	return ok
}

func (p *Pipeline) touch(task *ImprovementTask) {
	task.UpdatedAt = time.Now().UTC()
	p.store(task)
}

func (p *Pipeline) finish(task *ImprovementTask, status TaskStatus, err error) {
	task.Status = status
	if err != nil {
		task.Error = err.Error()
	}
	p.touch(task)
	p.pendingData.clear(task.ID)
	p.pendingTraining.clear(task.ID)
}

// stepAnalyze computes a SWOT from the model's history.
func (p *Pipeline) stepAnalyze(_ context.Context, task *ImprovementTask) error {
	model, err := p.registry.Lookup(task.ModelName)
	if err != nil {
		return err
	}
	swot := SWOTAnalysis{}
	if model.CurrentPerformance >= 0.8 {
		swot.Strengths = append(swot.Strengths, "current_performance above 0.8")
	} else {
		swot.Weaknesses = append(swot.Weaknesses, "current_performance below target")
	}
	if len(model.DeploymentHistory) > 1 {
		swot.Opportunities = append(swot.Opportunities, "deployment history available for trend comparison")
	}
	if len(model.Backups) == 0 {
		swot.Threats = append(swot.Threats, "no backup available for rollback")
	}
	task.SWOT = swot
	return nil
}

// stepCollectData calls out to the capability-specific data sources
// tagged by the model's components.
func (p *Pipeline) stepCollectData(ctx context.Context, task *ImprovementTask) error {
	model, err := p.registry.Lookup(task.ModelName)
	if err != nil {
		return err
	}
	cctx, cancel := context.WithTimeout(ctx, capability.CollectDataDeadline)
	defer cancel()
	data, err := p.cap.CollectData(cctx, task.ModelName, model.Components)
	if err != nil {
		return cladcerr.Wrap(cladcerr.Timeout, "improvement", "collect_data failed", err)
	}
	p.pendingData.set(task.ID, data)
	return nil
}

// stepTrain invokes the opaque training capability.
func (p *Pipeline) stepTrain(ctx context.Context, task *ImprovementTask) error {
	data := p.pendingData.get(task.ID)
	cctx, cancel := context.WithTimeout(ctx, capability.TrainDeadline)
	defer cancel()
	result, err := p.cap.Train(cctx, task.ModelName, data)
	if err != nil {
		return cladcerr.Wrap(cladcerr.Timeout, "improvement", "train failed", err)
	}
	p.pendingTraining.set(task.ID, result)
	return nil
}

// stepValidate requires performance >= threshold, stability (variance
// across last 5 samples < 0.01), and a non-declining trend.
func (p *Pipeline) stepValidate(_ context.Context, task *ImprovementTask) error {
	result := p.pendingTraining.get(task.ID)
	threshold := task.Options.ValidationMinPerformance
	if threshold <= 0 {
		threshold = 0.7
	}

	model, err := p.registry.Lookup(task.ModelName)
	if err != nil {
		return err
	}
	variance := sampleVariance(model.PerformanceHistory, 5)
	trend := trendOf(model.PerformanceHistory, 5)

	passed := result.Performance >= threshold && variance < 0.01 && trend != "declining"
	task.Validation = ValidationResult{
		Passed:    passed,
		Variance:  variance,
		Trend:     trend,
		Threshold: threshold,
	}
	if !passed {
		return aborted{err: cladcerr.New(cladcerr.Validation, "improvement",
			fmt.Sprintf("validation failed for %s: performance=%.3f variance=%.4f trend=%s", task.ModelName, result.Performance, variance, trend))}
	}
	return nil
}

// stepTestDeploy runs the capability-provided smoke test, requiring a
// >=90% subtest pass rate, and computes the supplemented RiskAssessment.
func (p *Pipeline) stepTestDeploy(ctx context.Context, task *ImprovementTask) error {
	result := p.pendingTraining.get(task.ID)
	cctx, cancel := context.WithTimeout(ctx, capability.TestDeployDeadline)
	defer cancel()
	smoke, err := p.cap.TestDeploy(cctx, task.ModelName, result)
	if err != nil {
		return cladcerr.Wrap(cladcerr.Timeout, "improvement", "test_deploy failed", err)
	}

	task.Risk = assessRisk(task.Validation, smoke)

	if smoke.PassRate() < p.testDeployPassRate {
		return aborted{err: cladcerr.New(cladcerr.Validation, "improvement",
			fmt.Sprintf("test_deploy pass rate %.2f below threshold %.2f", smoke.PassRate(), p.testDeployPassRate))}
	}
	if task.Risk.Severity == RiskHigh && !task.Options.BackupBeforeUpdate {
		return aborted{err: cladcerr.New(cladcerr.Validation, "improvement",
			"high risk deployment requires backupBeforeUpdate")}
	}
	return nil
}

// assessRisk derives low/medium/high from the validate step's stability
// and trend signals.
func assessRisk(v ValidationResult, smoke capability.SmokeTestResult) RiskAssessment {
	switch {
	case v.Trend == "declining" || v.Variance > 0.05 || smoke.PassRate() < 0.95:
		return RiskAssessment{Severity: RiskHigh, Reason: "declining trend, high variance, or marginal smoke test"}
	case v.Variance > 0.01 || smoke.PassRate() < 0.98:
		return RiskAssessment{Severity: RiskMedium, Reason: "elevated variance or near-threshold smoke test"}
	default:
		return RiskAssessment{Severity: RiskLow, Reason: "stable trend and strong smoke test"}
	}
}

// stepDeploy invokes modelregistry.Deploy — only reached if validate
// and test_deploy both passed.
func (p *Pipeline) stepDeploy(ctx context.Context, task *ImprovementTask) error {
	result := p.pendingTraining.get(task.ID)
	_, err := p.registry.Deploy(ctx, task.ModelName, modelregistry.TrainingResult{Performance: result.Performance}, task.Options.BackupBeforeUpdate)
	if err != nil {
		return err
	}
	return nil
}

func sampleVariance(samples []modelregistry.PerformanceSample, n int) float64 {
	if len(samples) < n {
		return 0
	}
	window := samples[len(samples)-n:]
	var sum float64
	for _, s := range window {
		sum += s.Value
	}
	avg := sum / float64(len(window))
	var sq float64
	for _, s := range window {
		d := s.Value - avg
		sq += d * d
	}
	return sq / float64(len(window))
}

func trendOf(samples []modelregistry.PerformanceSample, n int) string {
	if len(samples) < n {
		return "stable"
	}
	window := samples[len(samples)-n:]
	first, last := window[0].Value, window[len(window)-1].Value
	switch {
	case last-first > 0.01:
		return "improving"
	case first-last > 0.01:
		return "declining"
	default:
		return "stable"
	}
}
