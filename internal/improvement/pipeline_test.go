package improvement

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/cladc/internal/capability"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
)

func newTestPipeline(t *testing.T, cap capability.TrainingCapability) (*Pipeline, *modelregistry.Registry) {
	t.Helper()
	registry := modelregistry.New(10, nil)
	_, err := registry.Register(modelregistry.Spec{Name: "angel_learning_model", Type: modelregistry.TypeReinforcementLearning})
	require.NoError(t, err)
	_, err = registry.RecordPerformance("angel_learning_model", 0.72)
	require.NoError(t, err)

	p := New(registry, cap, Config{
		TestDeployPassRate:   0.9,
		PerformanceThreshold: 0.05,
		MaxConcurrentTasks:   2,
		BackupBeforeUpdate:   true,
	})
	return p, registry
}

type fixedCapability struct {
	performance float64
	passRate    float64
}

func (f fixedCapability) CollectData(_ context.Context, _ string, components []string) (capability.TrainingData, error) {
	return capability.TrainingData{Components: components}, nil
}

func (f fixedCapability) Train(context.Context, string, capability.TrainingData) (capability.TrainingResult, error) {
	return capability.TrainingResult{Performance: f.performance, Converged: true, Iterations: 10}, nil
}

func (f fixedCapability) TestDeploy(context.Context, string, capability.TrainingResult) (capability.SmokeTestResult, error) {
	total := 50
	return capability.SmokeTestResult{PassedSubtests: int(f.passRate * float64(total)), TotalSubtests: total}, nil
}

func TestImprovementHappyPathDeploysModel(t *testing.T) {
	cap := fixedCapability{performance: 0.82, passRate: 0.96}
	p, registry := newTestPipeline(t, cap)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	task, err := p.TriggerManualRequest(ctx, "angel_learning_model")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		tasks := p.Tasks()
		for _, tk := range tasks {
			if tk.ID == task.ID {
				return tk.Status == StatusCompleted || tk.Status == StatusFailed
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	tasks := p.Tasks()
	require.Equal(t, StatusCompleted, tasks[0].Status)

	m, err := registry.Lookup("angel_learning_model")
	require.NoError(t, err)
	require.Equal(t, "1.0.1", m.Version.String())
	require.InDelta(t, 0.82, m.CurrentPerformance, 0.001)
}

func TestValidationFailureAbortsBeforeDeploy(t *testing.T) {
	cap := fixedCapability{performance: 0.3, passRate: 0.99}
	p, registry := newTestPipeline(t, cap)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	task, err := p.TriggerManualRequest(ctx, "angel_learning_model")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		for _, tk := range p.Tasks() {
			if tk.ID == task.ID {
				return tk.Status == StatusAborted
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	m, err := registry.Lookup("angel_learning_model")
	require.NoError(t, err)
	require.Equal(t, "1.0.0", m.Version.String())
}

func TestDecliningTrendAssessedAsHighRisk(t *testing.T) {
	risk := assessRisk(ValidationResult{Trend: "declining"}, capability.SmokeTestResult{PassedSubtests: 45, TotalSubtests: 50})
	require.Equal(t, RiskHigh, risk.Severity)
}

func TestABTestSweepSuggestsDeploymentOnImprovement(t *testing.T) {
	cap := fixedCapability{performance: 0.9, passRate: 0.99}
	p, registry := newTestPipeline(t, cap)
	_, err := registry.Deploy(context.Background(), "angel_learning_model", modelregistry.TrainingResult{Performance: 0.7}, false)
	require.NoError(t, err)
	_, err = registry.Deploy(context.Background(), "angel_learning_model", modelregistry.TrainingResult{Performance: 0.9}, false)
	require.NoError(t, err)

	started := p.RunABTestSweep()
	require.Len(t, started, 1)

	resolved := p.ResolveDueABTests(time.Now().Add(ABTestDuration + time.Minute))
	require.Len(t, resolved, 1)
	require.True(t, resolved[0].SuggestDeployment)
	require.Equal(t, "current", resolved[0].Winner)
}
