package modelregistry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu       sync.Mutex
	channels []string
}

func (p *recordingPublisher) Publish(_ context.Context, channel string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	return nil
}

func TestRegisterAndLookup(t *testing.T) {
	r := New(10, nil)
	m, err := r.Register(Spec{Name: "angel_learning_model", Type: TypeReinforcementLearning})
	require.NoError(t, err)
	require.Equal(t, "1.0.0", m.Version.String())

	got, err := r.Lookup("angel_learning_model")
	require.NoError(t, err)
	require.Equal(t, m.Name, got.Name)
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	r := New(10, nil)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	_, err = r.Register(Spec{Name: "m"})
	require.Error(t, err)
}

func TestDeployImprovementHappyPath(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(10, pub)
	_, err := r.Register(Spec{Name: "angel_learning_model", Type: TypeReinforcementLearning})
	require.NoError(t, err)

	m, err := r.Deploy(context.Background(), "angel_learning_model", TrainingResult{Performance: 0.82}, true)
	require.NoError(t, err)
	require.Equal(t, "1.0.1", m.Version.String())
	require.InDelta(t, 0.82, m.CurrentPerformance, 0.001)
	require.Len(t, m.Backups, 1)
	require.Len(t, m.DeploymentHistory, 1)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Contains(t, pub.channels, "omni.model.updates")
}

func TestDeploymentHistoryTruncatedToMaxModelVersions(t *testing.T) {
	r := New(2, nil)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := r.Deploy(context.Background(), "m", TrainingResult{Performance: 0.8}, false)
		require.NoError(t, err)
	}
	m, err := r.Lookup("m")
	require.NoError(t, err)
	require.Len(t, m.DeploymentHistory, 2)
}

func TestRollbackRestoresBackupAndBumpsVersion(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(10, pub)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	_, err = r.Deploy(context.Background(), "m", TrainingResult{Performance: 0.9}, true)
	require.NoError(t, err)

	m, err := r.Rollback(context.Background(), "m")
	require.NoError(t, err)
	require.Equal(t, "1.0.2", m.Version.String())
	require.InDelta(t, 0, m.CurrentPerformance, 0.001) // restored pre-deploy backup value
}

func TestRollbackWithoutBackupIsNotFound(t *testing.T) {
	r := New(10, nil)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	_, err = r.Rollback(context.Background(), "m")
	require.Error(t, err)
}

func TestRecordPerformanceRecomputesCurrentPerformance(t *testing.T) {
	r := New(10, nil)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	_, err = r.RecordPerformance("m", 0.6)
	require.NoError(t, err)
	m, err := r.RecordPerformance("m", 0.8)
	require.NoError(t, err)
	require.InDelta(t, 0.7, m.CurrentPerformance, 0.001)
}

func TestDriftIndicatorDetectsHighSeverity(t *testing.T) {
	r := New(10, nil)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := r.RecordPerformance("m", 0.9)
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		_, err := r.RecordPerformance("m", 0.5)
		require.NoError(t, err)
	}
	drift, err := r.DriftIndicator("m")
	require.NoError(t, err)
	require.True(t, drift.Detected)
	require.Equal(t, DriftHigh, drift.Severity)
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	r := New(10, nil)
	_, err := r.Register(Spec{Name: "m"})
	require.NoError(t, err)
	snap := r.Snapshot()

	r2 := New(10, nil)
	r2.Restore(snap)
	m, err := r2.Lookup("m")
	require.NoError(t, err)
	require.Equal(t, "m", m.Name)
}
