package persistence

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/cladc/internal/coordinator"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

func sampleSnapshot() coordinator.StateSnapshot {
	return coordinator.StateSnapshot{
		Events: eventstore.Snapshot{Events: []eventstore.LearningEvent{
			{ID: "e1", Angel: "LearningAngel", Domain: "traffic", Timestamp: time.Now().UTC()},
		}},
		Models: map[string]modelregistry.Model{
			"m1": {Name: "m1", Version: modelregistry.Version{Major: 1}},
		},
		Alerts: []monitoring.Alert{
			{ID: "a1", Monitor: "system.cpu", Metric: "cpu_percent", State: monitoring.AlertActive},
		},
		Incidents: []monitoring.Incident{
			{ID: "i1", ComponentPrefix: "system", State: monitoring.IncidentDetected},
		},
		Reports: []reporting.Report{
			{ID: "r1", Type: reporting.ReportDailySummary, GeneratedAt: time.Now().UTC()},
		},
		Docs: []reporting.Documentation{
			{ID: "d1", Kind: "api", GeneratedAt: time.Now().UTC()},
		},
	}
}

func TestPersistThenRestoreRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	snap := sampleSnapshot()
	require.NoError(t, store.Persist(snap))

	for _, f := range []string{learningFile, registryFile, alertsFile, incidentsFile, reportsFile, docsFile} {
		require.FileExists(t, filepath.Join(dir, f))
		require.NoFileExists(t, filepath.Join(dir, f+".tmp"))
	}

	restored, err := store.Restore()
	require.NoError(t, err)
	require.Len(t, restored.Events.Events, 1)
	require.Equal(t, "e1", restored.Events.Events[0].ID)
	require.Contains(t, restored.Models, "m1")
	require.Len(t, restored.Alerts, 1)
	require.Equal(t, "a1", restored.Alerts[0].ID)
	require.Len(t, restored.Incidents, 1)
	require.Len(t, restored.Reports, 1)
	require.Len(t, restored.Docs, 1)
}

func TestRestoreFallsBackToEmptyOnMissingFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	snap, err := store.Restore()
	require.NoError(t, err)
	require.Empty(t, snap.Events.Events)
	require.NotNil(t, snap.Models)
	require.Empty(t, snap.Alerts)
}

func TestRestoreFallsBackOnCorruptJSON(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, registryFile), []byte("{not json"), 0o644))

	store, err := New(dir)
	require.NoError(t, err)

	snap, err := store.Restore()
	require.NoError(t, err)
	require.NotNil(t, snap.Models)
	require.Empty(t, snap.Models)
}

func TestNewCreatesMissingDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := New(dir)
	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
