package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func mkEvent(angel, domain string, success bool, processingTime float64, ts time.Time) LearningEvent {
	return LearningEvent{
		Angel:     angel,
		Domain:    domain,
		Output:    Output{Success: boolPtr(success)},
		Metrics:   map[string]float64{"processingTime": processingTime},
		Timestamp: ts,
	}
}

func TestAppendAssignsIDAndEnforcesCapacity(t *testing.T) {
	store := New(3, nil)
	now := time.Now()
	for i := 0; i < 5; i++ {
		evt, err := store.Append(mkEvent("LearningAngel", "traffic", true, 100, now.Add(time.Duration(i)*time.Second)))
		require.NoError(t, err)
		require.NotEmpty(t, evt.ID)
	}
	require.Equal(t, 3, store.Len())
}

func TestAppendRejectsMissingAngel(t *testing.T) {
	store := New(10, nil)
	_, err := store.Append(LearningEvent{Domain: "traffic"})
	require.Error(t, err)
}

func TestDailySummaryMatchesScenario(t *testing.T) {
	store := New(1000, nil)
	now := time.Now()
	for i := 0; i < 5; i++ {
		_, err := store.Append(mkEvent("LearningAngel", "traffic", true, 100, now))
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := store.Append(mkEvent("LearningAngel", "traffic", false, 300, now))
		require.NoError(t, err)
	}

	summary := store.DailySummary("", "")
	require.Equal(t, 10, summary.Count)
	require.InDelta(t, 50, summary.SuccessRate, 0.001)
	require.InDelta(t, 200, summary.AvgProcessingTimeMs, 0.001)
	require.Len(t, summary.TopDomains, 1)
	require.Equal(t, "traffic", summary.TopDomains[0].Name)
	require.Equal(t, 10, summary.TopDomains[0].Count)
}

func TestPatternAnalysisClassifiesEmergingPattern(t *testing.T) {
	store := New(1000, nil)
	now := time.Now()
	for i := 0; i < 4; i++ {
		_, err := store.Append(mkEvent("LearningAngel", "traffic", true, 100, now))
		require.NoError(t, err)
	}

	patterns := store.PatternAnalysis()
	require.Len(t, patterns, 1)
	require.Equal(t, PatternEmerging, patterns[0].Classification)
	require.Equal(t, 4, patterns[0].Count)

	events := store.Query(QueryFilter{Angel: "LearningAngel"})
	for _, e := range events {
		require.NotEmpty(t, e.Insights)
	}
}

func TestCleanupDropsOldEvents(t *testing.T) {
	store := New(1000, nil)
	old := time.Now().Add(-10 * 24 * time.Hour)
	fresh := time.Now()
	_, err := store.Append(mkEvent("A", "d", true, 1, old))
	require.NoError(t, err)
	_, err = store.Append(mkEvent("A", "d", true, 1, fresh))
	require.NoError(t, err)

	dropped := store.Cleanup(7 * 24 * time.Hour)
	require.Equal(t, 1, dropped)
	require.Equal(t, 1, store.Len())
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	store := New(1000, nil)
	now := time.Now()
	_, err := store.Append(mkEvent("A", "d", true, 1, now))
	require.NoError(t, err)

	snap := store.Snapshot()
	restored := New(1000, nil)
	restored.Restore(snap)
	require.Equal(t, store.Len(), restored.Len())
}

func TestSnapshotCallbackFiresEveryTenthAppend(t *testing.T) {
	var calls int
	store := New(1000, func(Snapshot) { calls++ })
	now := time.Now()
	for i := 0; i < 25; i++ {
		_, err := store.Append(mkEvent("A", "d", true, 1, now))
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
}
