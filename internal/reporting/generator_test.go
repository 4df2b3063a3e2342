package reporting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
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

func newTestGenerator(t *testing.T, pub EventPublisher) *Generator {
	t.Helper()
	store := eventstore.New(1000, nil)
	_, err := store.Append(eventstore.LearningEvent{Angel: "LearningAngel", Domain: "traffic"})
	require.NoError(t, err)
	registry := modelregistry.New(10, nil)
	_, err = registry.Register(modelregistry.Spec{Name: "m"})
	require.NoError(t, err)
	alerts := monitoring.NewAlertBook(monitoring.Thresholds{}, monitoring.EscalationTimeouts{})
	incidents := monitoring.NewIncidentBook(3)
	return New(store, registry, nil, alerts, incidents, pub, 100)
}

func TestGenerateDailySummaryProducesAllRequestedFormats(t *testing.T) {
	pub := &recordingPublisher{}
	g := newTestGenerator(t, pub)

	report, err := g.Generate(context.Background(), ReportDailySummary, GenerateOptions{Formats: []Format{FormatJSON, FormatMarkdown, FormatHTML}})
	require.NoError(t, err)
	require.Contains(t, report.Rendered, FormatJSON)
	require.Contains(t, report.Rendered, FormatMarkdown)
	require.Contains(t, report.Rendered, FormatHTML)
	require.Empty(t, report.FailedFormats)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Contains(t, pub.channels, "omni.workflows")
}

func TestGenerateUnknownTypeFails(t *testing.T) {
	g := newTestGenerator(t, nil)
	_, err := g.Generate(context.Background(), ReportType("bogus"), GenerateOptions{})
	require.Error(t, err)
}

func TestHistoryBoundedByMaxReportHistory(t *testing.T) {
	g := newTestGenerator(t, nil)
	g.maxReportHistory = 2
	for i := 0; i < 5; i++ {
		_, err := g.Generate(context.Background(), ReportDailySummary, GenerateOptions{})
		require.NoError(t, err)
	}
	require.Len(t, g.History(""), 2)
}

func TestCleanupDropsOldReports(t *testing.T) {
	g := newTestGenerator(t, nil)
	_, err := g.Generate(context.Background(), ReportDailySummary, GenerateOptions{})
	require.NoError(t, err)
	g.history[0].GeneratedAt = time.Now().Add(-60 * 24 * time.Hour)
	dropped := g.Cleanup(30 * 24 * time.Hour)
	require.Equal(t, 1, dropped)
}

func TestSchedulerFiresEachSlotOncePerOccurrence(t *testing.T) {
	s := NewScheduler(DefaultSlots())
	monday9am := time.Date(2026, time.August, 3, 9, 0, 0, 0, time.UTC) // a Monday
	due := s.Due(monday9am)
	require.Contains(t, due, ReportDailySummary)
	require.Contains(t, due, ReportPerformance)

	due2 := s.Due(monday9am.Add(time.Hour))
	require.Empty(t, due2)
}

func TestDocStoreRefreshAndCleanup(t *testing.T) {
	registry := modelregistry.New(10, nil)
	_, err := registry.Register(modelregistry.Spec{Name: "m", Components: []string{"x"}})
	require.NoError(t, err)

	d := NewDocStore()
	docs := d.Refresh(registry.List())
	require.Len(t, docs, 2)

	d.docs[0].GeneratedAt = time.Now().Add(-60 * 24 * time.Hour)
	dropped := d.Cleanup(30*24*time.Hour, 1000)
	require.Equal(t, 1, dropped)
}
