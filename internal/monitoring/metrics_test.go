package monitoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	meter := noop.NewMeterProvider().Meter("cladc-test")
	c, err := NewCollector(meter)
	require.NoError(t, err)
	return c
}

func TestSampleSystemRecordsRealMeasurements(t *testing.T) {
	c := newTestCollector(t)
	m, err := c.SampleSystem(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, m.MemoryBytes, uint64(0))

	v, ok := c.Latest("system", "memory_bytes")
	require.True(t, ok)
	require.Equal(t, float64(m.MemoryBytes), v)
}

func TestWindowAverageOnlyCountsSamplesInWindow(t *testing.T) {
	c := newTestCollector(t)
	now := time.Now()
	c.Record("m1", "metric", 10, now.Add(-2*time.Hour))
	c.Record("m1", "metric", 20, now.Add(-30*time.Second))

	agg := c.WindowAverage("m1", "metric", Window1m, now)
	require.Equal(t, 1, agg.Count)
	require.InDelta(t, 20, agg.Average, 0.001)
}

func TestRecordRequestTracksErrors(t *testing.T) {
	c := newTestCollector(t)
	c.RecordRequest(context.Background(), 100*time.Millisecond, false)
	c.RecordRequest(context.Background(), 200*time.Millisecond, true)

	v, ok := c.Latest("application", "error_count")
	require.True(t, ok)
	require.Equal(t, float64(1), v)
}
