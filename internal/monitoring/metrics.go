package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.opentelemetry.io/otel/metric"
)

const maxSamples = 10_000

// Collector samples system/component/application metrics every
// monitoringInterval and keeps a bounded FIFO history per (monitor,
// metric) pair, recomputing rollups at 1m/5m/15m/1h windows.
type Collector struct {
	mu       sync.RWMutex
	samples  map[string][]Sample // key: monitor+"|"+metric
	startedAt time.Time

	cpuGauge    metric.Float64Gauge
	memGauge    metric.Float64Gauge
	errorCounter metric.Int64Counter
}

// NewCollector constructs a Collector, registering OTel instruments on
// meter so the rollup windows have a real time-series backing
// alongside the in-memory sample store.
func NewCollector(meter metric.Meter) (*Collector, error) {
	c := &Collector{
		samples:   make(map[string][]Sample),
		startedAt: time.Now(),
	}
	var err error
	c.cpuGauge, err = meter.Float64Gauge("cladc.system.cpu_percent")
	if err != nil {
		return nil, err
	}
	c.memGauge, err = meter.Float64Gauge("cladc.system.memory_bytes")
	if err != nil {
		return nil, err
	}
	c.errorCounter, err = meter.Int64Counter("cladc.application.errors")
	if err != nil {
		return nil, err
	}
	return c, nil
}

func key(monitor, metricName string) string { return monitor + "|" + metricName }

// Record appends one sample, evicting the oldest once maxSamples is
// exceeded for that (monitor, metric) pair.
func (c *Collector) Record(monitor, metricName string, value float64, ts time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(monitor, metricName)
	c.samples[k] = append(c.samples[k], Sample{Monitor: monitor, Metric: metricName, Value: value, Timestamp: ts})
	if len(c.samples[k]) > maxSamples {
		excess := len(c.samples[k]) - maxSamples
		c.samples[k] = c.samples[k][excess:]
	}
}

// SampleSystem takes one system-level measurement pass via gopsutil.
func (c *Collector) SampleSystem(ctx context.Context) (SystemMetrics, error) {
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	var cpuPct float64
	if err == nil && len(percents) > 0 {
		cpuPct = percents[0]
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	var memBytes uint64
	var heapFraction float64
	if err == nil {
		memBytes = vm.Used
		if vm.Total > 0 {
			heapFraction = float64(vm.Used) / float64(vm.Total)
		}
	}

	now := time.Now()
	m := SystemMetrics{
		CPUPercent:   cpuPct,
		MemoryBytes:  memBytes,
		HeapFraction: heapFraction,
		Uptime:       now.Sub(c.startedAt),
		SampledAt:    now,
	}
	c.Record("system", "cpu_percent", m.CPUPercent, now)
	c.Record("system", "memory_bytes", float64(m.MemoryBytes), now)
	c.Record("system", "heap_fraction", m.HeapFraction, now)
	c.cpuGauge.Record(ctx, m.CPUPercent)
	c.memGauge.Record(ctx, float64(m.MemoryBytes))
	return m, nil
}

// SampleComponent records a component's status and counters.
func (c *Collector) SampleComponent(component, status string, counters map[string]float64) ComponentMetrics {
	now := time.Now()
	for name, v := range counters {
		c.Record(component, name, v, now)
	}
	return ComponentMetrics{Component: component, Status: status, Counters: counters, SampledAt: now}
}

// RecordRequest feeds one request observation into the application
// metrics rollups (request count, error count, response time).
func (c *Collector) RecordRequest(ctx context.Context, responseTime time.Duration, failed bool) {
	now := time.Now()
	c.Record("application", "response_time_ms", float64(responseTime.Milliseconds()), now)
	c.Record("application", "request_count", 1, now)
	if failed {
		c.Record("application", "error_count", 1, now)
		c.errorCounter.Add(ctx, 1)
	}
}

// WindowAverage computes the mean value of (monitor, metric) samples
// falling inside w, looking back from now.
func (c *Collector) WindowAverage(monitor, metricName string, w Window, now time.Time) WindowAggregate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cutoff := now.Add(-w.duration())
	agg := WindowAggregate{Window: w}
	first := true
	for _, s := range c.samples[key(monitor, metricName)] {
		if s.Timestamp.Before(cutoff) {
			continue
		}
		agg.Count++
		agg.Average += s.Value
		if first || s.Value < agg.Min {
			agg.Min = s.Value
		}
		if first || s.Value > agg.Max {
			agg.Max = s.Value
		}
		first = false
	}
	if agg.Count > 0 {
		agg.Average /= float64(agg.Count)
	}
	return agg
}

// AllWindowAggregates returns the four standard rollup windows for a
// (monitor, metric) pair.
func (c *Collector) AllWindowAggregates(monitor, metricName string) []WindowAggregate {
	now := time.Now()
	out := make([]WindowAggregate, 0, len(allWindows))
	for _, w := range allWindows {
		out = append(out, c.WindowAverage(monitor, metricName, w, now))
	}
	return out
}

// Latest returns the most recent sample value for a (monitor, metric)
// pair, and whether one exists.
func (c *Collector) Latest(monitor, metricName string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := c.samples[key(monitor, metricName)]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1].Value, true
}
