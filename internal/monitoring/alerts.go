package monitoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// warningFraction derives a "warning" tier from the single configured
// threshold value, since AlertThresholds names one value per metric
// (treated as the critical tier) rather than two explicit tiers (see
// DESIGN.md).
const warningFraction = 0.8

const resolveRetention = 7 * 24 * time.Hour

// AlertBook holds every alert behind one coarse map lock: alert state
// updates are infrequent enough that a single mutex beats per-alert
// locking complexity.
type AlertBook struct {
	mu         sync.Mutex
	alerts     map[string]*Alert // keyed by monitor+"|"+metric
	thresholds Thresholds
	escalation EscalationTimeouts
}

// NewAlertBook constructs an AlertBook evaluated against thresholds
// and escalation timeouts.
func NewAlertBook(thresholds Thresholds, escalation EscalationTimeouts) *AlertBook {
	return &AlertBook{
		alerts:     make(map[string]*Alert),
		thresholds: thresholds,
		escalation: escalation,
	}
}

func (b *AlertBook) tiers(metricName string) (warning, critical float64, ok bool) {
	var v float64
	switch metricName {
	case "cpu_percent":
		v = b.thresholds.CPUUsage
	case "memory_fraction":
		v = b.thresholds.MemoryUsage
	case "error_rate":
		v = b.thresholds.ErrorRate
	case "throughput_drop":
		v = b.thresholds.ThroughputDrop
	case "response_time_ms":
		v = float64(b.thresholds.ResponseTime.Milliseconds())
	default:
		return 0, 0, false
	}
	return v * warningFraction, v, true
}

// Evaluate compares one measurement against its metric's thresholds,
// creating/updating/resolving/escalating the corresponding Alert.
// Returns the alert if one is active after evaluation.
func (b *AlertBook) Evaluate(monitor, metricName string, value float64, now time.Time) *Alert {
	warning, critical, ok := b.tiers(metricName)
	if !ok {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	k := key(monitor, metricName)
	existing := b.alerts[k]

	switch {
	case value > critical:
		return b.raiseLocked(k, monitor, metricName, value, SeverityHigh, AlertCritical, now)
	case value > warning:
		return b.raiseLocked(k, monitor, metricName, value, SeverityMedium, AlertWarning, now)
	default:
		if existing != nil && existing.State == AlertActive {
			existing.BelowWarningRuns++
			if existing.BelowWarningRuns >= 2 {
				existing.State = AlertResolved
			}
		}
		return existing
	}
}

func (b *AlertBook) raiseLocked(k, monitor, metricName string, value float64, sev AlertSeverity, typ AlertType, now time.Time) *Alert {
	if existing, ok := b.alerts[k]; ok && existing.State == AlertActive {
		existing.Count++
		existing.LastSeen = now
		existing.Value = value
		existing.Severity = sev
		existing.Type = typ
		existing.BelowWarningRuns = 0
		return existing
	}
	a := &Alert{
		ID:        uuid.NewString(),
		Monitor:   monitor,
		Metric:    metricName,
		Severity:  sev,
		Type:      typ,
		State:     AlertActive,
		Value:     value,
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	b.alerts[k] = a
	return a
}

// EvaluateEscalations transitions any active alert older than its
// severity's escalation timeout to AlertEscalated.
func (b *AlertBook) EvaluateEscalations(now time.Time) []Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	var escalated []Alert
	for _, a := range b.alerts {
		if a.State != AlertActive {
			continue
		}
		var timeout time.Duration
		switch a.Severity {
		case SeverityHigh:
			timeout = b.escalation.Critical
		default:
			timeout = b.escalation.Medium
		}
		if now.Sub(a.FirstSeen) > timeout {
			a.State = AlertEscalated
			a.EscalatedAt = now
			escalated = append(escalated, *a)
		}
	}
	return escalated
}

// Purge drops resolved alerts older than resolveRetention.
func (b *AlertBook) Purge(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k, a := range b.alerts {
		if a.State == AlertResolved && now.Sub(a.LastSeen) > resolveRetention {
			delete(b.alerts, k)
			n++
		}
	}
	return n
}

// Acknowledge transitions an active alert to acknowledged (manual or
// by auto-recovery success).
func (b *AlertBook) Acknowledge(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.alerts {
		if a.ID == id && a.State == AlertActive {
			a.State = AlertAcknowledged
			return true
		}
	}
	return false
}

// Snapshot returns a filtered, point-in-time copy of all alerts.
func (b *AlertBook) Snapshot(stateFilter AlertState) []Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Alert, 0, len(b.alerts))
	for _, a := range b.alerts {
		if stateFilter != "" && a.State != stateFilter {
			continue
		}
		out = append(out, *a)
	}
	return out
}

// Restore replaces the book's contents with alerts loaded from a
// snapshot taken at startup, rekeying each by monitor+metric.
func (b *AlertBook) Restore(alerts []Alert) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = make(map[string]*Alert, len(alerts))
	for i := range alerts {
		a := alerts[i]
		b.alerts[a.Monitor+"|"+a.Metric] = &a
	}
}

// ActiveByPrefix returns active alerts sharing a component prefix, used
// by incident detection, which needs one consistent snapshot across
// every prefix rather than reading the map alert-by-alert.
func (b *AlertBook) ActiveByPrefix() map[string][]Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string][]Alert)
	for _, a := range b.alerts {
		if a.State != AlertActive {
			continue
		}
		prefix := a.componentPrefix()
		out[prefix] = append(out[prefix], *a)
	}
	return out
}
