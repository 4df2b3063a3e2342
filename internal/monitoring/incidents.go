package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const autoResolveAge = 5 * time.Minute

// RecoveryProcedure is a component-specific auto-recovery action (e.g.
// reconnect bus, restart worker pool, requeue RL flush).
type RecoveryProcedure func(ctx context.Context) error

// IncidentBook is the incident state machine: it turns clusters of
// active alerts into incidents, drives their auto-recovery attempts, and
// tracks resolution.
type IncidentBook struct {
	mu         sync.Mutex
	incidents  map[string]*Incident
	procedures map[string]RecoveryProcedure
	maxRetries int
}

// NewIncidentBook constructs an IncidentBook, retrying an auto-recovery
// procedure up to maxRetries times per incident.
func NewIncidentBook(maxRetries int) *IncidentBook {
	return &IncidentBook{
		incidents:  make(map[string]*Incident),
		procedures: make(map[string]RecoveryProcedure),
		maxRetries: maxRetries,
	}
}

// RegisterProcedure wires a component-specific recovery action.
func (ib *IncidentBook) RegisterProcedure(componentPrefix string, proc RecoveryProcedure) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	ib.procedures[componentPrefix] = proc
}

// DetectIncidents evaluates a snapshot of active alerts by component
// prefix — taken by the caller via AlertBook.ActiveByPrefix so incident
// creation observes one consistent view rather than racing the alert
// map — and opens a new incident when >=3 active alerts share a prefix
// or any is critical.
func (ib *IncidentBook) DetectIncidents(byPrefix map[string][]Alert, now time.Time) []Incident {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	var created []Incident
	for prefix, alerts := range byPrefix {
		anyCritical := false
		for _, a := range alerts {
			if a.Type == AlertCritical {
				anyCritical = true
				break
			}
		}
		if len(alerts) < 3 && !anyCritical {
			continue
		}
		if ib.hasOpenIncidentLocked(prefix) {
			continue
		}
		ids := make([]string, len(alerts))
		for i, a := range alerts {
			ids[i] = a.ID
		}
		inc := &Incident{
			ID:              uuid.NewString(),
			ComponentPrefix: prefix,
			State:           IncidentDetected,
			AlertIDs:        ids,
			CreatedAt:       now,
		}
		ib.incidents[inc.ID] = inc
		created = append(created, *inc)
	}
	return created
}

func (ib *IncidentBook) hasOpenIncidentLocked(prefix string) bool {
	for _, inc := range ib.incidents {
		if inc.ComponentPrefix == prefix && inc.State != IncidentResolved {
			return true
		}
	}
	return false
}

// AttemptAutoRecovery runs the registered procedure for a detected
// incident, transitioning it to investigating, then recovered on
// success (capped at maxRetries attempts).
func (ib *IncidentBook) AttemptAutoRecovery(ctx context.Context, incidentID string) error {
	ib.mu.Lock()
	inc, ok := ib.incidents[incidentID]
	if !ok {
		ib.mu.Unlock()
		return nil
	}
	if inc.State == IncidentDetected {
		inc.State = IncidentInvestigating
	}
	proc, hasProc := ib.procedures[inc.ComponentPrefix]
	attempts := inc.RecoveryAttempts
	ib.mu.Unlock()

	if !hasProc || attempts >= ib.maxRetries {
		return nil
	}

	err := proc(ctx)

	ib.mu.Lock()
	defer ib.mu.Unlock()
	inc.RecoveryAttempts++
	if err == nil {
		inc.State = IncidentRecovered
		inc.RecoveredAt = time.Now().UTC()
	}
	return err
}

// ResolveIncident manually resolves an incident with the given
// resolution note.
func (ib *IncidentBook) ResolveIncident(id, resolution string) bool {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	inc, ok := ib.incidents[id]
	if !ok {
		return false
	}
	inc.State = IncidentResolved
	inc.Resolution = resolution
	inc.ResolvedAt = time.Now().UTC()
	return true
}

// AutoResolveRecovered resolves every recovered (or alert-cleared)
// incident older than autoResolveAge whose related alerts are all
// resolved.
func (ib *IncidentBook) AutoResolveRecovered(alertBook *AlertBook, now time.Time) []Incident {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	var resolved []Incident
	for _, inc := range ib.incidents {
		if inc.State == IncidentResolved || now.Sub(inc.CreatedAt) < autoResolveAge {
			continue
		}
		if !allResolved(alertBook, inc.AlertIDs) {
			continue
		}
		inc.State = IncidentResolved
		inc.ResolvedAt = now
		inc.Resolution = "auto-resolved: all related alerts resolved"
		resolved = append(resolved, *inc)
	}
	return resolved
}

func allResolved(alertBook *AlertBook, ids []string) bool {
	snap := alertBook.Snapshot("")
	byID := make(map[string]Alert, len(snap))
	for _, a := range snap {
		byID[a.ID] = a
	}
	for _, id := range ids {
		a, ok := byID[id]
		if !ok {
			continue // purged already; treat as resolved
		}
		if a.State != AlertResolved {
			return false
		}
	}
	return true
}

// Restore replaces the book's contents with incidents loaded from a
// snapshot taken at startup.
func (ib *IncidentBook) Restore(incidents []Incident) {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	ib.incidents = make(map[string]*Incident, len(incidents))
	for i := range incidents {
		inc := incidents[i]
		ib.incidents[inc.ID] = &inc
	}
}

// Snapshot returns a point-in-time copy of every incident.
func (ib *IncidentBook) Snapshot() []Incident {
	ib.mu.Lock()
	defer ib.mu.Unlock()
	out := make([]Incident, 0, len(ib.incidents))
	for _, inc := range ib.incidents {
		out = append(out, *inc)
	}
	return out
}
