package modelregistry

import (
	"context"
	"sync"
	"time"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
)

const maxBackups = 5
const maxPerformanceHistory = 100

// entry pairs a Model with the per-model lock that serialises
// deploy/rollback/record_performance so concurrent operations on the
// same model never interleave.
type entry struct {
	mu    sync.Mutex
	model Model
}

// Registry is the model registry and version store.
type Registry struct {
	mu               sync.RWMutex
	models           map[string]*entry
	maxModelVersions int
	publisher        EventPublisher
}

// New constructs a Registry bounded to maxModelVersions deployment
// history entries per model, publishing deploy/rollback events via pub.
func New(maxModelVersions int, pub EventPublisher) *Registry {
	return &Registry{
		models:           make(map[string]*entry),
		maxModelVersions: maxModelVersions,
		publisher:        pub,
	}
}

// Register adds a new model at version 1.0.0, or returns Conflict if
// the name is already registered.
func (r *Registry) Register(spec Spec) (Model, error) {
	if spec.Name == "" {
		return Model{}, cladcerr.New(cladcerr.Validation, "modelregistry", "name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[spec.Name]; exists {
		return Model{}, cladcerr.New(cladcerr.Conflict, "modelregistry", "model already registered: "+spec.Name)
	}
	m := Model{
		Name:        spec.Name,
		Type:        spec.Type,
		Version:     Version{Major: 1, Minor: 0, Patch: 0},
		Status:      "registered",
		Components:  spec.Components,
		Metrics:     make(map[string]float64),
		Health:      "unknown",
		LastUpdated: time.Now().UTC(),
	}
	r.models[spec.Name] = &entry{model: m}
	return m, nil
}

func (r *Registry) get(name string) (*entry, error) {
	r.mu.RLock()
	e, ok := r.models[name]
	r.mu.RUnlock()
	if !ok {
		return nil, cladcerr.New(cladcerr.NotFound, "modelregistry", "model not found: "+name)
	}
	return e, nil
}

// Lookup returns a copy of the named model.
func (r *Registry) Lookup(name string) (Model, error) {
	e, err := r.get(name)
	if err != nil {
		return Model{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model, nil
}

// List returns a copy of every registered model.
func (r *Registry) List() []Model {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.models))
	for _, e := range r.models {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Model, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.model)
		e.mu.Unlock()
	}
	return out
}

// RecordPerformance appends a sample to the model's bounded history and
// recomputes current_performance as the mean of the retained history.
func (r *Registry) RecordPerformance(name string, value float64) (Model, error) {
	e, err := r.get(name)
	if err != nil {
		return Model{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.model.PerformanceHistory = append(e.model.PerformanceHistory, PerformanceSample{
		Value: value, Timestamp: time.Now().UTC(),
	})
	if len(e.model.PerformanceHistory) > maxPerformanceHistory {
		excess := len(e.model.PerformanceHistory) - maxPerformanceHistory
		e.model.PerformanceHistory = e.model.PerformanceHistory[excess:]
	}
	e.model.CurrentPerformance = mean(e.model.PerformanceHistory)
	e.model.LastUpdated = time.Now().UTC()
	return e.model, nil
}

func mean(samples []PerformanceSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s.Value
	}
	return sum / float64(len(samples))
}

// Deploy atomically backs up (if requested), bumps PATCH, replaces
// current_performance, appends deployment history, and publishes
// model_deployed. Callers outside internal/improvement should not call
// Deploy directly; it is the improvement pipeline's deploy step only.
func (r *Registry) Deploy(ctx context.Context, name string, result TrainingResult, backupBeforeUpdate bool) (Model, error) {
	e, err := r.get(name)
	if err != nil {
		return Model{}, err
	}
	e.mu.Lock()
	if backupBeforeUpdate {
		e.model.Backups = append(e.model.Backups, Backup{
			Version:            e.model.Version,
			CurrentPerformance: e.model.CurrentPerformance,
			Metrics:            copyMetrics(e.model.Metrics),
			SavedAt:            time.Now().UTC(),
		})
		if len(e.model.Backups) > maxBackups {
			excess := len(e.model.Backups) - maxBackups
			e.model.Backups = e.model.Backups[excess:]
		}
	}

	e.model.Version = e.model.Version.nextPatch()
	e.model.CurrentPerformance = result.Performance
	e.model.PerformanceHistory = append(e.model.PerformanceHistory, PerformanceSample{
		Value: result.Performance, Timestamp: time.Now().UTC(),
	})
	if len(e.model.PerformanceHistory) > maxPerformanceHistory {
		excess := len(e.model.PerformanceHistory) - maxPerformanceHistory
		e.model.PerformanceHistory = e.model.PerformanceHistory[excess:]
	}
	e.model.Status = "active"
	e.model.LastUpdated = time.Now().UTC()
	e.model.DeploymentHistory = append(e.model.DeploymentHistory, DeploymentRecord{
		Version:     e.model.Version,
		Performance: result.Performance,
		DeployedAt:  e.model.LastUpdated,
	})
	if r.maxModelVersions > 0 && len(e.model.DeploymentHistory) > r.maxModelVersions {
		excess := len(e.model.DeploymentHistory) - r.maxModelVersions
		e.model.DeploymentHistory = e.model.DeploymentHistory[excess:]
	}
	snapshot := e.model
	e.mu.Unlock()

	r.publishDeployed(ctx, &snapshot)
	return snapshot, nil
}

// Rollback restores the most recent backup, bumps PATCH to a new
// version number, and publishes model_rolled_back.
func (r *Registry) Rollback(ctx context.Context, name string) (Model, error) {
	e, err := r.get(name)
	if err != nil {
		return Model{}, err
	}
	e.mu.Lock()
	if len(e.model.Backups) == 0 {
		e.mu.Unlock()
		return Model{}, cladcerr.New(cladcerr.NotFound, "modelregistry", "no backup available for "+name)
	}
	last := e.model.Backups[len(e.model.Backups)-1]
	e.model.Backups = e.model.Backups[:len(e.model.Backups)-1]
	e.model.CurrentPerformance = last.CurrentPerformance
	e.model.Metrics = last.Metrics
	e.model.Version = e.model.Version.nextPatch()
	e.model.Status = "rolled_back"
	e.model.LastUpdated = time.Now().UTC()
	snapshot := e.model
	e.mu.Unlock()

	r.publishRolledBack(ctx, &snapshot)
	return snapshot, nil
}

// DriftIndicator computes |mean(last10) - mean(prev10)| / mean(prev10)
// over performance history.
func (r *Registry) DriftIndicator(name string) (Drift, error) {
	e, err := r.get(name)
	if err != nil {
		return Drift{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	hist := e.model.PerformanceHistory
	if len(hist) < 20 {
		return Drift{Severity: DriftNone}, nil
	}
	last10 := hist[len(hist)-10:]
	prev10 := hist[len(hist)-20 : len(hist)-10]
	meanLast := mean(last10)
	meanPrev := mean(prev10)
	if meanPrev == 0 {
		return Drift{Severity: DriftNone}, nil
	}
	magnitude := absf(meanLast-meanPrev) / meanPrev

	d := Drift{Magnitude: magnitude, Severity: DriftNone}
	if magnitude > 0.05 {
		d.Detected = true
		if magnitude > 0.15 {
			d.Severity = DriftHigh
		} else {
			d.Severity = DriftMedium
		}
	}
	return d, nil
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func copyMetrics(m map[string]float64) map[string]float64 {
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Snapshot returns a name->Model copy for the persistence layer
// (model_registry.json).
func (r *Registry) Snapshot() map[string]Model {
	return sliceToMap(r.List())
}

func sliceToMap(models []Model) map[string]Model {
	out := make(map[string]Model, len(models))
	for _, m := range models {
		out[m.Name] = m
	}
	return out
}

// Restore replaces the registry's contents with a previously persisted
// snapshot, used at startup.
func (r *Registry) Restore(snapshot map[string]Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models = make(map[string]*entry, len(snapshot))
	for name, m := range snapshot {
		r.models[name] = &entry{model: m}
	}
}
