// Package persistence implements atomic write-temp-then-rename JSON
// snapshot I/O for the state every component needs restored at startup,
// centralizing all disk access so other components never touch disk
// directly. Read failure on startup logs a warning and falls back to
// empty in-memory state; the process does not abort.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/codeready-toolchain/cladc/internal/coordinator"
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

const (
	learningFile  = "angels_learning.json"
	registryFile  = "model_registry.json"
	alertsFile    = "alerts_history.json"
	incidentsFile = "incidents_history.json"
	reportsFile   = "reports_history.json"
	docsFile      = "documentation.json"
)

// Store implements coordinator.SnapshotStore over a data directory.
type Store struct {
	dataDir string
}

// New constructs a Store rooted at dataDir, creating it if missing.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("persistence: creating data dir: %w", err)
	}
	return &Store{dataDir: dataDir}, nil
}

var _ coordinator.SnapshotStore = (*Store)(nil)

// Restore loads every snapshot file, falling back to an empty/zero value
// for any file that's missing or unreadable. A read failure logs a
// warning; the process does not abort.
func (s *Store) Restore() (coordinator.StateSnapshot, error) {
	var snap coordinator.StateSnapshot

	readInto(s.path(learningFile), &snap.Events.Events)
	readInto(s.path(registryFile), &snap.Models)

	var alerts map[string]monitoring.Alert
	readInto(s.path(alertsFile), &alerts)
	snap.Alerts = alertValues(alerts)

	var incidents map[string]monitoring.Incident
	readInto(s.path(incidentsFile), &incidents)
	snap.Incidents = incidentValues(incidents)

	var reports map[string]reporting.Report
	readInto(s.path(reportsFile), &reports)
	snap.Reports = reportValues(reports)

	var docs map[string]reporting.Documentation
	readInto(s.path(docsFile), &docs)
	snap.Docs = docValues(docs)

	if snap.Models == nil {
		snap.Models = make(map[string]modelregistry.Model)
	}
	return snap, nil
}

// readInto decodes path's JSON content into dest, logging and leaving
// dest at its zero value on any failure (missing file, corrupt JSON).
func readInto(path string, dest any) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("persistence: failed to read snapshot, starting empty", "file", path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, dest); err != nil {
		slog.Warn("persistence: failed to parse snapshot, starting empty", "file", path, "error", err)
	}
}

// Persist atomically writes every component of snap to its own file via
// write-temp-then-rename. A failure on one file is logged and does not
// prevent the others from being written.
func (s *Store) Persist(snap coordinator.StateSnapshot) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	record(s.writeAtomic(learningFile, snap.Events.Events))
	record(s.writeAtomic(registryFile, snap.Models))
	record(s.writeAtomic(alertsFile, indexAlerts(snap.Alerts)))
	record(s.writeAtomic(incidentsFile, indexIncidents(snap.Incidents)))
	record(s.writeAtomic(reportsFile, indexReports(snap.Reports)))
	record(s.writeAtomic(docsFile, indexDocs(snap.Docs)))

	return firstErr
}

func (s *Store) path(name string) string { return filepath.Join(s.dataDir, name) }

// writeAtomic marshals v and writes it to name via a temp file in the
// same directory followed by an atomic rename.
func (s *Store) writeAtomic(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal %s: %w", name, err)
	}

	dst := s.path(name)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persistence: write temp for %s: %w", name, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("persistence: rename into place for %s: %w", name, err)
	}
	return nil
}

// indexAlerts/indexIncidents/indexReports/indexDocs reshape a slice into
// the id-keyed map these files store on disk.
func indexAlerts(alerts []monitoring.Alert) map[string]monitoring.Alert {
	out := make(map[string]monitoring.Alert, len(alerts))
	for _, a := range alerts {
		out[a.ID] = a
	}
	return out
}

func indexIncidents(incidents []monitoring.Incident) map[string]monitoring.Incident {
	out := make(map[string]monitoring.Incident, len(incidents))
	for _, inc := range incidents {
		out[inc.ID] = inc
	}
	return out
}

func indexReports(reports []reporting.Report) map[string]reporting.Report {
	out := make(map[string]reporting.Report, len(reports))
	for _, r := range reports {
		out[r.ID] = r
	}
	return out
}

func indexDocs(docs []reporting.Documentation) map[string]reporting.Documentation {
	out := make(map[string]reporting.Documentation, len(docs))
	for _, d := range docs {
		out[d.ID] = d
	}
	return out
}

// alertValues/incidentValues/reportValues/docValues invert the
// index* functions above when restoring from disk.
func alertValues(m map[string]monitoring.Alert) []monitoring.Alert {
	out := make([]monitoring.Alert, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func incidentValues(m map[string]monitoring.Incident) []monitoring.Incident {
	out := make([]monitoring.Incident, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func reportValues(m map[string]reporting.Report) []reporting.Report {
	out := make([]reporting.Report, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func docValues(m map[string]reporting.Documentation) []reporting.Documentation {
	out := make([]reporting.Documentation, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
