package coordinator

import (
	"github.com/codeready-toolchain/cladc/internal/eventstore"
	"github.com/codeready-toolchain/cladc/internal/modelregistry"
	"github.com/codeready-toolchain/cladc/internal/monitoring"
	"github.com/codeready-toolchain/cladc/internal/reporting"
)

// StateSnapshot bundles every component's persisted state, one field per
// on-disk snapshot file.
type StateSnapshot struct {
	Events    eventstore.Snapshot
	Models    map[string]modelregistry.Model
	Alerts    []monitoring.Alert
	Incidents []monitoring.Incident
	Reports   []reporting.Report
	Docs      []reporting.Documentation
}

// SnapshotStore is the narrow persistence-layer seam the Coordinator
// needs: restore at startup, persist on the periodic snapshot loop. The
// concrete implementation (internal/persistence) does the atomic
// write-temp-then-rename JSON I/O; the Coordinator never touches disk
// directly, so every component's state passes through this one seam.
type SnapshotStore interface {
	Restore() (StateSnapshot, error)
	Persist(StateSnapshot) error
}
