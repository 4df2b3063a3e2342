package reporting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/cladc/internal/modelregistry"
)

// DocStore holds generated API/architecture documentation, refreshed
// from the live model registry snapshot.
type DocStore struct {
	mu   sync.Mutex
	docs []Documentation
}

// NewDocStore constructs an empty DocStore.
func NewDocStore() *DocStore { return &DocStore{} }

// Refresh regenerates API and architecture docs from models.
func (d *DocStore) Refresh(models []modelregistry.Model) []Documentation {
	now := time.Now().UTC()
	apiDoc := Documentation{ID: uuid.NewString(), Kind: "api", GeneratedAt: now, Content: renderAPIDoc(models)}
	archDoc := Documentation{ID: uuid.NewString(), Kind: "architecture", GeneratedAt: now, Content: renderArchitectureDoc(models)}

	d.mu.Lock()
	d.docs = append(d.docs, apiDoc, archDoc)
	d.mu.Unlock()

	return []Documentation{apiDoc, archDoc}
}

func renderAPIDoc(models []modelregistry.Model) string {
	out := "# API Documentation\n\n"
	for _, m := range models {
		out += fmt.Sprintf("- %s (%s) v%s\n", m.Name, m.Type, m.Version)
	}
	return out
}

func renderArchitectureDoc(models []modelregistry.Model) string {
	out := "# System Architecture\n\n"
	for _, m := range models {
		out += fmt.Sprintf("- %s components: %v\n", m.Name, m.Components)
	}
	return out
}

// Cleanup drops documents older than retention, capped at maxHistory.
func (d *DocStore) Cleanup(retention time.Duration, maxHistory int) int {
	cutoff := time.Now().Add(-retention)
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.docs[:0:0]
	for _, doc := range d.docs {
		if doc.GeneratedAt.After(cutoff) {
			kept = append(kept, doc)
		}
	}
	if maxHistory > 0 && len(kept) > maxHistory {
		kept = kept[len(kept)-maxHistory:]
	}
	dropped := len(d.docs) - len(kept)
	d.docs = kept
	return dropped
}

// Restore replaces the store's contents with documents loaded from a
// snapshot taken at startup.
func (d *DocStore) Restore(docs []Documentation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = append([]Documentation(nil), docs...)
}

// Snapshot returns a filtered copy of stored documents.
func (d *DocStore) Snapshot(kind string) []Documentation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Documentation, 0, len(d.docs))
	for _, doc := range d.docs {
		if kind != "" && doc.Kind != kind {
			continue
		}
		out = append(out, doc)
	}
	return out
}
