package eventstore

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/cladc/internal/cladcerr"
)

// SnapshotFunc is invoked periodically so a persistence layer (C9) can
// durably record the store's state. It receives a point-in-time copy;
// the store holds no reference to the persistence layer itself.
type SnapshotFunc func(Snapshot)

// Snapshot is the serializable state persisted to angels_learning.json;
// attached insights are stored on their events.
type Snapshot struct {
	Events []LearningEvent `json:"events"`
}

// Store is the C2 Event Store: an append-only log of LearningEvents with
// a bounded capacity and FIFO eviction, plus derived analytics.
type Store struct {
	mu         sync.RWMutex
	events     []LearningEvent
	byID       map[string]int // id -> index into events, valid only while holding mu
	maxEvents  int
	shards     *producerShards
	onSnapshot SnapshotFunc
	appendCount int
}

// New constructs a Store bounded to maxEvents entries (spec default 50000).
func New(maxEvents int, onSnapshot SnapshotFunc) *Store {
	return &Store{
		events:     make([]LearningEvent, 0, 1024),
		byID:       make(map[string]int),
		maxEvents:  maxEvents,
		shards:     newProducerShards(),
		onSnapshot: onSnapshot,
	}
}

// Append records a LearningEvent, assigning an id if missing. Appends
// from the same producer are serialised against each other; appends
// from different producers proceed concurrently up to the point they
// contend for the store-wide capacity lock.
func (s *Store) Append(evt LearningEvent) (LearningEvent, error) {
	if evt.Angel == "" {
		return LearningEvent{}, cladcerr.New(cladcerr.Validation, "eventstore", "angel is required")
	}
	lock := s.shards.lockFor(evt.Angel)
	lock.Lock()
	defer lock.Unlock()

	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	s.mu.Lock()
	if _, exists := s.byID[evt.ID]; exists {
		s.mu.Unlock()
		return LearningEvent{}, cladcerr.New(cladcerr.Conflict, "eventstore", "duplicate event id "+evt.ID)
	}
	s.events = append(s.events, evt)
	s.evictLocked()
	s.reindexLocked()
	s.appendCount++
	shouldSnapshot := s.appendCount%10 == 0
	var snap Snapshot
	if shouldSnapshot && s.onSnapshot != nil {
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	if shouldSnapshot && s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
	return evt, nil
}

// evictLocked drops the oldest events beyond maxEvents. Caller holds s.mu.
func (s *Store) evictLocked() {
	if s.maxEvents <= 0 || len(s.events) <= s.maxEvents {
		return
	}
	excess := len(s.events) - s.maxEvents
	s.events = append([]LearningEvent(nil), s.events[excess:]...)
}

func (s *Store) reindexLocked() {
	s.byID = make(map[string]int, len(s.events))
	for i, e := range s.events {
		s.byID[e.ID] = i
	}
}

func (s *Store) snapshotLocked() Snapshot {
	cp := make([]LearningEvent, len(s.events))
	copy(cp, s.events)
	return Snapshot{Events: cp}
}

// Snapshot returns a point-in-time copy for the persistence layer.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Restore replaces the store's contents with a previously persisted
// snapshot, used at startup.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]LearningEvent(nil), snap.Events...)
	s.evictLocked()
	s.reindexLocked()
	slog.Info("event store restored", "events", len(s.events))
}

// Query returns events matching filter, newest-first.
func (s *Store) Query(f QueryFilter) []LearningEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]LearningEvent, 0, len(s.events))
	for _, e := range s.events {
		if f.Angel != "" && e.Angel != f.Angel {
			continue
		}
		if f.Domain != "" && e.Domain != f.Domain {
			continue
		}
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Cleanup drops events older than retention.
func (s *Store) Cleanup(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.events[:0:0]
	for _, e := range s.events {
		if e.Timestamp.After(cutoff) {
			kept = append(kept, e)
		}
	}
	dropped := len(s.events) - len(kept)
	s.events = kept
	s.reindexLocked()
	return dropped
}

// AttachInsight appends an insight to every event named by eventIDs.
func (s *Store) AttachInsight(eventIDs []string, insight AngelInsight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range eventIDs {
		idx, ok := s.byID[id]
		if !ok {
			continue
		}
		s.events[idx].Insights = append(s.events[idx].Insights, insight)
	}
}

// Len reports the current event count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// snapshotForAnalytics gives analytics/pattern code a point-in-time copy
// of the events, taken under its own RLock; callers must not hold s.mu.
func (s *Store) snapshotForAnalytics() []LearningEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make([]LearningEvent, len(s.events))
	copy(cp, s.events)
	return cp
}
