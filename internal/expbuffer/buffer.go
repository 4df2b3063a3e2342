// Package expbuffer implements the experience stream buffer: one ring
// buffer per algorithm tag, batched flush to an opaque RL capability,
// and an optional real-time synchronous forwarding path.
package expbuffer

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codeready-toolchain/cladc/internal/capability"
)

const maxRetries = 3

// stream is one algorithm's ring buffer plus its own lock, so enqueue
// on one algorithm never blocks enqueue on another: there is one writer
// per stream, and enqueue holds only that stream's lock.
type stream struct {
	mu       sync.Mutex
	items    *list.List // of capability.Experience
	retries  map[*list.Element]int
}

func newStream() *stream {
	return &stream{items: list.New(), retries: make(map[*list.Element]int)}
}

// Buffer is the experience stream buffer.
type Buffer struct {
	cap          capability.RLCapability
	maxBuffered  int
	batchSize    int
	streamsMu    sync.RWMutex
	streams      map[string]*stream
	total        int // approximate total across streams, guarded by streamsMu
	flushMu      sync.Mutex // excludes concurrent flush_all runs; does not block enqueue
}

// New constructs a Buffer backed by cap, bounded to maxBuffered total
// experiences across all streams, flushing batchSize at a time.
func New(cap capability.RLCapability, maxBuffered, batchSize int) *Buffer {
	return &Buffer{
		cap:         cap,
		maxBuffered: maxBuffered,
		batchSize:   batchSize,
		streams:     make(map[string]*stream),
	}
}

func (b *Buffer) streamFor(algorithm string) *stream {
	b.streamsMu.Lock()
	defer b.streamsMu.Unlock()
	s, ok := b.streams[algorithm]
	if !ok {
		s = newStream()
		b.streams[algorithm] = s
	}
	return s
}

// Enqueue is cheap and non-blocking: it only ever takes the single
// stream's lock plus a brief total-count update. Eviction is
// global-only (the stream with the longest backlog loses
// its oldest entry first) so the shared total stays the single source
// of truth for capacity — no per-stream cap double-counts against it.
func (b *Buffer) Enqueue(exp capability.Experience) {
	if exp.Timestamp.IsZero() {
		exp.Timestamp = time.Now().UTC()
	}
	s := b.streamFor(exp.Algorithm)

	s.mu.Lock()
	s.items.PushBack(exp)
	s.mu.Unlock()

	b.streamsMu.Lock()
	b.total++
	if b.maxBuffered > 0 && b.total > b.maxBuffered {
		b.dropOldestGloballyLocked()
	}
	b.streamsMu.Unlock()
}

// dropOldestGloballyLocked evicts one experience from the stream that
// currently holds the most, enforcing the global maxBuffered bound.
// Caller holds streamsMu.
func (b *Buffer) dropOldestGloballyLocked() {
	var victim *stream
	longest := -1
	for _, s := range b.streams {
		s.mu.Lock()
		n := s.items.Len()
		s.mu.Unlock()
		if n > longest {
			longest = n
			victim = s
		}
	}
	if victim == nil {
		return
	}
	victim.mu.Lock()
	if front := victim.items.Front(); front != nil {
		victim.items.Remove(front)
		delete(victim.retries, front)
		b.total--
	}
	victim.mu.Unlock()
}

// Depths returns the current length of every known stream, for
// monitoring/status surfaces.
func (b *Buffer) Depths() map[string]int {
	b.streamsMu.RLock()
	defer b.streamsMu.RUnlock()
	out := make(map[string]int, len(b.streams))
	for name, s := range b.streams {
		s.mu.Lock()
		out[name] = s.items.Len()
		s.mu.Unlock()
	}
	return out
}

// FlushAll drains every stream's pending experiences in batches of
// batchSize, invoking the RL capability once per batch. A failed batch
// is retained for a later flush (up to maxRetries), then dropped.
// FlushAll never runs concurrently with itself.
func (b *Buffer) FlushAll(ctx context.Context) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.streamsMu.RLock()
	names := make([]string, 0, len(b.streams))
	streams := make([]*stream, 0, len(b.streams))
	for name, s := range b.streams {
		names = append(names, name)
		streams = append(streams, s)
	}
	b.streamsMu.RUnlock()

	for i, s := range streams {
		b.flushStream(ctx, names[i], s)
	}
}

func (b *Buffer) flushStream(ctx context.Context, algorithm string, s *stream) {
	for {
		s.mu.Lock()
		if s.items.Len() == 0 {
			s.mu.Unlock()
			return
		}
		batch := make([]capability.Experience, 0, b.batchSize)
		elems := make([]*list.Element, 0, b.batchSize)
		for e := s.items.Front(); e != nil && len(batch) < b.batchSize; e = e.Next() {
			batch = append(batch, e.Value.(capability.Experience))
			elems = append(elems, e)
		}
		s.mu.Unlock()

		cctx, cancel := context.WithTimeout(ctx, capability.InferDeadline*12)
		err := b.cap.ProcessBatch(cctx, algorithm, batch)
		cancel()

		s.mu.Lock()
		if err != nil {
			slog.Warn("batch flush failed", "algorithm", algorithm, "error", err)
			dropped := 0
			for _, e := range elems {
				s.retries[e]++
				if s.retries[e] > maxRetries {
					s.items.Remove(e)
					delete(s.retries, e)
					dropped++
				}
			}
			if dropped > 0 {
				b.streamsMu.Lock()
				b.total -= dropped
				b.streamsMu.Unlock()
			}
			s.mu.Unlock()
			return
		}
		for _, e := range elems {
			s.items.Remove(e)
			delete(s.retries, e)
		}
		b.streamsMu.Lock()
		b.total -= len(elems)
		b.streamsMu.Unlock()
		s.mu.Unlock()
	}
}

// RealTimeSync forwards every buffered experience whose timestamp is
// after since, synchronously, to the capability's Infer path. It peeks
// but does not remove items, so FlushAll still batches them later.
func (b *Buffer) RealTimeSync(ctx context.Context, since time.Time) {
	b.streamsMu.RLock()
	streams := make(map[string]*stream, len(b.streams))
	for name, s := range b.streams {
		streams[name] = s
	}
	b.streamsMu.RUnlock()

	for algorithm, s := range streams {
		s.mu.Lock()
		var recent []capability.Experience
		for e := s.items.Front(); e != nil; e = e.Next() {
			exp := e.Value.(capability.Experience)
			if exp.Timestamp.After(since) {
				recent = append(recent, exp)
			}
		}
		s.mu.Unlock()

		for _, exp := range recent {
			cctx, cancel := context.WithTimeout(ctx, capability.InferDeadline)
			_, err := b.cap.Infer(cctx, algorithm, exp.State)
			cancel()
			if err != nil {
				slog.Warn("real-time sync infer failed", "algorithm", algorithm, "error", err)
			}
		}
	}
}
