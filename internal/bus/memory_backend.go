package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Dialer attempts to establish (or re-establish) a backend connection. The
// real client implementation lives outside this package's scope; tests
// and the default wiring supply an always-succeeds dialer, while
// failure-injection tests supply one that fails until flipped.
type Dialer func(ctx context.Context) error

// memoryBroker is the shared delivery core for both backend flavors: an
// in-process channel fan-out standing in for the real broker connection.
// A channel->subscribers map is guarded by its own mutex and snapshotted
// before sends, so a slow handler never blocks subscribe/unsubscribe.
type memoryBroker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscription // channel -> subs
	nextID      int

	connMu    sync.RWMutex
	isConn    bool
	lastErr   string
	dialer    Dialer
	backoff   backoffState
	backendID string
}

type subscription struct {
	id      int
	handler Handler
}

func newMemoryBroker(backendID string, dialer Dialer) *memoryBroker {
	b := &memoryBroker{
		subscribers: make(map[string][]*subscription),
		dialer:      dialer,
		backendID:   backendID,
	}
	return b
}

func (b *memoryBroker) connected() bool {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.isConn
}

func (b *memoryBroker) lastError() string {
	b.connMu.RLock()
	defer b.connMu.RUnlock()
	return b.lastErr
}

// reconnect attempts to (re)establish the backend connection. It is safe to
// call concurrently: only one goroutine performs the dial at a time, the
// rest return the last known status immediately.
func (b *memoryBroker) reconnect(ctx context.Context) error {
	if b.connected() {
		return nil
	}
	if !b.backoff.tryAcquire() {
		return fmt.Errorf("%s: reconnect already in flight", b.backendID)
	}
	defer b.backoff.release()

	delay := b.backoff.next()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timeAfter(delay):
	}

	err := b.dialer(ctx)
	b.connMu.Lock()
	defer b.connMu.Unlock()
	if err != nil {
		b.lastErr = err.Error()
		slog.Warn("bus backend reconnect failed", "backend", b.backendID, "error", err)
		return err
	}
	b.isConn = true
	b.lastErr = ""
	b.backoff.reset()
	slog.Info("bus backend connected", "backend", b.backendID)
	return nil
}

func (b *memoryBroker) markDisconnected(reason string) {
	b.connMu.Lock()
	defer b.connMu.Unlock()
	b.isConn = false
	b.lastErr = reason
}

func (b *memoryBroker) addSubscriber(channel string, h Handler) CancelFunc {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	sub := &subscription{id: id, handler: h}
	b.subscribers[channel] = append(b.subscribers[channel], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[channel]
		for i, s := range subs {
			if s.id == id {
				b.subscribers[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

func (b *memoryBroker) snapshot(channel string) []*subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.subscribers[channel]
	out := make([]*subscription, len(subs))
	copy(out, subs)
	return out
}

// timeAfter is a package variable (defaulting to defaultTimeAfter in
// clock.go) so tests can replace it with a fake clock.
var timeAfter = defaultTimeAfter
