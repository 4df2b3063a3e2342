package expbuffer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/cladc/internal/capability"
)

type fakeCapability struct {
	mu      sync.Mutex
	batches [][]capability.Experience
	fail    int32 // number of upcoming ProcessBatch calls to fail
	infers  int32 // number of Infer calls received
}

func (f *fakeCapability) ProcessBatch(_ context.Context, _ string, batch []capability.Experience) error {
	if atomic.LoadInt32(&f.fail) > 0 {
		atomic.AddInt32(&f.fail, -1)
		return context.DeadlineExceeded
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeCapability) Infer(_ context.Context, _ string, _ any) (any, error) {
	atomic.AddInt32(&f.infers, 1)
	return nil, nil
}

func (f *fakeCapability) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestEnqueueAndFlushAllBatchesByAlgorithm(t *testing.T) {
	cap := &fakeCapability{}
	b := New(cap, 1000, 2)
	for i := 0; i < 5; i++ {
		b.Enqueue(capability.Experience{Algorithm: "q_learning", Reward: float64(i)})
	}

	b.FlushAll(context.Background())

	require.Equal(t, 3, cap.batchCount()) // 2,2,1
	require.Empty(t, b.Depths()["q_learning"])
}

func TestFlushFailureRetainsBatchUpToMaxRetries(t *testing.T) {
	cap := &fakeCapability{fail: maxRetries + 1}
	b := New(cap, 1000, 10)
	b.Enqueue(capability.Experience{Algorithm: "policy_gradient"})

	for i := 0; i < maxRetries; i++ {
		b.FlushAll(context.Background())
		require.Equal(t, 1, b.Depths()["policy_gradient"])
	}
	b.FlushAll(context.Background())
	require.Equal(t, 0, b.Depths()["policy_gradient"])
}

func TestGlobalCapacityEviction(t *testing.T) {
	cap := &fakeCapability{}
	b := New(cap, 3, 10)
	for i := 0; i < 5; i++ {
		b.Enqueue(capability.Experience{Algorithm: "q_learning"})
	}
	total := 0
	for _, d := range b.Depths() {
		total += d
	}
	require.LessOrEqual(t, total, 3)
}

func TestFlushAllNeverRunsConcurrentlyWithItself(t *testing.T) {
	cap := &fakeCapability{}
	b := New(cap, 1000, 1)
	for i := 0; i < 20; i++ {
		b.Enqueue(capability.Experience{Algorithm: "actor_critic"})
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.FlushAll(context.Background())
		}()
	}
	wg.Wait()
	require.Empty(t, b.Depths()["actor_critic"])
}

func TestRealTimeSyncForwardsRecentExperiences(t *testing.T) {
	cap := &fakeCapability{}
	b := New(cap, 1000, 10)
	since := time.Now()
	time.Sleep(time.Millisecond)
	b.Enqueue(capability.Experience{Algorithm: "q_learning", State: "s1"})
	b.RealTimeSync(context.Background(), since)
	require.Equal(t, int32(1), atomic.LoadInt32(&cap.infers))
	// RealTimeSync peeks without removing; FlushAll should still see it.
	require.Equal(t, 1, b.Depths()["q_learning"])
}
