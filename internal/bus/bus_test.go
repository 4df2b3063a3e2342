package bus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func alwaysOK(context.Context) error { return nil }

func TestAdapterPublishSubscribeKafkaLikeBroadcast(t *testing.T) {
	routing := RoutingTable{"omni.learning.events": KafkaLike}
	a := NewAdapter(routing, alwaysOK, alwaysOK)

	var mu sync.Mutex
	var got []string
	cancel, err := a.Subscribe(context.Background(), "omni.learning.events", func(_ context.Context, _ string, p []byte) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(p))
	})
	require.NoError(t, err)
	defer cancel()

	// A second subscriber must also receive the broadcast (topic semantics).
	var got2 []string
	cancel2, err := a.Subscribe(context.Background(), "omni.learning.events", func(_ context.Context, _ string, p []byte) {
		mu.Lock()
		defer mu.Unlock()
		got2 = append(got2, string(p))
	})
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, a.Publish(context.Background(), "omni.learning.events", []byte("hello")))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"hello"}, got)
	require.Equal(t, []string{"hello"}, got2)
}

func TestAdapterAMQPLikeCompetingConsumers(t *testing.T) {
	routing := RoutingTable{"omni.rl.learning": AMQPLike}
	a := NewAdapter(routing, alwaysOK, alwaysOK)

	var mu sync.Mutex
	counts := map[string]int{}
	for _, name := range []string{"c1", "c2"} {
		name := name
		_, err := a.Subscribe(context.Background(), "omni.rl.learning", func(_ context.Context, _ string, _ []byte) {
			mu.Lock()
			defer mu.Unlock()
			counts[name]++
		})
		require.NoError(t, err)
	}

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Publish(context.Background(), "omni.rl.learning", []byte("x")))
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 10, counts["c1"]+counts["c2"])
	require.Greater(t, counts["c1"], 0)
	require.Greater(t, counts["c2"], 0)
}

func TestAdapterPublishUnroutedChannelIsNotFound(t *testing.T) {
	a := NewAdapter(RoutingTable{}, alwaysOK, alwaysOK)
	err := a.Publish(context.Background(), "unknown.channel", []byte("x"))
	require.Error(t, err)
}

func TestAdapterPublishFailsWhenBackendDisconnected(t *testing.T) {
	fails := errors.New("dial refused")
	dialer := func(context.Context) error { return fails }
	routing := RoutingTable{"omni.workflows": KafkaLike}
	a := NewAdapter(routing, dialer, alwaysOK)

	err := a.Publish(context.Background(), "omni.workflows", []byte("x"))
	require.Error(t, err)

	status := a.Health(context.Background())
	require.False(t, status.KafkaConnected)
	require.NotEmpty(t, status.LastError)
}

func TestAdapterHealthReconnects(t *testing.T) {
	routing := RoutingTable{"omni.workflows": KafkaLike}
	a := NewAdapter(routing, alwaysOK, alwaysOK)
	status := a.Health(context.Background())
	require.True(t, status.KafkaConnected)
	require.True(t, status.AMQPConnected)
}
