package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPublishReadAck(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	sub := NewStreamSubscriber(client, SubscriberConfig{
		Streams:  []string{"task_stream", "task_lifecycle"},
		Group:    "accounting",
		Consumer: "test-1",
		Block:    50 * time.Millisecond,
	})
	require.NoError(t, sub.EnsureGroups(ctx))
	// Running it twice hits BUSYGROUP, which is fine.
	require.NoError(t, sub.EnsureGroups(ctx))

	pub := NewStreamPublisher(client, 0)
	require.NoError(t, pub.Publish(ctx, "task_stream", "task-1", []byte(`{"event_name":"Task.Created"}`)))
	require.NoError(t, pub.Publish(ctx, "task_lifecycle", "task-1", []byte(`{"event_name":"Task.Completed"}`)))

	entries, err := sub.Read(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byStream := map[string]string{}
	for _, e := range entries {
		assert.Equal(t, "task-1", e.Key)
		byStream[e.Stream] = string(e.Payload)
		require.NoError(t, sub.Ack(ctx, e))
	}
	assert.JSONEq(t, `{"event_name":"Task.Created"}`, byStream["task_stream"])
	assert.JSONEq(t, `{"event_name":"Task.Completed"}`, byStream["task_lifecycle"])

	pending, err := client.XPending(ctx, "task_stream", "accounting").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestUnackedEntriesStayPending(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	sub := NewStreamSubscriber(client, SubscriberConfig{
		Streams:  []string{"task_stream"},
		Group:    "accounting",
		Consumer: "test-1",
		Block:    50 * time.Millisecond,
	})
	require.NoError(t, sub.EnsureGroups(ctx))

	pub := NewStreamPublisher(client, 0)
	require.NoError(t, pub.Publish(ctx, "task_stream", "task-1", []byte(`{}`)))

	entries, err := sub.Read(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	pending, err := client.XPending(ctx, "task_stream", "accounting").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)
}

func TestSubscriberNeverBlocksForever(t *testing.T) {
	sub := NewStreamSubscriber(newTestClient(t), SubscriberConfig{Streams: []string{"task_stream"}, Group: "accounting", Consumer: "test-1"})
	assert.Equal(t, 2*time.Second, sub.cfg.Block)
	assert.Equal(t, int64(10), sub.cfg.Count)
}
