package queue_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue(t *testing.T) (*queue.Queue, *miniredis.Miniredis) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})

	return queue.NewQueue(client, "", testLogger()), server
}

func TestQueueEnqueueRoundTrip(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnsureGroup(ctx))
	require.NoError(t, q.Enqueue(ctx, "exec-1", "wf-1", map[string]any{"name": "Ada"}))

	messages, err := q.Read(ctx, "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	assert.Equal(t, "exec-1", messages[0].ExecutionID)
	assert.Equal(t, "wf-1", messages[0].WorkflowID)
	assert.Equal(t, map[string]any{"name": "Ada"}, messages[0].Payload)
	assert.NotEmpty(t, messages[0].ID)
}

func TestQueueEnsureGroupIsIdempotent(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnsureGroup(ctx))
	require.NoError(t, q.EnsureGroup(ctx))
}

func TestQueueGroupSeesMessagesEnqueuedBeforeGroupExisted(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, "exec-1", "wf-1", nil))
	require.NoError(t, q.EnsureGroup(ctx))

	messages, err := q.Read(ctx, "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestQueueMessageClaimedByOneConsumer(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnsureGroup(ctx))
	require.NoError(t, q.Enqueue(ctx, "exec-1", "wf-1", nil))

	first, err := q.Read(ctx, "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := q.Read(ctx, "consumer-2", 10, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestQueueAckClearsPending(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnsureGroup(ctx))
	require.NoError(t, q.Enqueue(ctx, "exec-1", "wf-1", nil))

	messages, err := q.Read(ctx, "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	require.NoError(t, q.Ack(ctx, messages[0].ID))

	pending, err = q.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestQueueUnackedMessageStaysPending(t *testing.T) {
	t.Parallel()

	q, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.EnsureGroup(ctx))
	require.NoError(t, q.Enqueue(ctx, "exec-1", "wf-1", nil))

	_, err := q.Read(ctx, "consumer-1", 10, 10*time.Millisecond)
	require.NoError(t, err)

	// Not acked: the entry stays on the group's pending list for reclaim.
	pending, err := q.Pending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}
