package memory_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlabs/weft/pkg/memory"
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()

	server := miniredis.RunT(t)

	return memory.NewStore(redis.NewClient(&redis.Options{Addr: server.Addr()}))
}

func TestStoreAppendAndHistory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "wf-1", memory.RoleUser, "hello"))
	require.NoError(t, store.Append(ctx, "wf-1", memory.RoleAssistant, "hi there"))

	entries, err := store.History(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, memory.RoleUser, entries[0].Role)
	assert.Equal(t, "hello", entries[0].Content)
	assert.Equal(t, memory.RoleAssistant, entries[1].Role)
	assert.Equal(t, "hi there", entries[1].Content)
}

func TestStoreEvictsOldestBeyondLimit(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < memory.HistoryLimit+5; i++ {
		require.NoError(t, store.Append(ctx, "wf-1", memory.RoleUser, fmt.Sprintf("turn %d", i)))
	}

	entries, err := store.History(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, entries, memory.HistoryLimit)

	assert.Equal(t, "turn 5", entries[0].Content)
	assert.Equal(t, fmt.Sprintf("turn %d", memory.HistoryLimit+4), entries[len(entries)-1].Content)
}

func TestStoreHistoryIsPerWorkflow(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "wf-1", memory.RoleUser, "one"))
	require.NoError(t, store.Append(ctx, "wf-2", memory.RoleUser, "two"))

	entries, err := store.History(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "one", entries[0].Content)
}

func TestStoreEmptyHistory(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	entries, err := store.History(context.Background(), "wf-none")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
