package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract.
func RunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()
	runID := "contract-test-run-" + time.Now().Format("20060102150405.000000000")

	newRun := func(id string) *domain.Run {
		now := time.Now().UTC()
		return &domain.Run{
			ID:        id,
			GraphID:   "graph-1",
			Status:    domain.RunRunning,
			State:     domain.NewState("alpha beta", 3),
			StartedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("Create and Load", func(t *testing.T) {
		require.NoError(t, store.Create(ctx, newRun(runID)))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, runID, loaded.ID)
		assert.Equal(t, "graph-1", loaded.GraphID)
		assert.Equal(t, domain.RunRunning, loaded.Status)
		assert.Equal(t, "alpha beta", loaded.State.InputText)
		assert.Empty(t, loaded.Log, "compact log starts empty")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("SaveSnapshot overwrites", func(t *testing.T) {
		state := domain.NewState("alpha beta", 3)
		state.RefinedSummary = "alpha"
		state.Done = true
		state.Append("check_length", domain.LevelInfo, "ok", "alpha")

		require.NoError(t, store.SaveSnapshot(ctx, runID, state))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.True(t, loaded.State.Done)
		assert.Equal(t, "alpha", loaded.State.RefinedSummary)
		require.Len(t, loaded.State.Log, 1)
		assert.Equal(t, "check_length", loaded.State.Log[0].Node)
	})

	t.Run("Snapshot is isolated from caller", func(t *testing.T) {
		state := domain.NewState("isolated", 3)
		require.NoError(t, store.SaveSnapshot(ctx, runID, state))

		state.InputText = "mutated after save"

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "isolated", loaded.State.InputText)

		loaded.State.InputText = "mutated after load"
		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, "isolated", again.State.InputText)
	})

	t.Run("AppendLog preserves order", func(t *testing.T) {
		for _, node := range []string{"split_text", "generate_summaries", "merge_summaries"} {
			entry := domain.LogEntry{
				Timestamp: time.Now().UTC(),
				Node:      node,
				Level:     domain.LevelInfo,
				Message:   "msg " + node,
			}
			require.NoError(t, store.AppendLog(ctx, runID, entry))
		}

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		require.Len(t, loaded.Log, 3)
		assert.Equal(t, "split_text", loaded.Log[0].Node)
		assert.Equal(t, "generate_summaries", loaded.Log[1].Node)
		assert.Equal(t, "merge_summaries", loaded.Log[2].Node)
		assert.Equal(t, "msg merge_summaries", loaded.Log[2].Message)
	})

	t.Run("Finish", func(t *testing.T) {
		require.NoError(t, store.Finish(ctx, runID, domain.RunFailed, "boom"))

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunFailed, loaded.Status)
		assert.Equal(t, "boom", loaded.Error)
	})

	t.Run("Unknown run writes", func(t *testing.T) {
		ghost := "ghost-" + runID
		assert.ErrorIs(t, store.SaveSnapshot(ctx, ghost, domain.NewState("", 0)), domain.ErrRunNotFound)
		assert.ErrorIs(t, store.AppendLog(ctx, ghost, domain.LogEntry{}), domain.ErrRunNotFound)
		assert.ErrorIs(t, store.Finish(ctx, ghost, domain.RunCompleted, ""), domain.ErrRunNotFound)
	})

	t.Run("List", func(t *testing.T) {
		other := runID + "-other"
		require.NoError(t, store.Create(ctx, newRun(other)))

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, runID)
		assert.Contains(t, ids, other)
	})
}
