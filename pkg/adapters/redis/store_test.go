package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stepflow/pkg/adapters/redis"
	"github.com/aretw0/stepflow/pkg/domain"
	"github.com/aretw0/stepflow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	return redis.NewFromClient(client, opts...), mr
}

func TestRedisStore_Contract(t *testing.T) {
	store, _ := newStore(t)
	ports.RunStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("custom:"))
	ctx := context.Background()

	err := store.Create(ctx, &domain.Run{
		ID:        "r1",
		Status:    domain.RunRunning,
		State:     domain.NewState("x", 1),
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, store.AppendLog(ctx, "r1", domain.LogEntry{Node: "a"}))

	assert.True(t, mr.Exists("custom:r1"))
	assert.True(t, mr.Exists("custom:r1:log"))
	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	store, mr := newStore(t, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	runID := "run-ttl"

	// 1. Create
	err := store.Create(ctx, &domain.Run{
		ID:        runID,
		Status:    domain.RunRunning,
		State:     domain.NewState("x", 1),
		StartedAt: time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, store.AppendLog(ctx, runID, domain.LogEntry{Node: "a"}))

	// 2. Verify List (immediately)
	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, runs, runID)

	// 3. Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	// 4. Verify Load (should fail)
	_, err = store.Load(ctx, runID)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
	assert.False(t, mr.Exists("stepflow:run:"+runID+":log"))
}
