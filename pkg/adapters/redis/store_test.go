package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/flow/pkg/adapters/redis"
	"github.com/aretw0/flow/pkg/domain"
	"github.com/aretw0/flow/pkg/ports"
	contract "github.com/aretw0/flow/pkg/ports/tests"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)

	// Run contract
	store := redis.NewFromClient(client)
	ports.RunGraphStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)

	// Custom Prefix
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	id := uuid.New()

	err := store.Save(ctx, &domain.GraphDefinition{ID: id, Name: "start"})
	assert.NoError(t, err)

	// Key should be "custom:app:<id>"
	assert.True(t, mr.Exists("custom:app:"+id.String()), "Expected key with custom prefix to exist")

	// Index should be "custom:app:index"
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, id)
}

func TestRedisStore_Graphs(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &domain.GraphDefinition{
		ID:    uuid.New(),
		Name:  "a",
		Nodes: []domain.NodeDescription{{"type": "Value", "value": true, "out": 1}},
	}))
	require.NoError(t, store.Save(ctx, &domain.GraphDefinition{ID: uuid.New(), Name: "b"}))

	// A dangling index entry and a garbage one are ignored
	mr.SAdd("flow:graph:index", uuid.NewString(), "not-a-uuid")

	contract.GraphSourceContractTest(t, store, map[string]int{"a": 1, "b": 0})
}

func TestRedisLocker(t *testing.T) {
	_, client := setup(t)
	locker := redis.NewLocker(client, "flow:")
	ctx := context.Background()

	// 1. Acquire
	unlock, err := locker.Lock(ctx, "graph-1", time.Minute)
	require.NoError(t, err)

	// 2. Contended acquire times out
	short, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(short, "graph-1", time.Minute)
	assert.ErrorIs(t, err, redis.ErrLockAcquire)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// 3. Other keys are independent
	other, err := locker.Lock(ctx, "graph-2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	// 4. Release and re-acquire
	require.NoError(t, unlock(ctx))
	again, err := locker.Lock(ctx, "graph-1", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, again(ctx))
}

func TestRedisLocker_ExpiredLockIsNotStolen(t *testing.T) {
	mr, client := setup(t)
	locker := redis.NewLocker(client, "flow:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "graph", time.Second)
	require.NoError(t, err)

	// The first holder's lease runs out and someone else takes it
	mr.FastForward(2 * time.Second)
	second, err := locker.Lock(ctx, "graph", time.Minute)
	require.NoError(t, err)

	// The stale unlock must not release the new holder
	require.NoError(t, unlock(ctx))
	assert.True(t, mr.Exists("flow:lock:graph"))
	require.NoError(t, second(ctx))
	assert.False(t, mr.Exists("flow:lock:graph"))
}
