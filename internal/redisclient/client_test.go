package redisclient

import (
	"context"
	"testing"
	"time"

	"storefront/internal/kvstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ kvstore.Store = (*Client)(nil)

func TestClientRoundTrip(t *testing.T) {
	t.Skip("Integration test - requires Redis")

	client, err := NewClient("localhost:6379", "", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	key := "test:cart:" + uuid.New().String()

	_, ok, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Set(ctx, key, `[]`))
	val, ok, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, val)

	set, err := client.SetNX(ctx, key+":idem", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, set)

	set, err = client.SetNX(ctx, key+":idem", "1", time.Minute)
	require.NoError(t, err)
	assert.False(t, set)

	lockKey := "test:session:" + uuid.New().String()
	locked, err := client.AcquireLock(ctx, lockKey, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, locked)

	require.NoError(t, client.ReleaseLock(ctx, lockKey, "b"))
	locked, err = client.AcquireLock(ctx, lockKey, "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, client.ReleaseLock(ctx, lockKey, "a"))
	require.NoError(t, client.Ping(ctx))
}
