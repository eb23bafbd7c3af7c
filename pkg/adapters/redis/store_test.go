package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/daydream/pkg/adapters/redis"
	"github.com/aretw0/daydream/pkg/domain"
	"github.com/aretw0/daydream/pkg/ports"
	"github.com/benbjohnson/clock"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunStateStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	mock := clock.NewMock()
	mock.Set(time.Now())

	store := redis.NewFromClient(client, redis.WithTTL(time.Second), redis.WithClock(mock))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "session-ttl", []byte(`{"steps":[],"currentStepIndex":-1}`)))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "session-ttl")

	mr.FastForward(2 * time.Second)
	mock.Add(2 * time.Second)

	_, err = store.Load(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", []byte(`{}`)))

	assert.True(t, mr.Exists("custom:s1"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"s1"))
	require.NoError(t, store.Ping(ctx))
}
