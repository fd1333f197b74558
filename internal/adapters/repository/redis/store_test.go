package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowgraph/portgraph/internal/adapters/repository/redis"
	"github.com/flowgraph/portgraph/internal/core/store"
	"github.com/flowgraph/portgraph/internal/core/store/storetest"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	storetest.RunContract(t, func(t *testing.T) store.Store {
		_, client := newClient(t)
		s := redis.NewFromClient(client)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestRedisStore_Prefix(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	s := redis.NewFromClient(client, redis.WithPrefix("test:"))
	defer s.Close()

	require.NoError(t, s.Save(ctx, storetest.NewRecord("m-1", "alpha", time.Now())))
	assert.True(t, mr.Exists("test:m-1"))
	assert.True(t, mr.Exists("test:index"))
	assert.Equal(t, "archive-m-1", mr.HGet("test:m-1", "data"))
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	s := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	defer s.Close()

	require.NoError(t, s.Save(ctx, storetest.NewRecord("m-1", "alpha", time.Now())))
	_, err := s.Load(ctx, "m-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = s.Load(ctx, "m-1")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)

	list, err := s.List(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
