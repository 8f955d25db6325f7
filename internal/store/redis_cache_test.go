package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/urls-node/internal/dbconn"
	"github.com/serroba/urls-node/internal/shortener"
	"github.com/serroba/urls-node/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unreachableRedis points at a port nothing listens on.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisCacheRepository_CacheUnavailable(t *testing.T) {
	t.Run("insert succeeds when the cache is down", func(t *testing.T) {
		backing := store.NewMemoryStore()
		repo := store.NewRedisCacheRepository(backing, unreachableRedis(t), time.Minute)

		err := repo.Insert(context.Background(), testMapping("abc1234"))

		require.NoError(t, err)
		assert.Equal(t, 1, backing.Len())
	})

	t.Run("lookups fall through to the store", func(t *testing.T) {
		backing := store.NewMemoryStore()
		_ = backing.Insert(context.Background(), testMapping("abc1234"))
		repo := store.NewRedisCacheRepository(backing, unreachableRedis(t), time.Minute)

		got, err := repo.FindByShortID(context.Background(), "abc1234")

		require.NoError(t, err)
		assert.Equal(t, "https://example.com", got.URL)
	})

	t.Run("store errors pass through", func(t *testing.T) {
		repo := store.NewRedisCacheRepository(store.NewMemoryStore(), unreachableRedis(t), time.Minute)

		_, err := repo.FindByShortID(context.Background(), "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestCachedFactory(t *testing.T) {
	backing := store.NewMemoryStore()
	next := func(_ dbconn.Conn) shortener.Repository { return backing }

	factory := store.CachedFactory(next, unreachableRedis(t), time.Minute)
	repo := factory(&fakeConn{})

	assert.IsType(t, &store.RedisCacheRepository{}, repo)
	require.NoError(t, repo.Insert(context.Background(), testMapping("abc1234")))
	assert.Equal(t, 1, backing.Len())
}
