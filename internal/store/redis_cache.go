package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/urls-node/internal/dbconn"
	"github.com/serroba/urls-node/internal/shortener"
)

const mappingKeyPrefix = "urls-node:mapping:"

// RedisCacheRepository wraps a Repository with a Redis read cache. Mappings are
// immutable, so a cached entry never goes stale; the TTL only bounds memory.
// Cache failures fall through to the wrapped store.
type RedisCacheRepository struct {
	store  shortener.Repository
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCacheRepository creates a Redis-cached repository decorator.
func NewRedisCacheRepository(store shortener.Repository, client redis.Cmdable, ttl time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:  store,
		client: client,
		ttl:    ttl,
	}
}

// CachedFactory wraps every repository produced by next with the Redis cache.
func CachedFactory(next shortener.RepositoryFactory, client redis.Cmdable, ttl time.Duration) shortener.RepositoryFactory {
	return func(conn dbconn.Conn) shortener.Repository {
		return NewRedisCacheRepository(next(conn), client, ttl)
	}
}

// Insert stores the mapping and writes it through to the cache.
func (r *RedisCacheRepository) Insert(ctx context.Context, mapping *shortener.Mapping) error {
	if err := r.store.Insert(ctx, mapping); err != nil {
		return err
	}

	r.cacheMapping(ctx, mapping)

	return nil
}

// FindByShortID checks the cache before the wrapped store.
func (r *RedisCacheRepository) FindByShortID(ctx context.Context, id shortener.ShortID) (*shortener.Mapping, error) {
	if mapping, ok := r.getFromCache(ctx, id); ok {
		return mapping, nil
	}

	mapping, err := r.store.FindByShortID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMapping(ctx, mapping)

	return mapping, nil
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, id shortener.ShortID) (*shortener.Mapping, bool) {
	result, err := r.client.HGetAll(ctx, mappingKeyPrefix+string(id)).Result()
	if err != nil || len(result) == 0 {
		return nil, false
	}

	url, ok := result["url"]
	if !ok {
		return nil, false
	}

	var createdAt time.Time

	if ts, ok := result["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &shortener.Mapping{
		ShortID:     id,
		URL:         url,
		CreatedAt:   createdAt,
		RequesterIP: result["requester_ip"],
	}, true
}

func (r *RedisCacheRepository) cacheMapping(ctx context.Context, mapping *shortener.Mapping) {
	key := mappingKeyPrefix + string(mapping.ShortID)

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"url":          mapping.URL,
		"created_at":   mapping.CreatedAt.UnixNano(),
		"requester_ip": mapping.RequesterIP,
	})

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, _ = pipe.Exec(ctx)
}

var _ shortener.Repository = (*RedisCacheRepository)(nil)
