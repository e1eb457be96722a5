// Package cache is a best-effort Redis read-through layer. Redis failures
// are logged and fall back to the loader; they never fail a request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Store wraps a Redis client with a singleflight group so concurrent misses
// on the same key trigger one load.
type Store struct {
	rdb   redis.Cmdable
	group singleflight.Group
	log   zerolog.Logger
}

// NewStore creates a Store. A nil client disables caching.
func NewStore(rdb redis.Cmdable, log zerolog.Logger) *Store {
	return &Store{
		rdb: rdb,
		log: log.With().Str("component", "cache").Logger(),
	}
}

// Fetch returns the cached value under key, or calls load, caches its
// result for ttl and returns it.
func Fetch[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				return v, nil
			}
			s.log.Warn().Str("key", key).Msg("Dropping undecodable cache entry")
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Str("key", key).Msg("Cache read failed, loading from source")
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if s.rdb != nil {
			if data, err := json.Marshal(v); err == nil {
				if err := s.rdb.Set(ctx, key, data, ttl).Err(); err != nil {
					s.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
				}
			}
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Invalidate removes keys. Errors are logged.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if s.rdb == nil || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		s.log.Warn().Err(err).Strs("keys", keys).Msg("Cache invalidation failed")
	}
}
