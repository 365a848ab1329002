// cache.go
//
// A link-in-bio profile service for linkz.bio
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of linkz-bio.
// linkz-bio is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// linkz-bio is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with linkz-bio.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/localnerve/linkz-bio/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	profileCachePrefix      = "linkz:profile:"
	profileGenerationPrefix = "linkz:profile-gen:"
)

// ProfileCache holds encoded public profile projections by username.
// Readers take Generation before loading from the store and hand it to Set,
// which drops the entry if the username was invalidated in between.
type ProfileCache interface {
	Get(ctx context.Context, username string) ([]byte, bool)
	Generation(ctx context.Context, username string) int64
	Set(ctx context.Context, username string, data []byte, generation int64)
	Invalidate(ctx context.Context, usernames ...string)
}

// NoopCache is the ProfileCache used when no cache is configured
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (NoopCache) Generation(context.Context, string) int64 { return 0 }
func (NoopCache) Set(context.Context, string, []byte, int64) {}
func (NoopCache) Invalidate(context.Context, ...string) {}

// NewRedisClient connects to REDIS_URL, or returns nil when it is unset
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if cfg.RedisPassword != "" {
		opts.Password = cfg.RedisPassword
	}

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// RedisProfileCache is a ProfileCache backed by Redis. Cache failures are
// logged and otherwise treated as misses.
type RedisProfileCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *zap.Logger
}

// NewRedisProfileCache creates a RedisProfileCache
func NewRedisProfileCache(rdb *redis.Client, ttl time.Duration, log *zap.Logger) *RedisProfileCache {
	return &RedisProfileCache{rdb: rdb, ttl: ttl, log: log}
}

// Get implements ProfileCache
func (c *RedisProfileCache) Get(ctx context.Context, username string) ([]byte, bool) {
	data, err := c.rdb.Get(ctx, profileCachePrefix+username).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("profile cache read failed", zap.String("username", username), zap.Error(err))
		}
		return nil, false
	}
	return data, true
}

// setIfCurrent stores KEYS[1] only while the generation counter KEYS[2]
// still equals ARGV[2].
var setIfCurrent = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current ~= tonumber(ARGV[2]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

// Generation implements ProfileCache. A read failure returns -1, which no
// Set will match.
func (c *RedisProfileCache) Generation(ctx context.Context, username string) int64 {
	gen, err := c.rdb.Get(ctx, profileGenerationPrefix+username).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0
		}
		c.log.Warn("profile cache generation read failed", zap.String("username", username), zap.Error(err))
		return -1
	}
	return gen
}

// Set implements ProfileCache
func (c *RedisProfileCache) Set(ctx context.Context, username string, data []byte, generation int64) {
	if generation < 0 || c.ttl <= 0 {
		return
	}
	keys := []string{profileCachePrefix + username, profileGenerationPrefix + username}
	stored, err := setIfCurrent.Run(ctx, c.rdb, keys, data, generation, c.ttl.Milliseconds()).Int()
	if err != nil {
		c.log.Warn("profile cache write failed", zap.String("username", username), zap.Error(err))
		return
	}
	if stored == 0 {
		c.log.Debug("profile cache write skipped after invalidation", zap.String("username", username))
	}
}

// Invalidate implements ProfileCache. Bumping the generation first keeps
// reads that started before the write from refilling the entry.
func (c *RedisProfileCache) Invalidate(ctx context.Context, usernames ...string) {
	var names []string
	for _, u := range usernames {
		if u != "" {
			names = append(names, u)
		}
	}
	if len(names) == 0 {
		return
	}
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, u := range names {
			pipe.Incr(ctx, profileGenerationPrefix+u)
			pipe.Del(ctx, profileCachePrefix+u)
		}
		return nil
	})
	if err != nil {
		c.log.Warn("profile cache invalidation failed", zap.Strings("usernames", names), zap.Error(err))
	}
}
