package overpass

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iKamranShahzad/osm-boundaries-importer/internal/logger"
	"github.com/iKamranShahzad/osm-boundaries-importer/internal/metrics"
)

// Cache stores successful Overpass response bodies in redis, keyed by a
// digest of the query text. A nil *Cache is valid and caches nothing, so
// callers never have to branch on whether redis is configured.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache wraps rdb; returns nil when rdb is nil.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if rdb == nil {
		return nil
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// RedisFromEnv opens the cache backend from REDIS_ADDR, REDIS_PASS and
// REDIS_DB. Returns nil when no address is configured.
func RedisFromEnv() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return nil
	}
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			db = n
		}
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASS"),
		DB:       db,
	})
}

// Get returns a previously cached response body for query, if any. Cache
// errors degrade to a miss.
func (c *Cache) Get(ctx context.Context, query string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	body, err := c.rdb.Get(ctx, cacheKey(query)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn().Err(err).Msg("overpass cache read failed")
		}
		metrics.CacheMissesTotal.Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.Inc()
	return body, true
}

// Set stores a successful response body for query.
func (c *Cache) Set(ctx context.Context, query string, body []byte) {
	if c == nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(query), body, c.ttl).Err(); err != nil {
		logger.L().Warn().Err(err).Msg("overpass cache write failed")
	}
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "overpass:" + hex.EncodeToString(sum[:])
}
