// Package cache provides an optional Redis-backed memoization layer
// for processed documents, keyed by a digest of the text and the
// configuration facets that influence its result.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/piiguard/piiguard/internal/config"
)

// ResultCache caches per-document processing results in Redis.
type ResultCache struct {
	client *redis.Client
	cfg    config.CacheConfig
	logger *zap.Logger
	hits   int64
	misses int64
}

// Key builds a cache key from the document text and the config
// fingerprint. Both feed one digest so a config change can never
// serve a stale result.
func Key(text, fingerprint string) string {
	hasher := sha256.New()
	hasher.Write([]byte(text))
	hasher.Write([]byte{0})
	hasher.Write([]byte(fingerprint))
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// NewResultCache connects to Redis and verifies the connection.
func NewResultCache(cfg config.CacheConfig, logger *zap.Logger) (*ResultCache, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = cfg.MaxConnections
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	rc := &ResultCache{
		client: client,
		cfg:    cfg,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Result cache initialized",
		zap.String("redis_url", maskRedisURL(cfg.RedisURL)),
		zap.Int("max_connections", cfg.MaxConnections),
		zap.Duration("default_ttl", cfg.DefaultTTL))

	return rc, nil
}

// Get looks up a cached result. Lookup failures count as misses; the
// caller recomputes either way.
func (rc *ResultCache) Get(ctx context.Context, key string) (*CachedResult, bool) {
	data, err := rc.client.Get(ctx, rc.redisKey(key)).Result()
	if err == redis.Nil {
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	} else if err != nil {
		rc.logger.Error("Cache lookup failed", zap.Error(err))
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}

	var cached CachedResult
	if err := json.Unmarshal([]byte(data), &cached); err != nil {
		rc.logger.Error("Failed to unmarshal cached result", zap.Error(err))
		rc.client.Del(ctx, rc.redisKey(key))
		atomic.AddInt64(&rc.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&rc.hits, 1)
	rc.logger.Debug("Cache hit", zap.String("key", key))
	return &cached, true
}

// Store caches one result under the configured TTL. Failures are
// logged, not surfaced: the cache is best-effort.
func (rc *ResultCache) Store(ctx context.Context, key string, result *CachedResult) {
	result.CachedAt = time.Now()
	result.TTL = int64(rc.cfg.DefaultTTL.Seconds())

	data, err := json.Marshal(result)
	if err != nil {
		rc.logger.Error("Failed to marshal result for caching", zap.Error(err))
		return
	}

	if err := rc.client.Set(ctx, rc.redisKey(key), data, rc.cfg.DefaultTTL).Err(); err != nil {
		rc.logger.Error("Failed to cache result", zap.Error(err))
		return
	}

	rc.logger.Debug("Result cached", zap.String("key", key))
}

// StoreBatch caches multiple results through one Redis pipeline.
func (rc *ResultCache) StoreBatch(ctx context.Context, keys []string, results []*CachedResult) error {
	if len(keys) != len(results) {
		return fmt.Errorf("keys and results length mismatch")
	}
	if len(results) == 0 {
		return nil
	}

	pipe := rc.client.Pipeline()
	for i, result := range results {
		result.CachedAt = time.Now()
		result.TTL = int64(rc.cfg.DefaultTTL.Seconds())

		data, err := json.Marshal(result)
		if err != nil {
			rc.logger.Error("Failed to marshal result for batch caching", zap.Error(err))
			continue
		}
		pipe.Set(ctx, rc.redisKey(keys[i]), data, rc.cfg.DefaultTTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("batch cache operation failed: %w", err)
	}

	rc.logger.Debug("Batch cache operation completed", zap.Int("cached_results", len(results)))
	return nil
}

// GetStats returns cache performance statistics.
func (rc *ResultCache) GetStats(ctx context.Context) (*Stats, error) {
	info, err := rc.client.Info(ctx, "memory").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get Redis info: %w", err)
	}

	stats := &Stats{
		Hits:   atomic.LoadInt64(&rc.hits),
		Misses: atomic.LoadInt64(&rc.misses),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total) * 100
	}

	for _, line := range strings.Split(info, "\r\n") {
		if memStr, ok := strings.CutPrefix(line, "used_memory:"); ok {
			if mem, err := strconv.ParseInt(memStr, 10, 64); err == nil {
				stats.MemoryUsage = mem
			}
		}
	}

	if keys, err := rc.client.DBSize(ctx).Result(); err == nil {
		stats.TotalKeys = keys
	}

	return stats, nil
}

// Clear removes all cached results under this cache's prefix.
func (rc *ResultCache) Clear(ctx context.Context) error {
	iter := rc.client.Scan(ctx, 0, rc.cfg.KeyPrefix+":res:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	const batchSize = 100
	for i := 0; i < len(keys); i += batchSize {
		end := i + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err := rc.client.Del(ctx, keys[i:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", err)
		}
	}

	rc.logger.Info("Cache cleared", zap.Int("deleted_keys", len(keys)))
	return nil
}

// Close closes the Redis connection.
func (rc *ResultCache) Close() error {
	if rc.client != nil {
		return rc.client.Close()
	}
	return nil
}

func (rc *ResultCache) redisKey(key string) string {
	return fmt.Sprintf("%s:res:%s", rc.cfg.KeyPrefix, key)
}

// maskRedisURL masks credentials in a Redis URL for logging.
func maskRedisURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
