// Package cache keeps recently looked up ranks in Redis so repeated fetches
// for the same lobby do not spend upstream quota.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/valstats/matchcache/internal/models"
)

var rankLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "matchcache_rank_cache_lookups_total",
	Help: "Rank cache lookups by result",
}, []string{"result"})

// KV is the slice of the Redis API the rank cache uses.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisKV implements KV using Redis
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps a client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

func (s *RedisKV) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *RedisKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

// RankCache stores tier names per (region, platform, puuid). Every failure
// degrades to a miss; the cache never fails a fetch.
type RankCache struct {
	kv     KV
	ttl    time.Duration
	logger *zap.SugaredLogger
}

// NewRankCache creates a cache with the given entry lifetime.
func NewRankCache(kv KV, ttl time.Duration, logger *zap.Logger) *RankCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankCache{kv: kv, ttl: ttl, logger: logger.Sugar()}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func rankKey(region, platform, puuid string) string {
	return "rank:" + region + ":" + platform + ":" + puuid
}

// Get returns a cached tier name.
func (c *RankCache) Get(ctx context.Context, region, platform, puuid string) (string, bool) {
	v, err := c.kv.Get(ctx, rankKey(region, platform, puuid))
	switch {
	case errors.Is(err, redis.Nil):
		rankLookups.WithLabelValues("miss").Inc()
		return "", false
	case err != nil:
		rankLookups.WithLabelValues("error").Inc()
		c.logger.Debugw("Rank cache read failed", "puuid", puuid, "error", err)
		return "", false
	case v == "":
		rankLookups.WithLabelValues("miss").Inc()
		return "", false
	}
	rankLookups.WithLabelValues("hit").Inc()
	return v, true
}

// Put stores a tier name. The default rank is not cached so a failed lookup
// is retried next time.
func (c *RankCache) Put(ctx context.Context, region, platform, puuid, rank string) {
	if rank == "" || rank == models.DefaultRank {
		return
	}
	if err := c.kv.Set(ctx, rankKey(region, platform, puuid), rank, c.ttl); err != nil {
		c.logger.Debugw("Rank cache write failed", "puuid", puuid, "error", err)
	}
}
