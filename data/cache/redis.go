package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/metrics"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a count may be served after it was read.
const DefaultTTL = time.Minute

// Counts keeps one Redis hash of filter counts per collection. Invalidating
// a collection drops its hash.
type Counts struct {
	rc        redis.UniversalClient
	prefix    string
	ttl       time.Duration
	collector metrics.Collector
}

// NewCounts creates a count cache on rc. Keys are "<prefix>:counts:<collection>".
func NewCounts(rc redis.UniversalClient, prefix string, ttl time.Duration, collector metrics.Collector) *Counts {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}
	return &Counts{rc: rc, prefix: prefix, ttl: ttl, collector: collector}
}

// Key returns the hash holding the counts of collection.
func (c *Counts) Key(collection string) string {
	if c.prefix == "" {
		return "counts:" + collection
	}
	return fmt.Sprintf("%s:counts:%s", c.prefix, collection)
}

// Count returns the cached count of key, and false on a miss.
func (c *Counts) Count(ctx context.Context, collection, key string) (int64, bool, error) {
	if c.rc == nil {
		return 0, false, errors.New("redis client is nil, cannot get cache")
	}
	n, err := c.rc.HGet(ctx, c.Key(collection), key).Int64()
	if errors.Is(err, redis.Nil) {
		c.collector.RedisCommand("hget", nil)
		return 0, false, nil
	}
	c.collector.RedisCommand("hget", err)
	if err != nil {
		return 0, false, fmt.Errorf("failed to get cache: %w", err)
	}
	return n, true, nil
}

// SetCount stores n under key and refreshes the hash expiry.
func (c *Counts) SetCount(ctx context.Context, collection, key string, n int64) error {
	if c.rc == nil {
		return errors.New("redis client is nil, cannot set cache")
	}
	hash := c.Key(collection)
	_, err := c.rc.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, hash, key, strconv.FormatInt(n, 10))
		p.Expire(ctx, hash, c.ttl)
		return nil
	})
	c.collector.RedisCommand("hset", err)
	if err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Invalidate drops every count of collection.
func (c *Counts) Invalidate(ctx context.Context, collection string) error {
	if c.rc == nil {
		return errors.New("redis client is nil, cannot delete cache")
	}
	err := c.rc.Del(ctx, c.Key(collection)).Err()
	c.collector.RedisCommand("del", err)
	if err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

// NewClient connects to the configured server and pings it.
func NewClient(ctx context.Context, cfg *config.Redis) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis: address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.Db,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		DialTimeout:  cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: failed to ping server: %w", err)
	}
	return client, nil
}
