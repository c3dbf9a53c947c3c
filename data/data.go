package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ncobase/docmapper/data/cache"
	"github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/metrics"
	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/logging/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// Data represents the data layer implementation
type Data struct {
	Mongo *mongodb.MongoManager
	DB    mongodb.Database
	Redis *redis.Client

	stats     *metrics.DataCollector
	collector metrics.Collector
	registry  prometheus.Registerer
	database  mongodb.Database
	breaker   *config.Breaker
	counts    mongodb.CountCache
}

// Option function type for configuring Data
type Option func(*Data)

// WithMetricsCollector adds a collector next to the built-in counters
func WithMetricsCollector(collector metrics.Collector) Option {
	return func(d *Data) {
		if collector != nil {
			d.collector = collector
		}
	}
}

// WithRegisterer sets the registry Prometheus metrics are registered with
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Data) {
		d.registry = reg
	}
}

// WithDatabase uses db instead of connecting to the configured nodes
func WithDatabase(db mongodb.Database) Option {
	return func(d *Data) {
		d.database = db
	}
}

// WithCountCache makes repositories read page totals through c
func WithCountCache(c mongodb.CountCache) Option {
	return func(d *Data) {
		d.counts = c
	}
}

// New creates new data layer
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Data, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("data config is nil")
	}

	d := &Data{stats: metrics.NewDataCollector()}
	for _, opt := range opts {
		opt(d)
	}

	collectors := []metrics.Collector{d.stats, d.collector}
	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		reg := d.registry
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		pc, err := metrics.NewPrometheusCollector(cfg.Metrics.Namespace, reg)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		collectors = append(collectors, pc)
	}
	d.collector = metrics.Fanout(collectors...)
	d.breaker = cfg.Breaker

	db := d.database
	if db == nil {
		manager, routed, err := mongodb.Open(ctx, cfg.MongoDB, d.collector)
		if err != nil {
			return nil, nil, err
		}
		d.Mongo = manager
		db = routed
	}
	d.DB = mongodb.NewBreakerDatabase(db, cfg.Breaker, d.collector)

	if d.counts == nil && cfg.Redis.Enabled() {
		rc, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			_ = d.Close(ctx)
			return nil, nil, err
		}
		d.Redis = rc
		d.counts = cache.NewCounts(rc, cfg.Redis.KeyPrefix, cfg.Redis.TTL, d.collector)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Close(ctx); err != nil {
			logger.Errorf(ctx, "cleanup errors: %v", err)
		}
	}

	return d, cleanup, nil
}

// NewRepository binds T to a collection of d, reporting to d's collectors.
func NewRepository[T any](d *Data, collection string, opts ...mongodb.RepositoryOption) (*mongodb.Repository[T], error) {
	base := []mongodb.RepositoryOption{mongodb.WithMetrics(d.collector)}
	if d.counts != nil {
		base = append(base, mongodb.WithCountCache(d.counts))
	}
	opts = append(base, opts...)
	return mongodb.NewRepository[T](d.DB, mongodb.Options{Collection: collection}, opts...)
}

// GetMetricsCollector returns the metrics collector
func (d *Data) GetMetricsCollector() metrics.Collector {
	return d.collector
}

// GetStats returns data layer statistics
func (d *Data) GetStats() map[string]any {
	return d.stats.GetStats()
}

// Health pings the store when connected.
func (d *Data) Health(ctx context.Context) map[string]any {
	health := map[string]any{
		"timestamp": time.Now(),
		"status":    "healthy",
	}
	if d.Mongo != nil {
		start := time.Now()
		err := d.Mongo.Health(ctx)
		mongo := map[string]any{
			"healthy":     err == nil,
			"response_ms": time.Since(start).Milliseconds(),
		}
		if err != nil {
			mongo["error"] = err.Error()
			health["status"] = "degraded"
		}
		health["mongodb"] = mongo
	}

	if d.Redis != nil {
		err := d.Redis.Ping(ctx).Err()
		d.collector.HealthCheck("redis", err == nil)
		rs := map[string]any{"healthy": err == nil}
		if err != nil {
			rs["error"] = err.Error()
			health["status"] = "degraded"
		}
		health["redis"] = rs
	}
	return health
}

// Close closes all data connections
func (d *Data) Close(ctx context.Context) error {
	var errs []error
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if d.Mongo != nil {
		if err := d.Mongo.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
