package mongodb

import (
	"context"
	"errors"
	"sync"

	"github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/metrics"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// breakerCollection fails fast while the store keeps failing.
type breakerCollection struct {
	Collection
	cb *gobreaker.CircuitBreaker
}

// NewBreakerCollection wraps c with a circuit breaker. It returns c unchanged
// when cfg is nil or disabled.
func NewBreakerCollection(c Collection, cfg *config.Breaker, collector metrics.Collector) Collection {
	if cfg == nil || !cfg.Enabled {
		return c
	}
	if collector == nil {
		collector = metrics.NoOpCollector{}
	}

	failures := cfg.Failures
	if failures == 0 {
		failures = 5
	}
	name := "mongodb." + c.Name()
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			collector.BreakerState(name, to.String())
		},
		IsSuccessful: isBreakerSuccess,
	})
	collector.BreakerState(name, cb.State().String())

	return &breakerCollection{Collection: c, cb: cb}
}

// isBreakerSuccess keeps caller mistakes from tripping the breaker.
func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, mongo.ErrNoDocuments) ||
		errors.Is(err, context.Canceled) ||
		mongo.IsDuplicateKeyError(err)
}

func run[R any](cb *gobreaker.CircuitBreaker, fn func() (R, error)) (R, error) {
	out, err := cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		var zero R
		if r, ok := out.(R); ok {
			return r, err
		}
		return zero, err
	}
	return out.(R), nil
}

func (b *breakerCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return run(b.cb, func() (*mongo.Cursor, error) { return b.Collection.Find(ctx, filter, opts...) })
}

func (b *breakerCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult {
	res, err := run(b.cb, func() (*mongo.SingleResult, error) {
		res := b.Collection.FindOne(ctx, filter, opts...)
		return res, res.Err()
	})
	if res == nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	return res
}

func (b *breakerCollection) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return run(b.cb, func() (*mongo.InsertOneResult, error) { return b.Collection.InsertOne(ctx, document, opts...) })
}

func (b *breakerCollection) InsertMany(ctx context.Context, documents []any, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	return run(b.cb, func() (*mongo.InsertManyResult, error) { return b.Collection.InsertMany(ctx, documents, opts...) })
}

func (b *breakerCollection) UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return run(b.cb, func() (*mongo.UpdateResult, error) { return b.Collection.UpdateOne(ctx, filter, update, opts...) })
}

func (b *breakerCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	return run(b.cb, func() (*mongo.BulkWriteResult, error) { return b.Collection.BulkWrite(ctx, models, opts...) })
}

func (b *breakerCollection) DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return run(b.cb, func() (*mongo.DeleteResult, error) { return b.Collection.DeleteOne(ctx, filter, opts...) })
}

func (b *breakerCollection) DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return run(b.cb, func() (*mongo.DeleteResult, error) { return b.Collection.DeleteMany(ctx, filter, opts...) })
}

func (b *breakerCollection) CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error) {
	return run(b.cb, func() (int64, error) { return b.Collection.CountDocuments(ctx, filter, opts...) })
}

// breakerDatabase wraps every collection it returns. Each name keeps one
// breaker for the life of the database.
type breakerDatabase struct {
	Database
	cfg       *config.Breaker
	collector metrics.Collector
	colls     sync.Map // name -> Collection
}

// NewBreakerDatabase wraps every collection of db with its own breaker.
func NewBreakerDatabase(db Database, cfg *config.Breaker, collector metrics.Collector) Database {
	if cfg == nil || !cfg.Enabled {
		return db
	}
	return &breakerDatabase{Database: db, cfg: cfg, collector: collector}
}

func (d *breakerDatabase) Collection(name string) Collection {
	if c, ok := d.colls.Load(name); ok {
		return c.(Collection)
	}
	c, _ := d.colls.LoadOrStore(name, NewBreakerCollection(d.Database.Collection(name), d.cfg, d.collector))
	return c.(Collection)
}
