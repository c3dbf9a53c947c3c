package mongodb

import (
	"context"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/ncobase/docmapper/logging/logger"
	"github.com/ncobase/docmapper/paging"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
)

// CountCache remembers document counts per collection and filter key.
// Implementations must be safe for concurrent use.
type CountCache interface {
	Count(ctx context.Context, collection, key string) (n int64, ok bool, err error)
	SetCount(ctx context.Context, collection, key string, n int64) error
	Invalidate(ctx context.Context, collection string) error
}

// WithCountCache makes Page read totals through c. Writes through the
// repository invalidate the collection's entries.
func WithCountCache(c CountCache) RepositoryOption {
	return func(s *settings) {
		s.counts = c
	}
}

// writeOps are the operations that change a collection's counts.
var writeOps = map[string]bool{
	"insert_one":  true,
	"insert_many": true,
	"update_one":  true,
	"bulk_write":  true,
	"delete_one":  true,
	"delete_many": true,
}

// CountKey returns a stable key for filter. Map keys are sorted first, so
// equal filters share a key whatever their iteration order.
func CountKey(filter bson.M) (string, error) {
	raw, err := bson.Marshal(ordered(emptyIfNil(paging.MapID(filter))))
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(raw), 16), nil
}

func ordered(v any) any {
	switch t := v.(type) {
	case bson.M:
		return orderedMap(t)
	case map[string]any:
		return orderedMap(t)
	case bson.D:
		out := make(bson.D, len(t))
		for i, e := range t {
			out[i] = bson.E{Key: e.Key, Value: ordered(e.Value)}
		}
		return out
	case bson.A:
		return orderedSlice(t)
	case []any:
		return orderedSlice(t)
	default:
		return v
	}
}

func orderedMap(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(bson.D, len(keys))
	for i, k := range keys {
		out[i] = bson.E{Key: k, Value: ordered(m[k])}
	}
	return out
}

func orderedSlice(s []any) bson.A {
	out := make(bson.A, len(s))
	for i, v := range s {
		out[i] = ordered(v)
	}
	return out
}

// cachedCount is Count read through the count cache. Cache failures fall
// back to the store.
func (r *Repository[T]) cachedCount(ctx context.Context, filter bson.M) (int64, error) {
	if r.counts == nil {
		return r.Count(ctx, filter)
	}
	key, err := CountKey(filter)
	if err != nil {
		return r.Count(ctx, filter)
	}

	n, ok, err := r.counts.Count(ctx, r.name, key)
	if err != nil {
		r.cacheWarn(ctx, err, "count cache read failed")
	} else if ok {
		return n, nil
	}

	n, err = r.Count(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := r.counts.SetCount(ctx, r.name, key, n); err != nil {
		r.cacheWarn(ctx, err, "count cache write failed")
	}
	return n, nil
}

func (r *Repository[T]) invalidateCounts(ctx context.Context) {
	if err := r.counts.Invalidate(ctx, r.name); err != nil {
		r.cacheWarn(ctx, err, "count cache invalidation failed")
	}
}

func (r *Repository[T]) cacheWarn(ctx context.Context, err error, msg string) {
	r.logger.WithContext(ctx, logrus.Fields{logger.CollectionKey: r.name}).WithError(err).Warn(msg)
}
