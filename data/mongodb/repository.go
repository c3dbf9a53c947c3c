package mongodb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/ncobase/docmapper/data/metrics"
	"github.com/ncobase/docmapper/logging/logger"
	"github.com/ncobase/docmapper/paging"
	"github.com/ncobase/docmapper/types"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ncobase/docmapper/data/mongodb"

// Options configures a repository.
type Options struct {
	// Collection is the name of the backing collection.
	Collection string
}

// RepositoryOption customizes a repository.
type RepositoryOption func(*settings)

type settings struct {
	logger       *logger.Logger
	tracer       trace.Tracer
	metrics      metrics.Collector
	defaultLimit int
	maxLimit     int
	counts       CountCache
}

// WithLogger sets the logger used for store failures.
func WithLogger(l *logger.Logger) RepositoryOption {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the tracer that records one span per operation.
func WithTracer(t trace.Tracer) RepositoryOption {
	return func(s *settings) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics sets the collector that receives operation timings.
func WithMetrics(c metrics.Collector) RepositoryOption {
	return func(s *settings) {
		if c != nil {
			s.metrics = c
		}
	}
}

// WithLimits sets the page size defaults used by Page.
func WithLimits(defaultLimit, maxLimit int) RepositoryOption {
	return func(s *settings) {
		s.defaultLimit = defaultLimit
		s.maxLimit = maxLimit
	}
}

// Repository maps records of type T to documents of one collection.
type Repository[T any] struct {
	coll Collection
	name string
	info *recordInfo
	settings
}

// NewRepository validates T and binds it to opts.Collection in db.
func NewRepository[T any](db Database, opts Options, options ...RepositoryOption) (*Repository[T], error) {
	info, err := inspect(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if opts.Collection == "" {
		return nil, ErrMissingCollection
	}
	if db == nil {
		return nil, errors.New("mongodb: database is nil")
	}

	s := settings{
		logger:       logger.StdLogger(),
		tracer:       otel.Tracer(tracerName),
		metrics:      metrics.NoOpCollector{},
		defaultLimit: paging.DefaultLimit,
		maxLimit:     paging.MaxLimit,
	}
	for _, opt := range options {
		opt(&s)
	}

	return &Repository[T]{
		coll:     db.Collection(opts.Collection),
		name:     opts.Collection,
		info:     info,
		settings: s,
	}, nil
}

// Collection returns the backing collection.
func (r *Repository[T]) Collection() Collection {
	return r.coll
}

// ToDocument encodes rec with its identity stored under "_id". An unset id
// is omitted.
func (r *Repository[T]) ToDocument(rec *T) (bson.D, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	doc, _, err := r.info.toDocument(rec)
	return doc, err
}

// ToModel materializes a stored document as a validated T.
func (r *Repository[T]) ToModel(doc bson.D) (*T, error) {
	return decode[T](doc)
}

// ToModelAs materializes a stored document as a validated O.
func ToModelAs[O any](doc bson.D) (*O, error) {
	return decode[O](doc)
}

// SaveResult describes the outcome of Save.
type SaveResult struct {
	// Inserted is set when the record had no id and was inserted.
	Inserted bool
	// ID is the record identity after the write.
	ID       any
	Matched  int64
	Modified int64
	// Upserted is set when an update created the document.
	Upserted bool
}

// Save inserts rec when its id is unset and assigns the generated id;
// otherwise it upserts the document by id.
func (r *Repository[T]) Save(ctx context.Context, rec *T) (*SaveResult, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	doc, id, err := r.info.toDocument(rec)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{}
	if id == nil {
		doc = r.info.withNewID(doc)
		err = r.observe(ctx, "insert_one", func(ctx context.Context) error {
			res, err := r.coll.InsertOne(ctx, doc)
			if err != nil {
				return err
			}
			result.Inserted = true
			result.ID = res.InsertedID
			return r.info.setID(rec, res.InsertedID)
		})
		return result, err
	}

	err = r.observe(ctx, "update_one", func(ctx context.Context) error {
		res, err := r.coll.UpdateOne(ctx, bson.M{paging.StoreIDField: id}, setUpdate(doc, id), options.Update().SetUpsert(true))
		if err != nil {
			return err
		}
		result.ID = id
		result.Matched = res.MatchedCount
		result.Modified = res.ModifiedCount
		result.Upserted = res.UpsertedCount > 0
		return nil
	})
	return result, err
}

// setUpdate builds the upsert update for doc. A document holding only its
// identity still needs an operator.
func setUpdate(doc bson.D, id any) bson.D {
	fields := lo.Filter(doc, func(e bson.E, _ int) bool { return e.Key != paging.StoreIDField })
	if len(fields) == 0 {
		return bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: paging.StoreIDField, Value: id}}}}
	}
	return bson.D{{Key: "$set", Value: fields}}
}

// SaveMany writes records in at most two requests: one insert of every
// record without an id and one bulk upsert of the rest. Generated ids are
// assigned by position.
func (r *Repository[T]) SaveMany(ctx context.Context, records []*T) error {
	if lo.Contains(records, nil) {
		return ErrNilRecord
	}

	inserts, updates := lo.FilterReject(records, func(rec *T, _ int) bool {
		return r.info.id(rec) == nil
	})
	r.logger.WithContext(ctx, logrus.Fields{
		logger.CollectionKey: r.name,
		"inserts":            len(inserts),
		"updates":            len(updates),
	}).Debug("save many")

	if len(inserts) > 0 {
		docs := make([]any, len(inserts))
		for i, rec := range inserts {
			doc, _, err := r.info.toDocument(rec)
			if err != nil {
				return err
			}
			docs[i] = r.info.withNewID(doc)
		}
		err := r.observe(ctx, "insert_many", func(ctx context.Context) error {
			res, err := r.coll.InsertMany(ctx, docs)
			if err != nil {
				return err
			}
			for i, id := range res.InsertedIDs {
				if i >= len(inserts) {
					break
				}
				if err := r.info.setID(inserts[i], id); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if len(updates) > 0 {
		models := make([]mongo.WriteModel, len(updates))
		for i, rec := range updates {
			doc, id, err := r.info.toDocument(rec)
			if err != nil {
				return err
			}
			models[i] = mongo.NewUpdateOneModel().
				SetFilter(bson.M{paging.StoreIDField: id}).
				SetUpdate(setUpdate(doc, id)).
				SetUpsert(true)
		}
		err := r.observe(ctx, "bulk_write", func(ctx context.Context) error {
			_, err := r.coll.BulkWrite(ctx, models)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// Delete removes the document of rec.
func (r *Repository[T]) Delete(ctx context.Context, rec *T) (*mongo.DeleteResult, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	id := r.info.id(rec)
	if id == nil {
		return nil, ErrNoIdentity
	}
	return r.DeleteByID(ctx, id)
}

// DeleteByID removes the document with the given id.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) (*mongo.DeleteResult, error) {
	var res *mongo.DeleteResult
	err := r.observe(ctx, "delete_one", func(ctx context.Context) (err error) {
		res, err = r.coll.DeleteOne(ctx, bson.M{paging.StoreIDField: id})
		return err
	})
	return res, err
}

// DeleteMany removes every document matching filter.
func (r *Repository[T]) DeleteMany(ctx context.Context, filter bson.M) (*mongo.DeleteResult, error) {
	var res *mongo.DeleteResult
	err := r.observe(ctx, "delete_many", func(ctx context.Context) (err error) {
		res, err = r.coll.DeleteMany(ctx, emptyIfNil(paging.MapID(filter)))
		return err
	})
	return res, err
}

// FindOneByID returns the record with the given id, or nil.
func (r *Repository[T]) FindOneByID(ctx context.Context, id any) (*T, error) {
	return r.FindOneBy(ctx, bson.M{paging.StoreIDField: id})
}

// FindOneBy returns the first record matching filter, or nil.
func (r *Repository[T]) FindOneBy(ctx context.Context, filter bson.M) (*T, error) {
	return FindOneByAs[T, T](ctx, r, filter)
}

// FindOptions narrows FindBy. Zero Skip and Limit are not applied.
type FindOptions struct {
	Skip       int64
	Limit      int64
	Sort       types.Sort
	Projection bson.M
}

// FindBy returns the records matching filter.
func (r *Repository[T]) FindBy(ctx context.Context, filter bson.M, opts FindOptions) ([]*T, error) {
	return FindByAs[T, T](ctx, r, filter, opts)
}

// PageOptions selects one page of Paginate.
type PageOptions struct {
	After      string
	Before     string
	Sort       types.Sort
	Projection bson.M
}

// Paginate returns up to limit records past the boundary of opts.After, or
// short of opts.Before, each paired with its own cursor. A limit of zero or
// less returns every remaining record. Sort defaults to "_id" ascending.
func (r *Repository[T]) Paginate(ctx context.Context, filter bson.M, limit int, opts PageOptions) ([]paging.Edge[*T], error) {
	return PaginateAs[T, T](ctx, r, filter, limit, opts)
}

// Page runs Paginate with normalized params and reports whether another page
// follows along with the number of records matching filter.
func (r *Repository[T]) Page(ctx context.Context, filter bson.M, params paging.Params, sort types.Sort, projection bson.M) (*paging.Result[*T], error) {
	return paging.PaginateWith(ctx, params, r.defaultLimit, r.maxLimit,
		func(ctx context.Context, p paging.Params) ([]paging.Edge[*T], int64, error) {
			edges, err := r.Paginate(ctx, filter, p.Limit, PageOptions{
				After:      p.After,
				Before:     p.Before,
				Sort:       sort,
				Projection: projection,
			})
			if err != nil {
				return nil, 0, err
			}
			total, err := r.cachedCount(ctx, filter)
			if err != nil {
				return nil, 0, err
			}
			return edges, total, nil
		})
}

// PaginationQuery returns the filter Paginate sends to the store.
func (r *Repository[T]) PaginationQuery(ctx context.Context, filter bson.M, after, before string, sort types.Sort) (bson.M, error) {
	if sort == nil {
		sort = paging.DefaultSort
	}
	sortDoc, err := paging.NormalizeSort(sort)
	if err != nil {
		return nil, err
	}
	if after != "" && before != "" {
		r.logger.WithContext(ctx, logrus.Fields{logger.CollectionKey: r.name}).
			Warn("both after and before cursors given, using after")
	}
	return paging.BuildQuery(paging.MapID(filter), after, before, sortDoc)
}

// Count returns the number of documents matching filter.
func (r *Repository[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	var n int64
	err := r.observe(ctx, "count_documents", func(ctx context.Context) (err error) {
		n, err = r.coll.CountDocuments(ctx, emptyIfNil(paging.MapID(filter)))
		return err
	})
	return n, err
}

// observe runs fn inside a span and reports its timing and failure.
func (r *Repository[T]) observe(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "mongodb."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.collection.name", r.name),
			attribute.String("db.operation.name", op),
		))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	r.metrics.MongoOperation(r.name, op, time.Since(start), err)
	if r.counts != nil && writeOps[op] {
		r.invalidateCounts(ctx)
	}
	if err == nil {
		return nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	entry := r.logger.WithContext(ctx, logrus.Fields{
		logger.CollectionKey: r.name,
		logger.OperationKey:  op,
	}).WithError(err)
	if errors.Is(err, paging.ErrInvalidCursor) || errors.Is(err, types.ErrInvalidSort) {
		entry.Warn("rejected request")
	} else {
		entry.Error("store operation failed")
	}
	return err
}

func emptyIfNil(m bson.M) bson.M {
	if m == nil {
		return bson.M{}
	}
	return m
}

// mapProjection renames an "id" projection key to "_id".
func mapProjection(p bson.M) any {
	if len(p) == 0 {
		return nil
	}
	return paging.MapID(p)
}

// findOptions converts FindOptions to driver options.
func findOptions(opts FindOptions) (*options.FindOptions, error) {
	fo := options.Find()
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if opts.Sort != nil {
		sortDoc, err := paging.NormalizeSort(opts.Sort)
		if err != nil {
			return nil, err
		}
		fo.SetSort(sortDoc)
	}
	if p := mapProjection(opts.Projection); p != nil {
		fo.SetProjection(p)
	}
	return fo, nil
}

// findDocuments runs a find and drains the cursor.
func (r *Repository[T]) findDocuments(ctx context.Context, op string, filter bson.M, fo *options.FindOptions) ([]bson.D, error) {
	var docs []bson.D
	err := r.observe(ctx, op, func(ctx context.Context) error {
		cur, err := r.coll.Find(ctx, emptyIfNil(filter), fo)
		if err != nil {
			return err
		}
		if err := cur.All(ctx, &docs); err != nil {
			return fmt.Errorf("read cursor: %w", err)
		}
		return nil
	})
	return docs, err
}
