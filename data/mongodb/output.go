package mongodb

import (
	"context"
	"errors"

	"github.com/ncobase/docmapper/paging"
	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindOneByAs returns the first document matching filter materialized as O,
// or nil when none matches.
func FindOneByAs[T, O any](ctx context.Context, r *Repository[T], filter bson.M) (*O, error) {
	var doc bson.D
	found := true
	err := r.observe(ctx, "find_one", func(ctx context.Context) error {
		err := r.coll.FindOne(ctx, emptyIfNil(paging.MapID(filter))).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			found = false
			return nil
		}
		return err
	})
	if err != nil || !found {
		return nil, err
	}
	return decode[O](doc)
}

// FindByAs returns the documents matching filter materialized as O.
func FindByAs[T, O any](ctx context.Context, r *Repository[T], filter bson.M, opts FindOptions) ([]*O, error) {
	fo, err := findOptions(opts)
	if err != nil {
		return nil, err
	}
	docs, err := r.findDocuments(ctx, "find", paging.MapID(filter), fo)
	if err != nil {
		return nil, err
	}

	out := make([]*O, 0, len(docs))
	for _, doc := range docs {
		o, err := decode[O](doc)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// PaginateAs is Paginate with results materialized as O.
func PaginateAs[T, O any](ctx context.Context, r *Repository[T], filter bson.M, limit int, opts PageOptions) ([]paging.Edge[*O], error) {
	sort := opts.Sort
	if sort == nil {
		sort = paging.DefaultSort
	}
	sortDoc, err := paging.NormalizeSort(sort)
	if err != nil {
		return nil, err
	}

	query, err := r.PaginationQuery(ctx, filter, opts.After, opts.Before, sort)
	if err != nil {
		r.metrics.MongoOperation(r.name, "paginate", 0, err)
		return nil, err
	}

	fo := options.Find().SetSort(sortDoc)
	if limit > 0 {
		fo.SetLimit(int64(limit))
	}
	if p := mapProjection(opts.Projection); p != nil {
		fo.SetProjection(p)
	}

	docs, err := r.findDocuments(ctx, "paginate", query, fo)
	if err != nil {
		return nil, err
	}

	keys := lo.Map(sortDoc, func(e bson.E, _ int) string { return e.Key })
	edges := make([]paging.Edge[*O], 0, len(docs))
	for _, doc := range docs {
		node, err := decode[O](doc)
		if err != nil {
			return nil, err
		}
		edge, err := paging.NewEdge(node, doc, keys)
		if err != nil {
			return nil, &paging.PaginationError{Stage: "payload", Err: err}
		}
		edges = append(edges, edge)
	}
	return edges, nil
}
