package mongotest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const duplicateKey = 11000

// Database is an in-memory mongodb.Database.
type Database struct {
	mu    sync.Mutex
	name  string
	colls map[string]*Collection
}

// NewDatabase creates an empty database.
func NewDatabase(name string) *Database {
	return &Database{name: name, colls: make(map[string]*Collection)}
}

// Collection returns the named collection, creating it on first use.
func (d *Database) Collection(name string) mongodb.Collection {
	return d.C(name)
}

// C is Collection with the concrete type.
func (d *Database) C(name string) *Collection {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.colls[name]
	if !ok {
		c = &Collection{db: d.name, name: name, calls: make(map[string]int)}
		d.colls[name] = c
	}
	return c
}

// Collection is an in-memory mongodb.Collection. Documents keep insertion
// order, which is the natural order of unsorted finds.
type Collection struct {
	mu    sync.RWMutex
	db    string
	name  string
	docs  []bson.D
	calls map[string]int
	fail  error
}

var _ mongodb.Collection = (*Collection)(nil)

func (c *Collection) Name() string { return c.name }

// Calls returns how many requests of the named method reached the
// collection, e.g. "InsertMany".
func (c *Collection) Calls(method string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.calls[method]
}

// Fail makes every request return err until it is called with nil.
func (c *Collection) Fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = err
}

// Documents returns a copy of the stored documents in insertion order.
func (c *Collection) Documents() []bson.D {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]bson.D, len(c.docs))
	for i, d := range c.docs {
		out[i] = clone(d)
	}
	return out
}

// begin records a call. Callers hold the lock.
func (c *Collection) begin(ctx context.Context, method string) error {
	c.calls[method]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.fail
}

func (c *Collection) duplicate(id any) error {
	return mongo.WriteError{
		Code:    duplicateKey,
		Message: fmt.Sprintf("E11000 duplicate key error collection: %s.%s index: _id_ dup key: { _id: %v }", c.db, c.name, id),
	}
}

func (c *Collection) indexOf(id any) int {
	for i, d := range c.docs {
		if cur, ok := get(d, "_id"); ok && equal(cur, id) {
			return i
		}
	}
	return -1
}

// insert stores one document, generating an ObjectID when _id is missing.
func (c *Collection) insert(document any) (any, error) {
	doc, err := canonical(document)
	if err != nil {
		return nil, err
	}
	id, ok := get(doc, "_id")
	if !ok {
		id = primitive.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}
	if c.indexOf(id) >= 0 {
		return nil, c.duplicate(id)
	}
	c.docs = append(c.docs, doc)
	return id, nil
}

// filter returns the positions of matching documents.
func (c *Collection) filter(f any) ([]int, error) {
	fd, err := canonical(f)
	if err != nil {
		return nil, err
	}
	var out []int
	for i, d := range c.docs {
		ok, err := match(d, fd)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, i)
		}
	}
	return out, nil
}

type query struct {
	filter     any
	sort       any
	projection any
	skip       int64
	limit      int64
}

// find runs a query and returns copies of the resulting documents.
func (c *Collection) find(q query) ([]bson.D, error) {
	idx, err := c.filter(q.filter)
	if err != nil {
		return nil, err
	}
	docs := make([]bson.D, len(idx))
	for i, n := range idx {
		docs[i] = clone(c.docs[n])
	}

	if q.sort != nil {
		sd, err := canonical(q.sort)
		if err != nil {
			return nil, err
		}
		if err := sortDocuments(docs, sortSpec(sd)); err != nil {
			return nil, err
		}
	}

	if q.skip > 0 {
		if q.skip >= int64(len(docs)) {
			docs = nil
		} else {
			docs = docs[q.skip:]
		}
	}
	if q.limit != 0 {
		limit := q.limit
		if limit < 0 {
			limit = -limit
		}
		if limit < int64(len(docs)) {
			docs = docs[:limit]
		}
	}

	if q.projection != nil {
		pd, err := canonical(q.projection)
		if err != nil {
			return nil, err
		}
		for i := range docs {
			docs[i] = project(docs[i], pd)
		}
	}
	return docs, nil
}

// sortDocuments orders docs with types.DynamicSorter. Missing fields sort
// as null.
func sortDocuments(docs []bson.D, keys []sortKey) error {
	rows := make([]map[string]any, len(docs))
	for i, d := range docs {
		rows[i] = map[string]any{"doc": d}
	}
	criteria := make([]types.Criterion, len(keys))
	for i, k := range keys {
		criteria[i] = types.Criterion{Field: k.path, Direction: k.direction}
	}

	sorter := &types.DynamicSorter{
		Data: rows,
		Getter: func(item map[string]any, field string) (any, error) {
			v, _ := get(item["doc"].(bson.D), field)
			return v, nil
		},
		Compare: sortCompare,
	}
	if err := sorter.Sort(criteria); err != nil {
		return err
	}
	for i, row := range sorter.Data {
		docs[i] = row["doc"].(bson.D)
	}
	return nil
}

func toAny(docs []bson.D) []any {
	out := make([]any, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

func (c *Collection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "Find"); err != nil {
		return nil, err
	}

	q := query{filter: filter}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Sort != nil {
			q.sort = o.Sort
		}
		if o.Projection != nil {
			q.projection = o.Projection
		}
		if o.Skip != nil {
			q.skip = *o.Skip
		}
		if o.Limit != nil {
			q.limit = *o.Limit
		}
	}

	docs, err := c.find(q)
	if err != nil {
		return nil, err
	}
	return mongo.NewCursorFromDocuments(toAny(docs), nil, nil)
}

func (c *Collection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "FindOne"); err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}

	q := query{filter: filter, limit: 1}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Sort != nil {
			q.sort = o.Sort
		}
		if o.Projection != nil {
			q.projection = o.Projection
		}
		if o.Skip != nil {
			q.skip = *o.Skip
		}
	}

	docs, err := c.find(q)
	if err == nil && len(docs) == 0 {
		err = mongo.ErrNoDocuments
	}
	if err != nil {
		return mongo.NewSingleResultFromDocument(bson.D{}, err, nil)
	}
	return mongo.NewSingleResultFromDocument(docs[0], nil, nil)
}

func (c *Collection) InsertOne(ctx context.Context, document any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "InsertOne"); err != nil {
		return nil, err
	}

	id, err := c.insert(document)
	if err != nil {
		var we mongo.WriteError
		if errors.As(err, &we) {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{we}}
		}
		return nil, err
	}
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

// InsertMany inserts in order and stops at the first failure.
func (c *Collection) InsertMany(ctx context.Context, documents []any, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "InsertMany"); err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return nil, mongo.ErrEmptySlice
	}

	res := &mongo.InsertManyResult{}
	for i, d := range documents {
		id, err := c.insert(d)
		if err != nil {
			var we mongo.WriteError
			if errors.As(err, &we) {
				we.Index = i
				return res, mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: we}}}
			}
			return res, err
		}
		res.InsertedIDs = append(res.InsertedIDs, id)
	}
	return res, nil
}

type updateResult struct {
	matched, modified int64
	upsertedID        any
}

// update applies one update to the first matching document.
func (c *Collection) update(filter, update any, upsert bool) (updateResult, error) {
	ud, err := canonical(update)
	if err != nil {
		return updateResult{}, err
	}
	idx, err := c.filter(filter)
	if err != nil {
		return updateResult{}, err
	}

	if len(idx) > 0 {
		cur := c.docs[idx[0]]
		next, err := apply(cur, ud, false)
		if err != nil {
			return updateResult{}, err
		}
		res := updateResult{matched: 1}
		if !equal(cur, next) {
			c.docs[idx[0]] = next
			res.modified = 1
		}
		return res, nil
	}
	if !upsert {
		return updateResult{}, nil
	}

	fd, err := canonical(filter)
	if err != nil {
		return updateResult{}, err
	}
	doc, err := apply(seed(fd), ud, true)
	if err != nil {
		return updateResult{}, err
	}
	id, err := c.insert(doc)
	if err != nil {
		return updateResult{}, err
	}
	return updateResult{upsertedID: id}, nil
}

func (c *Collection) UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "UpdateOne"); err != nil {
		return nil, err
	}

	upsert := false
	for _, o := range opts {
		if o != nil && o.Upsert != nil {
			upsert = *o.Upsert
		}
	}

	r, err := c.update(filter, update, upsert)
	if err != nil {
		var we mongo.WriteError
		if errors.As(err, &we) {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{we}}
		}
		return nil, err
	}
	res := &mongo.UpdateResult{MatchedCount: r.matched, ModifiedCount: r.modified}
	if r.upsertedID != nil {
		res.UpsertedCount = 1
		res.UpsertedID = r.upsertedID
	}
	return res, nil
}

// BulkWrite runs the models in order and stops at the first failure.
func (c *Collection) BulkWrite(ctx context.Context, models []mongo.WriteModel, _ ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "BulkWrite"); err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, mongo.ErrEmptySlice
	}

	res := &mongo.BulkWriteResult{UpsertedIDs: make(map[int64]any)}
	for i, m := range models {
		if err := c.writeModel(res, int64(i), m); err != nil {
			var we mongo.WriteError
			if errors.As(err, &we) {
				we.Index = i
				return res, mongo.BulkWriteException{WriteErrors: []mongo.BulkWriteError{{WriteError: we, Request: m}}}
			}
			return res, err
		}
	}
	return res, nil
}

func (c *Collection) writeModel(res *mongo.BulkWriteResult, i int64, m mongo.WriteModel) error {
	switch wm := m.(type) {
	case *mongo.InsertOneModel:
		if _, err := c.insert(wm.Document); err != nil {
			return err
		}
		res.InsertedCount++
	case *mongo.UpdateOneModel:
		r, err := c.update(wm.Filter, wm.Update, wm.Upsert != nil && *wm.Upsert)
		if err != nil {
			return err
		}
		res.MatchedCount += r.matched
		res.ModifiedCount += r.modified
		if r.upsertedID != nil {
			res.UpsertedCount++
			res.UpsertedIDs[i] = r.upsertedID
		}
	case *mongo.DeleteOneModel:
		n, err := c.delete(wm.Filter, 1)
		if err != nil {
			return err
		}
		res.DeletedCount += n
	default:
		return fmt.Errorf("unsupported write model %T", m)
	}
	return nil
}

// delete removes up to limit matching documents; zero removes all.
func (c *Collection) delete(filter any, limit int) (int64, error) {
	idx, err := c.filter(filter)
	if err != nil {
		return 0, err
	}
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}
	drop := make(map[int]bool, len(idx))
	for _, n := range idx {
		drop[n] = true
	}
	kept := c.docs[:0]
	for i, d := range c.docs {
		if !drop[i] {
			kept = append(kept, d)
		}
	}
	c.docs = kept
	return int64(len(idx)), nil
}

func (c *Collection) DeleteOne(ctx context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "DeleteOne"); err != nil {
		return nil, err
	}
	n, err := c.delete(filter, 1)
	if err != nil {
		return nil, err
	}
	return &mongo.DeleteResult{DeletedCount: n}, nil
}

func (c *Collection) DeleteMany(ctx context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "DeleteMany"); err != nil {
		return nil, err
	}
	n, err := c.delete(filter, 0)
	if err != nil {
		return nil, err
	}
	return &mongo.DeleteResult{DeletedCount: n}, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin(ctx, "CountDocuments"); err != nil {
		return 0, err
	}

	q := query{filter: filter}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.Skip != nil {
			q.skip = *o.Skip
		}
		if o.Limit != nil {
			q.limit = *o.Limit
		}
	}
	docs, err := c.find(q)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}
