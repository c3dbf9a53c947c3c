package mongodb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ncobase/docmapper/data/metrics"
	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/data/mongodb/mongotest"
	"github.com/ncobase/docmapper/paging"
	"github.com/ncobase/docmapper/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Foo struct {
	Count int     `bson:"count" validate:"gte=0"`
	Size  float64 `bson:"size"`
}

type Bar struct {
	Apple  string `bson:"apple"`
	Banana string `bson:"banana"`
}

type Spam struct {
	ID   primitive.ObjectID `bson:"id,omitempty"`
	Foo  Foo                `bson:"foo"`
	Bars []Bar              `bson:"bars"`
}

// legacyCursor holds the fourth smallest id of the paginate fixture.
const legacyCursor = "eNqTYWBgYCljEAFS7AYMidKiXfdOzJWY4V07gYEBAD7HBkg="

func newSpamRepository(t *testing.T, opts ...mongodb.RepositoryOption) (*mongodb.Repository[Spam], *mongotest.Collection) {
	t.Helper()
	db := mongotest.NewDatabase("test")
	repo, err := mongodb.NewRepository[Spam](db, mongodb.Options{Collection: "spams"}, opts...)
	require.NoError(t, err)
	return repo, db.C("spams")
}

func oid(t *testing.T, hex string) primitive.ObjectID {
	t.Helper()
	id, err := primitive.ObjectIDFromHex(hex)
	require.NoError(t, err)
	return id
}

func spamDoc(key string, id any, count int) bson.D {
	return bson.D{
		{Key: key, Value: id},
		{Key: "foo", Value: bson.D{{Key: "count", Value: count}, {Key: "size", Value: 1.0}}},
		{Key: "bars", Value: bson.A{bson.D{{Key: "apple", Value: "x"}, {Key: "banana", Value: "y"}}}},
	}
}

func newSpam(count int) *Spam {
	return &Spam{Foo: Foo{Count: count, Size: 1.0}, Bars: []Bar{{Apple: "x", Banana: "y"}}}
}

// seedPaginate stores the paginate fixture. The record keyed by "id" gets a
// generated _id, which sorts after the others.
func seedPaginate(t *testing.T, coll *mongotest.Collection) {
	t.Helper()
	_, err := coll.InsertMany(context.Background(), []any{
		spamDoc("_id", oid(t, "611b140f4eb6ee47e966860f"), 2),
		spamDoc("id", oid(t, "611b141cf533ca420b7580d6"), 3),
		spamDoc("_id", oid(t, "611b15241dea2ee3f7cbfe30"), 2),
		spamDoc("_id", oid(t, "611b157c859bde7de88c98ac"), 2),
		spamDoc("_id", oid(t, "611b158adec89d18984b7d90"), 2),
	})
	require.NoError(t, err)
}

func TestNewRepository_ConfigurationErrors(t *testing.T) {
	db := mongotest.NewDatabase("test")

	_, err := mongodb.NewRepository[int](db, mongodb.Options{Collection: "ints"})
	assert.ErrorIs(t, err, mongodb.ErrInvalidRecordType)

	type NoID struct {
		Name string `bson:"name"`
	}
	_, err = mongodb.NewRepository[NoID](db, mongodb.Options{Collection: "noids"})
	assert.ErrorIs(t, err, mongodb.ErrMissingIDField)

	_, err = mongodb.NewRepository[Spam](db, mongodb.Options{})
	assert.ErrorIs(t, err, mongodb.ErrMissingCollection)

	type Untagged struct {
		ID   string
		Name string
	}
	_, err = mongodb.NewRepository[Untagged](db, mongodb.Options{Collection: "untagged"})
	assert.NoError(t, err)
}

func TestSave(t *testing.T) {
	repo, coll := newSpamRepository(t)
	ctx := context.Background()

	spam := newSpam(1)
	res, err := repo.Save(ctx, spam)
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	require.False(t, spam.ID.IsZero())
	assert.Equal(t, spam.ID, res.ID)

	want := bson.D{
		{Key: "_id", Value: spam.ID},
		{Key: "foo", Value: bson.D{{Key: "count", Value: int32(1)}, {Key: "size", Value: 1.0}}},
		{Key: "bars", Value: bson.A{bson.D{{Key: "apple", Value: "x"}, {Key: "banana", Value: "y"}}}},
	}
	assert.Equal(t, []bson.D{want}, coll.Documents())

	id := spam.ID
	spam.Foo.Count = 2
	res, err = repo.Save(ctx, spam)
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, int64(1), res.Matched)
	assert.Equal(t, int64(1), res.Modified)
	assert.Equal(t, id, spam.ID)

	want[1].Value = bson.D{{Key: "count", Value: int32(2)}, {Key: "size", Value: 1.0}}
	assert.Equal(t, []bson.D{want}, coll.Documents())
	assert.Equal(t, 1, coll.Calls("InsertOne"))
	assert.Equal(t, 1, coll.Calls("UpdateOne"))
}

func TestSave_UpsertsAssignedID(t *testing.T) {
	repo, coll := newSpamRepository(t)

	spam := newSpam(4)
	spam.ID = oid(t, "611827f2878b88b49ebb69fc")
	res, err := repo.Save(context.Background(), spam)
	require.NoError(t, err)
	assert.True(t, res.Upserted)
	assert.Equal(t, 0, coll.Calls("InsertOne"))

	found, err := repo.FindOneByID(context.Background(), spam.ID)
	require.NoError(t, err)
	assert.Equal(t, spam, found)
}

func TestSave_NilRecord(t *testing.T) {
	repo, _ := newSpamRepository(t)
	_, err := repo.Save(context.Background(), nil)
	assert.ErrorIs(t, err, mongodb.ErrNilRecord)
}

func TestDelete(t *testing.T) {
	repo, _ := newSpamRepository(t)
	ctx := context.Background()

	spam := newSpam(1)
	_, err := repo.Save(ctx, spam)
	require.NoError(t, err)

	found, err := repo.FindOneByID(ctx, spam.ID)
	require.NoError(t, err)
	assert.NotNil(t, found)

	res, err := repo.Delete(ctx, spam)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedCount)

	found, err = repo.FindOneByID(ctx, spam.ID)
	require.NoError(t, err)
	assert.Nil(t, found)

	_, err = repo.Delete(ctx, newSpam(1))
	assert.ErrorIs(t, err, mongodb.ErrNoIdentity)
}

func TestDeleteMany(t *testing.T) {
	repo, coll := newSpamRepository(t)
	ctx := context.Background()
	seedPaginate(t, coll)

	res, err := repo.DeleteMany(ctx, bson.M{"foo.count": 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.DeletedCount)

	n, err := repo.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestFindOneByID(t *testing.T) {
	repo, coll := newSpamRepository(t)
	id := oid(t, "611827f2878b88b49ebb69fc")
	_, err := coll.InsertOne(context.Background(), spamDoc("_id", id, 2))
	require.NoError(t, err)

	found, err := repo.FindOneByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, id, found.ID)
	assert.Equal(t, "x", found.Bars[0].Apple)

	byFilter, err := repo.FindOneBy(context.Background(), bson.M{"id": id})
	require.NoError(t, err)
	assert.Equal(t, found, byFilter)

	missing, err := repo.FindOneBy(context.Background(), bson.M{"foo.count": 99})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindOneBy_InvalidRecord(t *testing.T) {
	repo, coll := newSpamRepository(t)
	_, err := coll.InsertOne(context.Background(), spamDoc("_id", primitive.NewObjectID(), -1))
	require.NoError(t, err)

	_, err = repo.FindOneBy(context.Background(), nil)
	assert.ErrorIs(t, err, mongodb.ErrInvalidRecord)
}

func TestFindBy(t *testing.T) {
	repo, coll := newSpamRepository(t)
	ctx := context.Background()
	_, err := coll.InsertMany(ctx, []any{
		spamDoc("_id", primitive.NewObjectID(), 2),
		spamDoc("_id", primitive.NewObjectID(), 3),
	})
	require.NoError(t, err)

	results, err := repo.FindBy(ctx, bson.M{}, mongodb.FindOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[0].Foo.Count)
	assert.Equal(t, 3, results[1].Foo.Count)

	results, err = repo.FindBy(ctx, bson.M{}, mongodb.FindOptions{
		Skip:  10,
		Limit: 10,
		Sort:  types.List(types.Asc("foo.count"), types.Asc("id")),
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = repo.FindBy(ctx, nil, mongodb.FindOptions{Sort: types.Pair("foo.count", -1), Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Foo.Count)

	_, err = repo.FindBy(ctx, nil, mongodb.FindOptions{Sort: types.List()})
	assert.ErrorIs(t, err, types.ErrInvalidSort)
}

type SpamCount struct {
	ID  primitive.ObjectID `bson:"id"`
	Foo Foo                `bson:"foo"`
}

func TestFindByAs_Projection(t *testing.T) {
	repo, coll := newSpamRepository(t)
	seedPaginate(t, coll)

	out, err := mongodb.FindByAs[Spam, SpamCount](context.Background(), repo,
		bson.M{"foo.count": 3},
		mongodb.FindOptions{Projection: bson.M{"foo": 1}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Foo.Count)
	assert.False(t, out[0].ID.IsZero())
}

func TestPaginate(t *testing.T) {
	repo, coll := newSpamRepository(t)
	ctx := context.Background()
	seedPaginate(t, coll)

	all, err := repo.Paginate(ctx, bson.M{}, 10, mongodb.PageOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)

	values, err := paging.DecodeCursor(legacyCursor)
	require.NoError(t, err)
	assert.Equal(t, []any{all[3].Node.ID}, values)

	after, err := repo.Paginate(ctx, bson.M{}, 10, mongodb.PageOptions{After: legacyCursor})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, all[4].Node, after[0].Node)

	before, err := repo.Paginate(ctx, bson.M{}, 10, mongodb.PageOptions{Before: legacyCursor})
	require.NoError(t, err)
	assert.Equal(t, paging.Nodes(all[:3]), paging.Nodes(before))

	_, err = repo.Paginate(ctx, bson.M{}, 10, mongodb.PageOptions{After: "invalid string"})
	assert.ErrorIs(t, err, paging.ErrInvalidCursor)
	var perr *paging.PaginationError
	assert.True(t, errors.As(err, &perr))
}

func TestPaginate_CursorsResume(t *testing.T) {
	repo, coll := newSpamRepository(t)
	ctx := context.Background()
	seedPaginate(t, coll)

	all, err := repo.Paginate(ctx, nil, 0, mongodb.PageOptions{Sort: types.Pair("id", -1)})
	require.NoError(t, err)
	require.Len(t, all, 5)

	var seen []*Spam
	opts := mongodb.PageOptions{Sort: types.Pair("id", -1)}
	for range 5 {
		page, err := repo.Paginate(ctx, nil, 2, opts)
		require.NoError(t, err)
		if len(page) == 0 {
			break
		}
		seen = append(seen, paging.Nodes(page)...)
		opts.After = page[len(page)-1].Cursor
	}
	assert.Equal(t, paging.Nodes(all), seen)
}

func TestPaginate_Filter(t *testing.T) {
	repo, coll := newSpamRepository(t)
	seedPaginate(t, coll)

	edges, err := repo.Paginate(context.Background(), bson.M{"foo.count": 2}, 10,
		mongodb.PageOptions{After: legacyCursor})
	require.NoError(t, err)
	assert.Empty(t, edges)

	edges, err = repo.Paginate(context.Background(), bson.M{"foo.count": 2}, 10,
		mongodb.PageOptions{Before: legacyCursor})
	require.NoError(t, err)
	assert.Len(t, edges, 3)
}

func TestPaginate_ProjectionDropsSortKey(t *testing.T) {
	repo, coll := newSpamRepository(t)
	seedPaginate(t, coll)

	_, err := repo.Paginate(context.Background(), nil, 10, mongodb.PageOptions{
		Sort:       types.Pair("foo.count", 1),
		Projection: bson.M{"bars": 1},
	})
	var perr *paging.PaginationError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "payload", perr.Stage)
	assert.ErrorIs(t, err, paging.ErrPathNotFound)
}

func TestPaginationQuery(t *testing.T) {
	repo, _ := newSpamRepository(t)
	ctx := context.Background()

	q, err := repo.PaginationQuery(ctx, bson.M{"id": 1}, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": 1}, q)

	token, err := paging.EncodeCursor([]any{int32(5)})
	require.NoError(t, err)
	q, err = repo.PaginationQuery(ctx, nil, token, "", types.Pair("id", -1))
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": bson.A{
		bson.M{},
		bson.D{{Key: "_id", Value: bson.D{{Key: "$lt", Value: int32(5)}}}},
	}}, q)
}

func TestPage(t *testing.T) {
	repo, coll := newSpamRepository(t, mongodb.WithLimits(2, 4))
	ctx := context.Background()
	seedPaginate(t, coll)

	res, err := repo.Page(ctx, nil, paging.Params{}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, res.Edges, 2)
	assert.True(t, res.HasNextPage)
	assert.Equal(t, int64(5), res.Total)
	assert.Equal(t, res.Edges[1].Cursor, res.NextCursor)

	res, err = repo.Page(ctx, nil, paging.Params{Limit: 4, After: res.NextCursor}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, res.Edges, 3)
	assert.False(t, res.HasNextPage)
	assert.Empty(t, res.NextCursor)
}

func TestSaveMany(t *testing.T) {
	repo, coll := newSpamRepository(t)
	ctx := context.Background()

	existing := newSpam(1)
	_, err := repo.Save(ctx, existing)
	require.NoError(t, err)
	existing.Foo.Count = 10

	assigned := newSpam(2)
	assigned.ID = primitive.NewObjectID()
	fresh := []*Spam{newSpam(3), newSpam(4)}

	batch := []*Spam{fresh[0], existing, assigned, fresh[1]}
	require.NoError(t, repo.SaveMany(ctx, batch))
	assert.Equal(t, 1, coll.Calls("InsertMany"))
	assert.Equal(t, 1, coll.Calls("BulkWrite"))

	for _, s := range fresh {
		assert.False(t, s.ID.IsZero())
	}
	assert.NotEqual(t, fresh[0].ID, fresh[1].ID)

	docs := coll.Documents()
	assert.Len(t, docs, 4)
	got, err := repo.FindOneByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Foo.Count)

	// a second pass only updates
	require.NoError(t, repo.SaveMany(ctx, batch))
	assert.Equal(t, 1, coll.Calls("InsertMany"))
	assert.Equal(t, 2, coll.Calls("BulkWrite"))
	assert.Len(t, coll.Documents(), 4)

	ids := lo.Map(batch, func(s *Spam, _ int) primitive.ObjectID { return s.ID })
	assert.Len(t, lo.Uniq(ids), 4)
}

func TestSaveMany_InsertOnly(t *testing.T) {
	repo, coll := newSpamRepository(t)

	require.NoError(t, repo.SaveMany(context.Background(), []*Spam{newSpam(1), newSpam(2)}))
	assert.Equal(t, 1, coll.Calls("InsertMany"))
	assert.Equal(t, 0, coll.Calls("BulkWrite"))

	require.NoError(t, repo.SaveMany(context.Background(), nil))
	assert.Equal(t, 1, coll.Calls("InsertMany"))

	assert.ErrorIs(t, repo.SaveMany(context.Background(), []*Spam{nil}), mongodb.ErrNilRecord)
}

func TestToDocumentAndModel(t *testing.T) {
	repo, _ := newSpamRepository(t)

	spam := newSpam(5)
	doc, err := repo.ToDocument(spam)
	require.NoError(t, err)
	assert.Equal(t, "foo", doc[0].Key)

	spam.ID = primitive.NewObjectID()
	doc, err = repo.ToDocument(spam)
	require.NoError(t, err)
	assert.Equal(t, bson.E{Key: "_id", Value: spam.ID}, doc[0])

	back, err := repo.ToModel(doc)
	require.NoError(t, err)
	assert.Equal(t, spam, back)

	summary, err := mongodb.ToModelAs[SpamCount](doc)
	require.NoError(t, err)
	assert.Equal(t, spam.ID, summary.ID)
}

type Note struct {
	ID   string `bson:"id"`
	Text string `bson:"text" validate:"required"`
}

func TestStringIDs(t *testing.T) {
	db := mongotest.NewDatabase("test")
	repo, err := mongodb.NewRepository[Note](db, mongodb.Options{Collection: "notes"})
	require.NoError(t, err)
	ctx := context.Background()

	n := &Note{Text: "hello"}
	_, err = repo.Save(ctx, n)
	require.NoError(t, err)
	require.Len(t, n.ID, 24)

	stored := db.C("notes").Documents()
	assert.Equal(t, n.ID, stored[0][0].Value)

	n.Text = "edited"
	res, err := repo.Save(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Matched)
	assert.Len(t, db.C("notes").Documents(), 1)

	named := &Note{ID: "custom", Text: "x"}
	_, err = repo.Save(ctx, named)
	require.NoError(t, err)
	found, err := repo.FindOneByID(ctx, mongodb.ParseID("custom"))
	require.NoError(t, err)
	assert.Equal(t, named, found)
}

func TestSaveMany_StringIDs(t *testing.T) {
	db := mongotest.NewDatabase("test")
	repo, err := mongodb.NewRepository[Note](db, mongodb.Options{Collection: "notes"})
	require.NoError(t, err)
	ctx := context.Background()

	notes := []*Note{{Text: "a"}, {Text: "b"}}
	require.NoError(t, repo.SaveMany(ctx, notes))
	require.Len(t, db.C("notes").Documents(), 2)
	assert.NotEqual(t, notes[0].ID, notes[1].ID)

	notes[1].Text = "b2"
	require.NoError(t, repo.SaveMany(ctx, notes))
	assert.Len(t, db.C("notes").Documents(), 2)
	assert.Equal(t, 1, db.C("notes").Calls("BulkWrite"))

	found, err := repo.FindOneByID(ctx, notes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "b2", found.Text)
}

func TestObservability(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	collector := metrics.NewDataCollector()

	repo, coll := newSpamRepository(t,
		mongodb.WithTracer(tp.Tracer("test")),
		mongodb.WithMetrics(collector))
	ctx := context.Background()

	_, err := repo.Save(ctx, newSpam(1))
	require.NoError(t, err)

	coll.Fail(errors.New("unavailable"))
	_, err = repo.Count(ctx, nil)
	require.Error(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "mongodb.insert_one", spans[0].Name())
	assert.Equal(t, "mongodb.count_documents", spans[1].Name())
	assert.Len(t, spans[1].Events(), 1)

	ops := collector.Operations()
	require.Len(t, ops, 2)
	assert.Equal(t, "spams.count_documents", ops[0].Key)
	assert.Equal(t, int64(1), ops[0].Errors)
	assert.Equal(t, "spams.insert_one", ops[1].Key)
	assert.Equal(t, int64(0), ops[1].Errors)
}
