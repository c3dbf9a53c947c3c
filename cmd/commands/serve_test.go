package commands

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ncobase/docmapper/config"
	"github.com/ncobase/docmapper/data"
	dc "github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/mongodb"
	"github.com/ncobase/docmapper/data/mongodb/mongotest"
	"github.com/ncobase/docmapper/ecode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pageBody struct {
	Edges []struct {
		Node   map[string]any `json:"node"`
		Cursor string         `json:"cursor"`
	} `json:"edges"`
	Total   int64  `json:"total"`
	Next    string `json:"next"`
	HasNext bool   `json:"has_next"`
}

type failBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Errors  any    `json:"errors"`
}

func newTestRouter(t *testing.T) (*gin.Engine, []primitive.ObjectID) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Data: &dc.Config{
			MongoDB: &dc.MongoDB{Master: &dc.MongoNode{URI: "mongodb://localhost"}, Database: "test"},
			Metrics: &dc.Metrics{},
		},
		Paging: &config.Paging{DefaultLimit: 2, MaxLimit: 10},
	}
	d, cleanup, err := data.New(context.Background(), cfg.Data, data.WithDatabase(mongotest.NewDatabase("test")))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	repo, err := documents(d, cfg, "spams")
	require.NoError(t, err)
	ids := make([]primitive.ObjectID, 0, 3)
	for _, name := range []string{"a", "b", "c"} {
		doc := &mongodb.Document{Fields: bson.M{"name": name}}
		_, err := repo.Save(context.Background(), doc)
		require.NoError(t, err)
		ids = append(ids, doc.ID.(primitive.ObjectID))
	}
	return newRouter(cfg, d), ids
}

func get(t *testing.T, r http.Handler, target string, v any) int {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
	}
	return w.Code
}

func TestServe_Pages(t *testing.T) {
	r, ids := newTestRouter(t)

	var first pageBody
	require.Equal(t, http.StatusOK, get(t, r, "/collections/spams", &first))
	require.Len(t, first.Edges, 2)
	assert.Equal(t, int64(3), first.Total)
	assert.True(t, first.HasNext)
	assert.Equal(t, ids[0].Hex(), first.Edges[0].Node["id"])
	assert.Equal(t, "a", first.Edges[0].Node["name"])
	assert.Equal(t, first.Edges[1].Cursor, first.Next)

	var second pageBody
	require.Equal(t, http.StatusOK, get(t, r, "/collections/spams?after="+url.QueryEscape(first.Next), &second))
	require.Len(t, second.Edges, 1)
	assert.Equal(t, "c", second.Edges[0].Node["name"])
	assert.False(t, second.HasNext)
	assert.Empty(t, second.Next)

	var desc pageBody
	require.Equal(t, http.StatusOK, get(t, r, "/collections/spams?sort=-id&limit=1", &desc))
	require.Len(t, desc.Edges, 1)
	assert.Equal(t, "c", desc.Edges[0].Node["name"])

	var filtered pageBody
	filter := url.QueryEscape(`{"name": {"$in": ["a", "c"]}}`)
	require.Equal(t, http.StatusOK, get(t, r, "/collections/spams?limit=5&filter="+filter, &filtered))
	assert.Len(t, filtered.Edges, 2)
	assert.Equal(t, int64(2), filtered.Total)
}

func TestServe_Errors(t *testing.T) {
	r, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		status int
		code   int
		msg    string
	}{
		{"invalid cursor", "/collections/spams?after=invalid%20string", http.StatusBadRequest, ecode.InvalidCursor, "cursor invalid"},
		{"invalid sort", "/collections/spams?sort=-", http.StatusBadRequest, ecode.InvalidSort, "sort invalid"},
		{"invalid filter", "/collections/spams?filter=%7Bnope", http.StatusBadRequest, ecode.ParamErr, "filter invalid"},
		{"invalid projection", "/collections/spams?projection=%7Bnope", http.StatusBadRequest, ecode.ParamErr, "projection invalid"},
		{"invalid limit", "/collections/spams?limit=x", http.StatusBadRequest, ecode.ParamErr, "query invalid"},
		{"missing document", "/collections/spams/611b158adec89d18984b7d90", http.StatusNotFound, ecode.NotFound, "document does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body failBody
			assert.Equal(t, tt.status, get(t, r, tt.target, &body))
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.msg, body.Message)
			if tt.code != ecode.NotFound {
				assert.NotEmpty(t, body.Errors)
			}
		})
	}
}

func TestServe_GetAndHealth(t *testing.T) {
	r, ids := newTestRouter(t)

	var doc map[string]any
	require.Equal(t, http.StatusOK, get(t, r, "/collections/spams/"+ids[1].Hex(), &doc))
	assert.Equal(t, "b", doc["name"])

	var health map[string]any
	require.Equal(t, http.StatusOK, get(t, r, "/healthz", &health))
	assert.Equal(t, "healthy", health["status"])

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("X-Trace-ID", "trace-1")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
