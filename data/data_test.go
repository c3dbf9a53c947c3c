package data

import (
	"context"
	"testing"

	"github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/mongodb/mongotest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type widget struct {
	ID   primitive.ObjectID `bson:"id,omitempty"`
	Name string             `bson:"name"`
}

func testConfig() *config.Config {
	return &config.Config{
		MongoDB: &config.MongoDB{Master: &config.MongoNode{URI: "mongodb://localhost"}, Database: "test"},
		Breaker: &config.Breaker{Enabled: true, Failures: 3},
		Metrics: &config.Metrics{Enabled: true, Namespace: "docmapper_test"},
	}
}

func TestNew_WithDatabase(t *testing.T) {
	reg := prometheus.NewRegistry()
	d, cleanup, err := New(context.Background(), testConfig(),
		WithDatabase(mongotest.NewDatabase("test")),
		WithRegisterer(reg))
	require.NoError(t, err)
	defer cleanup()

	repo, err := NewRepository[widget](d, "widgets")
	require.NoError(t, err)

	w := &widget{Name: "a"}
	_, err = repo.Save(context.Background(), w)
	require.NoError(t, err)

	stats := d.GetStats()["mongodb"].(map[string]any)
	require.NotEmpty(t, stats["operations"])

	n, err := testutil.GatherAndCount(reg, "docmapper_test_mongo_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	health := d.Health(context.Background())
	assert.Equal(t, "healthy", health["status"])
	assert.NoError(t, d.Close(context.Background()))
}

func TestNew_InvalidConfig(t *testing.T) {
	_, _, err := New(context.Background(), nil)
	assert.Error(t, err)

	_, _, err = New(context.Background(), &config.Config{MongoDB: &config.MongoDB{}})
	assert.Error(t, err)
}
