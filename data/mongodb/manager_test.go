package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/ncobase/docmapper/data/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func clients(n int) []*mongo.Client {
	out := make([]*mongo.Client, n)
	for i := range out {
		out[i] = new(mongo.Client)
	}
	return out
}

// TestRoundRobinBalancer verifies every slave is used in turn
func TestRoundRobinBalancer(t *testing.T) {
	slaves := clients(3)
	rb := NewMongoRoundRobinBalancer()

	seen := map[*mongo.Client]int{}
	for range 6 {
		c, err := rb.Next(slaves)
		require.NoError(t, err)
		seen[c]++
	}
	for _, s := range slaves {
		assert.Equal(t, 2, seen[s])
	}

	_, err := rb.Next(nil)
	assert.ErrorIs(t, err, ErrNoAvailableSlaves)
}

// TestWeightBalancer verifies reads follow node weights
func TestWeightBalancer(t *testing.T) {
	slaves := clients(2)
	wb := NewMongoWeightBalancer([]*config.MongoNode{{Weight: 3}, {Weight: 1}})

	seen := map[*mongo.Client]int{}
	for range 8 {
		c, err := wb.Next(slaves)
		require.NoError(t, err)
		seen[c]++
	}
	assert.Equal(t, 6, seen[slaves[0]])
	assert.Equal(t, 2, seen[slaves[1]])

	// weights no longer match after a slave is dropped
	c, err := wb.Next(slaves[:1])
	require.NoError(t, err)
	assert.Same(t, slaves[0], c)
}

// TestRandomBalancer verifies a slave is always returned
func TestRandomBalancer(t *testing.T) {
	slaves := clients(2)
	rb := &MongoRandomBalancer{}
	c, err := rb.Next(slaves)
	require.NoError(t, err)
	assert.Contains(t, slaves, c)

	_, err = rb.Next(nil)
	assert.ErrorIs(t, err, ErrNoAvailableSlaves)
}

// TestNewMongoManager_Config verifies invalid settings fail before connecting
func TestNewMongoManager_Config(t *testing.T) {
	called := false
	connect := func(context.Context, *config.MongoNode) (*mongo.Client, error) {
		called = true
		return new(mongo.Client), nil
	}
	ctx := context.Background()

	_, err := NewMongoManager(ctx, nil, connect)
	assert.Error(t, err)

	_, err = NewMongoManager(ctx, &config.MongoDB{Master: &config.MongoNode{}}, connect)
	assert.Error(t, err)

	_, err = NewMongoManager(ctx, &config.MongoDB{Master: &config.MongoNode{URI: "mongodb://x"}, Strategy: "nearest"}, connect)
	assert.Error(t, err)
	assert.False(t, called)
}

// TestNewMongoManager_Slaves verifies failing slaves are skipped and reads
// fall back to the master
func TestNewMongoManager_Slaves(t *testing.T) {
	master := new(mongo.Client)
	conf := &config.MongoDB{
		Master: &config.MongoNode{URI: "mongodb://master"},
		Slaves: []*config.MongoNode{{URI: "mongodb://down"}},
	}
	connect := func(_ context.Context, node *config.MongoNode) (*mongo.Client, error) {
		if node.URI == "mongodb://down" {
			return nil, errors.New("unreachable")
		}
		return master, nil
	}

	m, err := NewMongoManager(context.Background(), conf, connect)
	require.NoError(t, err)
	assert.Same(t, master, m.Master())
	assert.Same(t, master, m.Slave())

	_, err = NewMongoManager(context.Background(), conf, func(context.Context, *config.MongoNode) (*mongo.Client, error) {
		return nil, errors.New("unreachable")
	})
	assert.Error(t, err)
}

// TestOpen_InvalidConfig verifies Open validates before dialing
func TestOpen_InvalidConfig(t *testing.T) {
	_, _, err := Open(context.Background(), &config.MongoDB{}, nil)
	assert.Error(t, err)
}

// TestParseID verifies hex ids become ObjectIDs
func TestParseID(t *testing.T) {
	assert.IsType(t, primitive.ObjectID{}, ParseID("611b158adec89d18984b7d90"))
	assert.Equal(t, "custom", ParseID("custom"))
	assert.Equal(t, "611B158", ParseID("611B158"))
}
