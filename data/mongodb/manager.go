package mongodb

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/ncobase/docmapper/data/config"
	"github.com/ncobase/docmapper/data/metrics"
	"github.com/ncobase/docmapper/logging/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNoAvailableSlaves is returned by a balancer given no clients.
	ErrNoAvailableSlaves = errors.New("no available slaves")
	// ErrInvalidStrategy is returned for an unknown balancing strategy.
	ErrInvalidStrategy = errors.New("invalid load balancing strategy")
)

// MongoManager routes reads to slaves and writes to the master.
type MongoManager struct {
	master   *mongo.Client
	slaves   []*mongo.Client
	strategy MongoLoadBalancer
	mutex    sync.RWMutex
	metrics  metrics.Collector
}

// Connector opens one client per node.
type Connector func(ctx context.Context, node *config.MongoNode) (*mongo.Client, error)

// NewMongoManager connects the master and every reachable slave. Slaves
// that fail to connect are logged and skipped; reads fall back to the master
// when none is left.
func NewMongoManager(ctx context.Context, conf *config.MongoDB, connect Connector) (*MongoManager, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	if connect == nil {
		connect = newMongoClient
	}

	strategy, err := newBalancer(conf)
	if err != nil {
		return nil, err
	}

	master, err := connect(ctx, conf.Master)
	if err != nil {
		return nil, err
	}

	var slaves []*mongo.Client
	for i, slaveCfg := range conf.Slaves {
		slave, err := connect(ctx, slaveCfg)
		if err != nil {
			logger.Warnf(ctx, "failed to connect to slave mongodb %d: %v", i, err)
			continue
		}
		slaves = append(slaves, slave)
	}

	if len(slaves) == 0 {
		slaves = append(slaves, master)
	}

	return &MongoManager{
		master:   master,
		slaves:   slaves,
		strategy: strategy,
		metrics:  metrics.NoOpCollector{},
	}, nil
}

func newBalancer(conf *config.MongoDB) (MongoLoadBalancer, error) {
	switch conf.Strategy {
	case "round_robin", "":
		return NewMongoRoundRobinBalancer(), nil
	case "random":
		return &MongoRandomBalancer{}, nil
	case "weight":
		return NewMongoWeightBalancer(conf.Slaves), nil
	}
	return nil, ErrInvalidStrategy
}

// SetMetrics sets the collector that receives health results.
func (m *MongoManager) SetMetrics(c metrics.Collector) {
	if c != nil {
		m.metrics = c
	}
}

// MongoLoadBalancer picks the client serving the next read.
type MongoLoadBalancer interface {
	Next([]*mongo.Client) (*mongo.Client, error)
}

// MongoRoundRobinBalancer cycles through the clients.
type MongoRoundRobinBalancer struct {
	current atomic.Uint64
}

// NewMongoRoundRobinBalancer creates a round robin balancer
func NewMongoRoundRobinBalancer() *MongoRoundRobinBalancer {
	return &MongoRoundRobinBalancer{}
}

func (rb *MongoRoundRobinBalancer) Next(slaves []*mongo.Client) (*mongo.Client, error) {
	if len(slaves) == 0 {
		return nil, ErrNoAvailableSlaves
	}
	next := rb.current.Add(1) % uint64(len(slaves))
	return slaves[next], nil
}

// MongoRandomBalancer picks a client at random.
type MongoRandomBalancer struct{}

func (rb *MongoRandomBalancer) Next(slaves []*mongo.Client) (*mongo.Client, error) {
	if len(slaves) == 0 {
		return nil, ErrNoAvailableSlaves
	}
	return slaves[rand.Intn(len(slaves))], nil
}

// MongoWeightBalancer spreads reads in proportion to node weights.
type MongoWeightBalancer struct {
	weights []int
	current atomic.Uint64
}

// NewMongoWeightBalancer creates a weight balancer
func NewMongoWeightBalancer(nodes []*config.MongoNode) *MongoWeightBalancer {
	weights := make([]int, len(nodes))
	for i, node := range nodes {
		weights[i] = node.Weight
		if weights[i] <= 0 {
			weights[i] = 1
		}
	}
	return &MongoWeightBalancer{weights: weights}
}

func (wb *MongoWeightBalancer) Next(slaves []*mongo.Client) (*mongo.Client, error) {
	if len(slaves) == 0 {
		return nil, ErrNoAvailableSlaves
	}

	// after health checks drop nodes the weights no longer line up
	weights := wb.weights
	if len(weights) != len(slaves) {
		weights = make([]int, len(slaves))
		for i := range weights {
			weights[i] = 1
		}
	}

	totalWeight := 0
	for _, w := range weights {
		totalWeight += w
	}

	next := wb.current.Add(1) % uint64(totalWeight)

	var accumulator int
	for i, w := range weights {
		accumulator += w
		if uint64(accumulator) > next {
			return slaves[i], nil
		}
	}

	return slaves[0], nil
}

// Master returns the master client.
func (m *MongoManager) Master() *mongo.Client {
	if m == nil {
		return nil
	}
	return m.master
}

// Slave returns the client for the next read, or the master when no slave
// is usable.
func (m *MongoManager) Slave() *mongo.Client {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if len(m.slaves) == 0 {
		return m.master
	}

	slave, err := m.strategy.Next(m.slaves)
	if err != nil {
		return m.master
	}
	return slave
}

// GetCollection returns a driver collection on the master, or on a slave when
// readOnly is set.
func (m *MongoManager) GetCollection(dbName, collName string, readOnly bool) *mongo.Collection {
	if readOnly {
		return m.Slave().Database(dbName).Collection(collName)
	}
	return m.master.Database(dbName).Collection(collName)
}

// Database returns a Database whose collections read from slaves and write
// to the master.
func (m *MongoManager) Database(name string) Database {
	return &routedDatabase{m: m, name: name}
}

// Health pings every node. Unreachable slaves are dropped from the read set.
func (m *MongoManager) Health(ctx context.Context) error {
	if err := m.master.Ping(ctx, nil); err != nil {
		m.metrics.HealthCheck("mongodb.master", false)
		return fmt.Errorf("master mongodb health check failed: %w", err)
	}
	m.metrics.HealthCheck("mongodb.master", true)

	m.mutex.Lock()
	defer m.mutex.Unlock()

	var healthySlaves []*mongo.Client
	for i, slave := range m.slaves {
		if err := slave.Ping(ctx, nil); err != nil {
			logger.Warnf(ctx, "slave mongodb %d health check failed: %v", i, err)
			continue
		}
		healthySlaves = append(healthySlaves, slave)
	}

	m.metrics.HealthCheck("mongodb.slaves", len(healthySlaves) > 0)
	if len(healthySlaves) == 0 {
		logger.Warn(ctx, "no healthy slave mongodb available, using master for reads")
		healthySlaves = append(healthySlaves, m.master)
	}
	m.slaves = healthySlaves

	return nil
}

// Close disconnects every client.
func (m *MongoManager) Close(ctx context.Context) error {
	var errs []error

	if err := m.master.Disconnect(ctx); err != nil {
		errs = append(errs, fmt.Errorf("error closing master connection: %w", err))
	}

	for i, slave := range m.slaves {
		if slave != m.master {
			if err := slave.Disconnect(ctx); err != nil {
				errs = append(errs, fmt.Errorf("error closing slave %d connection: %w", i, err))
			}
		}
	}

	return errors.Join(errs...)
}

func newMongoClient(ctx context.Context, conf *config.MongoNode) (*mongo.Client, error) {
	if conf == nil || conf.URI == "" {
		return nil, errors.New("mongodb configuration is nil or empty")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb ping error: %w", err)
	}

	return client, nil
}

// routedDatabase hands out routed collections.
type routedDatabase struct {
	m    *MongoManager
	name string
}

func (d *routedDatabase) Collection(name string) Collection {
	return &routedCollection{m: d.m, db: d.name, name: name}
}

// routedCollection sends reads to a slave and writes to the master.
type routedCollection struct {
	m    *MongoManager
	db   string
	name string
}

func (c *routedCollection) read() *mongo.Collection  { return c.m.GetCollection(c.db, c.name, true) }
func (c *routedCollection) write() *mongo.Collection { return c.m.GetCollection(c.db, c.name, false) }

func (c *routedCollection) Name() string { return c.name }

func (c *routedCollection) Find(ctx context.Context, filter any, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	return c.read().Find(ctx, filter, opts...)
}

func (c *routedCollection) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) *mongo.SingleResult {
	return c.read().FindOne(ctx, filter, opts...)
}

func (c *routedCollection) CountDocuments(ctx context.Context, filter any, opts ...*options.CountOptions) (int64, error) {
	return c.read().CountDocuments(ctx, filter, opts...)
}

func (c *routedCollection) InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return c.write().InsertOne(ctx, document, opts...)
}

func (c *routedCollection) InsertMany(ctx context.Context, documents []any, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	return c.write().InsertMany(ctx, documents, opts...)
}

func (c *routedCollection) UpdateOne(ctx context.Context, filter any, update any, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return c.write().UpdateOne(ctx, filter, update, opts...)
}

func (c *routedCollection) BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error) {
	return c.write().BulkWrite(ctx, models, opts...)
}

func (c *routedCollection) DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.write().DeleteOne(ctx, filter, opts...)
}

func (c *routedCollection) DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	return c.write().DeleteMany(ctx, filter, opts...)
}
