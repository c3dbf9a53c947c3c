package metrics

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SlowOperation marks store operations worth counting as slow.
const SlowOperation = time.Second

// Collector interface for data layer metrics
type Collector interface {
	MongoOperation(collection, operation string, duration time.Duration, err error)
	BreakerState(name, state string)
	HealthCheck(component string, healthy bool)
	RedisCommand(command string, err error)
}

// NoOpCollector implements Collector with no-op methods
type NoOpCollector struct{}

func (NoOpCollector) MongoOperation(string, string, time.Duration, error) {}
func (NoOpCollector) BreakerState(string, string)                         {}
func (NoOpCollector) HealthCheck(string, bool)                            {}
func (NoOpCollector) RedisCommand(string, error)                          {}

// opStats holds the counters of one collection and operation pair.
type opStats struct {
	calls  atomic.Int64
	errors atomic.Int64
	slow   atomic.Int64
	nanos  atomic.Int64
}

// DataCollector keeps in-process counters of store activity.
type DataCollector struct {
	mu       sync.RWMutex
	ops      map[string]*opStats
	breakers map[string]string
	health   map[string]*atomic.Bool
	lastOp   atomic.Value // time.Time
	redis    map[string]*opStats
}

// NewDataCollector creates a new data collector
func NewDataCollector() *DataCollector {
	c := &DataCollector{
		ops:      make(map[string]*opStats),
		breakers: make(map[string]string),
		health:   make(map[string]*atomic.Bool),
		redis:    make(map[string]*opStats),
	}
	c.lastOp.Store(time.Time{})
	return c
}

func (c *DataCollector) stats(key string) *opStats {
	c.mu.RLock()
	s, ok := c.ops[key]
	c.mu.RUnlock()
	if ok {
		return s
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok = c.ops[key]; !ok {
		s = &opStats{}
		c.ops[key] = s
	}
	return s
}

// MongoOperation records MongoDB operation metrics
func (c *DataCollector) MongoOperation(collection, operation string, duration time.Duration, err error) {
	s := c.stats(collection + "." + operation)
	s.calls.Add(1)
	s.nanos.Add(int64(duration))
	if err != nil {
		s.errors.Add(1)
	}
	if duration > SlowOperation {
		s.slow.Add(1)
	}
	c.lastOp.Store(time.Now())
}

// BreakerState records the latest state of a circuit breaker
func (c *DataCollector) BreakerState(name, state string) {
	c.mu.Lock()
	c.breakers[name] = state
	c.mu.Unlock()
}

// HealthCheck records health check metrics
func (c *DataCollector) HealthCheck(component string, healthy bool) {
	c.mu.Lock()
	h, ok := c.health[component]
	if !ok {
		h = &atomic.Bool{}
		c.health[component] = h
	}
	c.mu.Unlock()
	h.Store(healthy)
}

// RedisCommand records a cache command
func (c *DataCollector) RedisCommand(command string, err error) {
	c.mu.Lock()
	s, ok := c.redis[command]
	if !ok {
		s = &opStats{}
		c.redis[command] = s
	}
	c.mu.Unlock()
	s.calls.Add(1)
	if err != nil {
		s.errors.Add(1)
	}
}

// OperationStats is a snapshot of one collection and operation pair.
type OperationStats struct {
	Key     string        `json:"key"`
	Calls   int64         `json:"calls"`
	Errors  int64         `json:"errors"`
	Slow    int64         `json:"slow"`
	Average time.Duration `json:"average"`
}

// Operations returns a snapshot sorted by key.
func (c *DataCollector) Operations() []OperationStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]OperationStats, 0, len(c.ops))
	for key, s := range c.ops {
		st := OperationStats{
			Key:    key,
			Calls:  s.calls.Load(),
			Errors: s.errors.Load(),
			Slow:   s.slow.Load(),
		}
		if st.Calls > 0 {
			st.Average = time.Duration(s.nanos.Load() / st.Calls)
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GetStats returns current statistics
func (c *DataCollector) GetStats() map[string]any {
	c.mu.RLock()
	health := make(map[string]bool, len(c.health))
	for component, status := range c.health {
		health[component] = status.Load()
	}
	breakers := make(map[string]string, len(c.breakers))
	for name, state := range c.breakers {
		breakers[name] = state
	}
	redis := make(map[string]map[string]int64, len(c.redis))
	for command, s := range c.redis {
		redis[command] = map[string]int64{"calls": s.calls.Load(), "errors": s.errors.Load()}
	}
	c.mu.RUnlock()

	return map[string]any{
		"mongodb": map[string]any{
			"operations":     c.Operations(),
			"last_operation": c.lastOp.Load(),
		},
		"redis":     redis,
		"breakers":  breakers,
		"health":    health,
		"timestamp": time.Now(),
	}
}

// fanout forwards every call to several collectors.
type fanout []Collector

// Fanout combines collectors. Nil entries are skipped.
func Fanout(collectors ...Collector) Collector {
	out := make(fanout, 0, len(collectors))
	for _, c := range collectors {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (f fanout) MongoOperation(collection, operation string, duration time.Duration, err error) {
	for _, c := range f {
		c.MongoOperation(collection, operation, duration, err)
	}
}

func (f fanout) BreakerState(name, state string) {
	for _, c := range f {
		c.BreakerState(name, state)
	}
}

func (f fanout) HealthCheck(component string, healthy bool) {
	for _, c := range f {
		c.HealthCheck(component, healthy)
	}
}

func (f fanout) RedisCommand(command string, err error) {
	for _, c := range f {
		c.RedisCommand(command, err)
	}
}
