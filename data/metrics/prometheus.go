package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports store metrics to Prometheus.
type PrometheusCollector struct {
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	breakers   *prometheus.GaugeVec
	health     *prometheus.GaugeVec
	redis      *prometheus.CounterVec
}

// breakerStates orders the gauge values of a breaker.
var breakerStates = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

// NewPrometheusCollector registers the store metrics on reg under namespace.
// Metrics already registered on reg are reused.
func NewPrometheusCollector(namespace string, reg prometheus.Registerer) (*PrometheusCollector, error) {
	c := &PrometheusCollector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mongo",
			Name:      "operations_total",
			Help:      "Store operations by collection, operation and outcome.",
		}, []string{"collection", "operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mongo",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection", "operation"}),
		breakers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mongo",
			Name:      "breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open.",
		}, []string{"name"}),
		health: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_healthy",
			Help:      "1 when the last health check of a component passed.",
		}, []string{"component"}),
		redis: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "commands_total",
			Help:      "Count cache commands by command and outcome.",
		}, []string{"command", "outcome"}),
	}

	var err error
	if c.operations, err = register(reg, c.operations); err != nil {
		return nil, err
	}
	if c.latency, err = register(reg, c.latency); err != nil {
		return nil, err
	}
	if c.breakers, err = register(reg, c.breakers); err != nil {
		return nil, err
	}
	if c.health, err = register(reg, c.health); err != nil {
		return nil, err
	}
	if c.redis, err = register(reg, c.redis); err != nil {
		return nil, err
	}
	return c, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// MongoOperation records MongoDB operation metrics
func (c *PrometheusCollector) MongoOperation(collection, operation string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.operations.WithLabelValues(collection, operation, outcome).Inc()
	c.latency.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// BreakerState records the state of a circuit breaker
func (c *PrometheusCollector) BreakerState(name, state string) {
	c.breakers.WithLabelValues(name).Set(breakerStates[state])
}

// HealthCheck records health check metrics
func (c *PrometheusCollector) HealthCheck(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1
	}
	c.health.WithLabelValues(component).Set(v)
}

// RedisCommand records a cache command
func (c *PrometheusCollector) RedisCommand(command string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.redis.WithLabelValues(command, outcome).Inc()
}
