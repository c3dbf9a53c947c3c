package config

import (
	"time"

	"github.com/spf13/viper"
)

// Breaker circuit breaker config for store calls
type Breaker struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	MaxRequests uint32        `yaml:"max_requests" json:"max_requests"`
	Interval    time.Duration `yaml:"interval" json:"interval"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	// Failures is the number of consecutive failures that opens the breaker.
	Failures uint32 `yaml:"failures" json:"failures"`
}

// getBreakerConfig returns breaker config
func getBreakerConfig(v *viper.Viper) *Breaker {
	b := &Breaker{
		Enabled:     v.GetBool("data.breaker.enabled"),
		MaxRequests: uint32(getIntOrDefault(v, "data.breaker.max_requests", 1)),
		Interval:    v.GetDuration("data.breaker.interval"),
		Timeout:     30 * time.Second,
		Failures:    uint32(getIntOrDefault(v, "data.breaker.failures", 5)),
	}
	if v.IsSet("data.breaker.timeout") {
		b.Timeout = v.GetDuration("data.breaker.timeout")
	}
	return b
}
