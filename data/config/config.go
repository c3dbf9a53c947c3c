package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config data config struct
type Config struct {
	*MongoDB `yaml:"mongodb" json:"mongodb"`
	*Breaker `yaml:"breaker" json:"breaker"`
	*Metrics `yaml:"metrics" json:"metrics"`
	*Redis   `yaml:"redis" json:"redis"`
}

// GetConfig returns data config
func GetConfig(v *viper.Viper) *Config {
	return &Config{
		MongoDB: getMongoDBConfigs(v),
		Breaker: getBreakerConfig(v),
		Metrics: getMetricsConfig(v),
		Redis:   getRedisConfig(v),
	}
}

// getStringOrDefault returns string value or default
func getStringOrDefault(v *viper.Viper, key, defaultValue string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return defaultValue
}

// getDurationOrDefault returns duration value or default
func getDurationOrDefault(v *viper.Viper, key string, defaultValue time.Duration) time.Duration {
	if v.IsSet(key) {
		return v.GetDuration(key)
	}
	return defaultValue
}

// getIntOrDefault returns int value or default
func getIntOrDefault(v *viper.Viper, key string, defaultValue int) int {
	if v.IsSet(key) {
		return v.GetInt(key)
	}
	return defaultValue
}
