package config

import "github.com/spf13/viper"

// Metrics data metrics config
type Metrics struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Namespace string `yaml:"namespace" json:"namespace"`
	Path      string `yaml:"path" json:"path"`
}

// getMetricsConfig returns metrics config
func getMetricsConfig(v *viper.Viper) *Metrics {
	return &Metrics{
		Enabled:   v.GetBool("data.metrics.enabled"),
		Namespace: getStringOrDefault(v, "data.metrics.namespace", "docmapper"),
		Path:      getStringOrDefault(v, "data.metrics.path", "/metrics"),
	}
}
