package config

import (
	logcfg "github.com/ncobase/docmapper/logging/logger/config"

	"github.com/google/wire"
)

// ProviderSet is the wire provider set for the config package.
// It extracts sub-configurations from a loaded *Config.
var ProviderSet = wire.NewSet(
	ProvideLoggerConfig,
	ProvideDataConfig,
	ProvidePagingConfig,
)

// ProvideLoggerConfig provides the logger configuration.
func ProvideLoggerConfig(cfg *Config) *logcfg.Config {
	if cfg == nil {
		return nil
	}
	return cfg.Logger
}

// ProvideDataConfig provides the data layer configuration.
func ProvideDataConfig(cfg *Config) *Data {
	if cfg == nil {
		return nil
	}
	return cfg.Data
}

// ProvidePagingConfig provides the page size bounds.
func ProvidePagingConfig(cfg *Config) *Paging {
	if cfg == nil {
		return nil
	}
	return cfg.Paging
}
