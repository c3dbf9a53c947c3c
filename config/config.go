package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	logcfg "github.com/ncobase/docmapper/logging/logger/config"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DOCMAPPER_SERVER_PORT.
const EnvPrefix = "DOCMAPPER"

var (
	config *Config
	path   string
	mu     sync.RWMutex
	v      = viper.New()
)

// Config represents the configuration implementation.
type Config struct {
	AppName  string
	RunMode  string
	Host     string
	Port     int
	Logger   *logcfg.Config
	Data     *Data
	Paging   *Paging
	Observes *Observes
	Viper    *viper.Viper
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetConfig returns the last loaded configuration.
func GetConfig() (*Config, error) {
	mu.RLock()
	defer mu.RUnlock()
	if config == nil {
		return nil, fmt.Errorf("config not loaded")
	}
	return config, nil
}

// LoadConfig loads the configuration from the file. An empty path searches
// the default locations for config.yaml.
func LoadConfig(configPath string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	nv := viper.New()
	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		ex, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to get executable path: %w", err)
		}
		nv.SetConfigName("config")
		nv.AddConfigPath("/etc/docmapper")
		nv.AddConfigPath("$HOME/.docmapper")
		nv.AddConfigPath(".")
		nv.AddConfigPath(filepath.Dir(ex))
	}
	nv.SetEnvPrefix(EnvPrefix)
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := fromViper(nv)
	v, path, config = nv, configPath, cfg
	return cfg, nil
}

// fromViper builds a Config from a populated viper instance.
func fromViper(v *viper.Viper) *Config {
	return &Config{
		AppName:  getStringOrDefault(v, "app_name", "docmapper"),
		RunMode:  getStringOrDefault(v, "run_mode", "release"),
		Host:     getStringOrDefault(v, "server.host", "127.0.0.1"),
		Port:     getIntOrDefault(v, "server.port", 8080),
		Logger:   logcfg.GetConfig(v),
		Data:     getDataConfig(v),
		Paging:   getPagingConfig(v),
		Observes: getObservesConfig(v),
		Viper:    v,
	}
}

// Reload reloads the configuration from the file.
func Reload() error {
	mu.RLock()
	p := path
	mu.RUnlock()

	if _, err := LoadConfig(p); err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	return nil
}

// Watch watches the configuration file and reloads it when it changes.
func Watch(callback func(*Config), onError func(error)) {
	mu.RLock()
	current := v
	mu.RUnlock()

	current.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if err := Reload(); err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		cfg, err := GetConfig()
		if err == nil && callback != nil {
			callback(cfg)
		}
	})
	current.WatchConfig()
}
