package config

import (
	"time"

	"github.com/spf13/viper"
)

// Redis count cache config. An empty Addr disables the cache.
type Redis struct {
	Addr         string        `yaml:"addr" json:"addr"`
	Username     string        `yaml:"username" json:"username"`
	Password     string        `yaml:"password" json:"password"`
	Db           int           `yaml:"db" json:"db"`
	KeyPrefix    string        `yaml:"key_prefix" json:"key_prefix"`
	TTL          time.Duration `yaml:"ttl" json:"ttl"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	DialTimeout  time.Duration `yaml:"dial_timeout" json:"dial_timeout"`
}

// Enabled reports whether a server is configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Addr != ""
}

// getRedisConfig returns redis config
func getRedisConfig(v *viper.Viper) *Redis {
	return &Redis{
		Addr:         v.GetString("data.redis.addr"),
		Username:     v.GetString("data.redis.username"),
		Password:     v.GetString("data.redis.password"),
		Db:           v.GetInt("data.redis.db"),
		KeyPrefix:    getStringOrDefault(v, "data.redis.key_prefix", "docmapper"),
		TTL:          getDurationOrDefault(v, "data.redis.ttl", time.Minute),
		ReadTimeout:  getDurationOrDefault(v, "data.redis.read_timeout", 3*time.Second),
		WriteTimeout: getDurationOrDefault(v, "data.redis.write_timeout", 3*time.Second),
		DialTimeout:  getDurationOrDefault(v, "data.redis.dial_timeout", 5*time.Second),
	}
}
