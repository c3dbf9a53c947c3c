package config

import (
	"github.com/ncobase/docmapper/paging"
	"github.com/spf13/viper"
)

// Paging page size bounds
type Paging struct {
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`
	MaxLimit     int `json:"max_limit" yaml:"max_limit"`
}

func getPagingConfig(v *viper.Viper) *Paging {
	p := &Paging{
		DefaultLimit: getIntOrDefault(v, "paging.default_limit", paging.DefaultLimit),
		MaxLimit:     getIntOrDefault(v, "paging.max_limit", paging.MaxLimit),
	}
	if p.MaxLimit <= 0 {
		p.MaxLimit = paging.MaxLimit
	}
	if p.DefaultLimit <= 0 || p.DefaultLimit > p.MaxLimit {
		p.DefaultLimit = p.MaxLimit
	}
	return p
}
