// Package config loads application configuration with viper.
//
// Settings come from a YAML, JSON or TOML file and may be overridden by
// environment variables prefixed with DOCMAPPER_ (dots become underscores):
//
//	app_name: docmapper
//	server:
//	  host: 0.0.0.0
//	  port: 8080
//	logger:
//	  level: 4
//	  format: json
//	  output: stdout
//	data:
//	  mongodb:
//	    master:
//	      uri: mongodb://localhost:27017
//	    strategy: round_robin
//	    database: app
//	  breaker:
//	    enabled: true
//	paging:
//	  default_limit: 50
//	  max_limit: 500
//
// Load a file and react to edits:
//
//	cfg, err := config.LoadConfig("./config.yaml")
//	config.Watch(func(cfg *config.Config) { ... }, nil)
package config
