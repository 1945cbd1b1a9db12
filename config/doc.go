// Package config loads demandflow service configuration.
//
// Values come from a YAML file, a .env file and the process environment, in
// increasing order of precedence. Every `mapstructure` key is bound to an
// environment variable named after its path, e.g. flow.prefetch is read
// from FLOW_PREFETCH (or APP_FLOW_PREFETCH with WithEnvPrefix("APP")).
//
// # Usage
//
//	cfg, err := config.Load("flowdemo")
//	strategy, err := cfg.Flow.Strategy()
package config
