package observability

import (
	"fmt"
	"time"
)

// Config selects which exporters the service starts. An empty endpoint
// keeps telemetry in-process (no-op global providers).
type Config struct {
	Endpoint   string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool          `yaml:"insecure" mapstructure:"insecure"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
	SampleRate float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// Enabled reports whether an OTLP endpoint is configured.
func (c *Config) Enabled() bool {
	return c.Endpoint != ""
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Second
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
}

// Validate validates observability configuration.
func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("observability.sample_rate must be within [0, 1] (got: %v)", c.SampleRate)
	}
	return nil
}

// MeterConfig derives a meter configuration for serviceName.
func (c *Config) MeterConfig(serviceName, environment string) MeterConfig {
	mc := DefaultMeterConfig(serviceName)
	mc.Environment = environment
	mc.Endpoint = c.Endpoint
	mc.Insecure = c.Insecure
	mc.Interval = c.Interval
	return mc
}

// TracerConfig derives a tracer configuration for serviceName.
func (c *Config) TracerConfig(serviceName, environment string) TracerConfig {
	tc := DefaultTracerConfig(serviceName)
	tc.Environment = environment
	tc.Endpoint = c.Endpoint
	tc.Insecure = c.Insecure
	tc.SampleRate = c.SampleRate
	return tc
}
