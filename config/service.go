package config

import (
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/observability"
	"github.com/kbukum/demandflow/server"
	"github.com/kbukum/demandflow/validation"
)

// ServiceConfig is the root configuration of a demandflow service.
type ServiceConfig struct {
	Name          string               `yaml:"name" mapstructure:"name" validate:"required"`
	Environment   string               `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version       string               `yaml:"version" mapstructure:"version"`
	Logging       logger.Config        `yaml:"logging" mapstructure:"logging"`
	Flow          FlowConfig           `yaml:"flow" mapstructure:"flow"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Admin         server.Config        `yaml:"admin" mapstructure:"admin"`
}

// ApplyDefaults fills unset fields of every section.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	// Console output is tagged with the service name.
	if c.Logging.ServiceName == "" && c.Name != "" {
		c.Logging.ServiceName = c.Name
	}
	c.Logging.ApplyDefaults()
	c.Flow.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Admin.ApplyDefaults()
}

// Validate reports every invalid field of every section at once.
func (c *ServiceConfig) Validate() error {
	v := validation.New()
	v.Merge("", validation.Validate(c))
	v.Merge("logging", c.Logging.Validate())
	v.Merge("observability", c.Observability.Validate())
	v.Merge("admin", c.Admin.Validate())
	if !v.HasErrors() {
		_, err := c.Flow.BuildStrategy()
		v.Merge("flow", err)
	}
	return v.Error()
}
