package config

import (
	"github.com/kbukum/demandflow/flow"
	"github.com/kbukum/demandflow/validation"
)

// FlowConfig holds the stream defaults a service builds its stages from.
type FlowConfig struct {
	// Prefetch is the window an ObserveOn stage keeps requested upstream.
	Prefetch int `yaml:"prefetch" mapstructure:"prefetch" validate:"gte=1,lte=65536"`
	// Strategy is the bridge strategy for push producers.
	Strategy string `yaml:"strategy" mapstructure:"strategy" validate:"oneof=buffer drop latest error missing"`
	// BufferCapacity and OverflowPolicy apply to the buffer strategy.
	BufferCapacity int    `yaml:"buffer_capacity" mapstructure:"buffer_capacity" validate:"gte=1"`
	OverflowPolicy string `yaml:"overflow_policy" mapstructure:"overflow_policy"`
	// IterateBatch is the demand kept outstanding by blocking iteration.
	IterateBatch int `yaml:"iterate_batch" mapstructure:"iterate_batch" validate:"gte=1"`
	// Workers sizes the consumer executor pool.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1,lte=256"`
}

// ApplyDefaults fills unset fields.
func (c *FlowConfig) ApplyDefaults() {
	if c.Prefetch == 0 {
		c.Prefetch = 128
	}
	if c.Strategy == "" {
		c.Strategy = flow.StrategyBuffer.String()
	}
	if c.BufferCapacity == 0 {
		c.BufferCapacity = 128
	}
	if c.OverflowPolicy == "" {
		c.OverflowPolicy = flow.ErrorOnOverflow.String()
	}
	if c.IterateBatch == 0 {
		c.IterateBatch = flow.DefaultBatchSize
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
}

// Validate checks the tags and that the strategy can be built.
func (c *FlowConfig) Validate() error {
	v := validation.New()
	v.Merge("", validation.Validate(c))
	if !v.HasErrors() {
		_, err := c.BuildStrategy()
		v.Merge("", err)
	}
	return v.Error()
}

// Policy parses OverflowPolicy.
func (c *FlowConfig) Policy() (flow.OverflowPolicy, error) {
	return flow.ParseOverflowPolicy(c.OverflowPolicy)
}

// BuildStrategy maps the configuration to a flow.Strategy.
func (c *FlowConfig) BuildStrategy() (flow.Strategy, error) {
	kind, err := flow.ParseStrategyKind(c.Strategy)
	if err != nil {
		return flow.Strategy{}, err
	}
	s := flow.Strategy{Kind: kind}
	if kind == flow.StrategyBuffer {
		policy, err := c.Policy()
		if err != nil {
			return flow.Strategy{}, err
		}
		s = flow.BufferStrategy(c.BufferCapacity, policy)
	}
	return s, s.Validate()
}
