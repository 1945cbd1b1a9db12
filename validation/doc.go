// Package validation validates configuration structs.
//
// Struct tags are checked with go-playground/validator; cross-field rules
// are collected with a Validator. Both report an INVALID_CONFIG AppError
// whose details list the offending fields.
//
//	type FlowConfig struct {
//	    Prefetch int `mapstructure:"prefetch" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
//	v := validation.New()
//	v.Check(cfg.Capacity > 0, "capacity", "is required for the buffer strategy")
//	err := v.Error()
package validation
