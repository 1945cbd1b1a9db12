package validation

import (
	"strings"

	"github.com/kbukum/demandflow/errors"
)

// FieldError is a problem with one configuration field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator collects field errors.
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// AddError records a field error.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// Check records a field error unless ok holds.
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Merge adds the field errors carried by err, or err's message when it
// carries none. A nil err is ignored.
func (v *Validator) Merge(prefix string, err error) {
	if err == nil {
		return
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if fields, ok := appErr.Details["fields"].([]FieldError); ok {
			for _, f := range fields {
				v.AddError(join(prefix, f.Field), f.Message)
			}
			return
		}
		if field, ok := appErr.Details["field"].(string); ok {
			v.AddError(join(prefix, field), strings.TrimPrefix(appErr.Message, "invalid configuration: "))
			return
		}
	}
	v.AddError(prefix, err.Error())
}

// HasErrors reports whether any error was recorded.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns the recorded errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Error returns an INVALID_CONFIG error listing every field, or nil.
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	messages := make([]string, len(v.errors))
	for i, e := range v.errors {
		messages[i] = e.Field + ": " + e.Message
	}
	field := ""
	if len(v.errors) == 1 {
		field = v.errors[0].Field
	}
	return errors.InvalidConfig(field, strings.Join(messages, "; ")).
		WithDetail("fields", v.errors)
}

func join(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}
