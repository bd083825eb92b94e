// Package validation holds the hand-rolled business-rule checks that
// don't fit a struct tag: cross-field conditions, enums shared between
// the HTTP DTOs and the service layer, and provider-input sanity checks.
package validation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/orchestrix/tracksync/pkg/apperror"
)

// FieldError is one failed check on one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator accumulates field errors across chained checks.
type Validator struct {
	errors []FieldError
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{errors: make([]FieldError, 0)}
}

// AddError records a failed check.
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, FieldError{Field: field, Message: message})
}

// HasErrors reports whether any check failed.
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error folds the accumulated field errors into one AppError, or nil.
func (v *Validator) Error() *apperror.AppError {
	if !v.HasErrors() {
		return nil
	}
	fieldErrors := make(map[string]string)
	for _, e := range v.errors {
		fieldErrors[e.Field] = e.Message
	}
	return apperror.ValidationWithFields(fieldErrors)
}

// Errors returns the accumulated field errors.
func (v *Validator) Errors() []FieldError {
	return v.errors
}

// Required validates that a string is not empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, fmt.Sprintf("%s is required", field))
	}
	return v
}

// MinLength validates minimum string length.
func (v *Validator) MinLength(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.AddError(field, fmt.Sprintf("%s must be at least %d characters", field, min))
	}
	return v
}

// MaxLength validates maximum string length.
func (v *Validator) MaxLength(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.AddError(field, fmt.Sprintf("%s must not exceed %d characters", field, max))
	}
	return v
}

// Range validates value is within [min, max].
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.AddError(field, fmt.Sprintf("%s must be between %d and %d", field, min, max))
	}
	return v
}

// UUID validates that a string parses as a UUID.
func (v *Validator) UUID(field, value string) *Validator {
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, fmt.Sprintf("%s must be a valid UUID", field))
	}
	return v
}

// Enum validates that a value is one of the allowed values.
func (v *Validator) Enum(field, value string, allowed []string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.AddError(field, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
	return v
}

// BaseURL validates an absolute http(s) URL, the form provider base URLs
// must take.
func (v *Validator) BaseURL(field, value string) *Validator {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		v.AddError(field, fmt.Sprintf("%s must be an absolute http(s) URL", field))
	}
	return v
}

// JSON validates that a string is valid JSON.
func (v *Validator) JSON(field, value string) *Validator {
	var js json.RawMessage
	if err := json.Unmarshal([]byte(value), &js); err != nil {
		v.AddError(field, fmt.Sprintf("%s must be valid JSON", field))
	}
	return v
}

// Custom adds a check evaluated by the caller.
func (v *Validator) Custom(field string, valid bool, message string) *Validator {
	if !valid {
		v.AddError(field, message)
	}
	return v
}

// If runs fn only when condition holds, for conditional rule groups.
func (v *Validator) If(condition bool, fn func(v *Validator)) *Validator {
	if condition {
		fn(v)
	}
	return v
}

// Validate runs a one-shot validation block and returns its error, if any.
func Validate(fn func(v *Validator)) error {
	v := New()
	fn(v)
	if v.HasErrors() {
		return v.Error()
	}
	return nil
}
