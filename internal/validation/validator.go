// ytarchive
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package validation wraps go-playground/validator v10 behind a
// thread-safe singleton for internal/config: the validate tags on the
// Config tree (sources, components, filters, organization, backup) are
// checked before the archiver starts, and failures are translated into
// the messages an operator sees when a run refuses to start on a bad
// config.toml.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is a single failed field check: which field, which tag, and
// the operator-facing message.
type FieldError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the struct field name that failed validation.
func (e *FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the tag's parameter (e.g. "255" for "lte=255").
func (e *FieldError) Param() string { return e.param }

// Value returns the value that failed validation.
func (e *FieldError) Value() interface{} { return e.value }

// Error returns the operator-facing message.
func (e *FieldError) Error() string { return e.message }

// FieldErrors aggregates every failed check from one struct validation
// pass, so a bad config.toml reports all of its problems at once rather
// than one per run.
type FieldErrors struct {
	errors []FieldError
}

// Errors returns the individual field failures.
func (ve *FieldErrors) Errors() []FieldError { return ve.errors }

// Error joins the field messages with semicolons.
func (ve *FieldErrors) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the singleton validator, initialized on first
// use. validator caches struct metadata internally, so one instance per
// process is the right shape; the function is safe for concurrent
// callers.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates a struct against its validate tags. Returns
// nil when everything passes, or a *FieldErrors carrying every failure.
func ValidateStruct(s interface{}) *FieldErrors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		// validator.Struct only returns a non-ValidationErrors error for
		// an invalid argument (a non-struct); surface it rather than
		// swallow it.
		return &FieldErrors{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = FieldError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			value:   fieldErr.Value(),
			message: translateError(fieldErr),
		}
	}
	return &FieldErrors{errors: fieldErrors}
}

// translateError renders a validator.FieldError as an operator-facing
// message. Only the tags the Config tree actually uses get bespoke
// wording; anything else falls through to a generic form.
func translateError(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
