package common

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldError is one rule a field failed.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

// Rule checks one value; it returns "" when the value passes, otherwise the
// reason it failed.
type Rule func(value any) string

// Validator collects field failures so a caller can report all of them at once.
type Validator struct {
	failures []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs rules against value in order and records every failure.
func (v *Validator) Field(name string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.failures = append(v.failures, FieldError{Field: name, Value: value, Message: msg})
		}
	}
	return v
}

func (v *Validator) Failures() []FieldError { return v.failures }

// Error returns the collected failures as an invalid-input AppError, or nil.
func (v *Validator) Error() error {
	if len(v.failures) == 0 {
		return nil
	}
	parts := make([]string, len(v.failures))
	for i, f := range v.failures {
		parts[i] = f.Error()
	}
	return &AppError{
		Code:    CodeInvalidInput,
		Message: strings.Join(parts, "; "),
		Kind:    ErrInvalidInput,
	}
}

// Required rejects nil, blank strings and empty byte slices.
func Required(value any) string {
	switch v := value.(type) {
	case nil:
		return "is required"
	case string:
		if strings.TrimSpace(v) == "" {
			return "is required"
		}
	case []byte:
		if len(v) == 0 {
			return "is required"
		}
	}
	return ""
}

// MaxLength limits strings to max runes.
func MaxLength(max int) Rule {
	return func(value any) string {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > max {
			return fmt.Sprintf("must be at most %d characters", max)
		}
		return ""
	}
}

// OneOf accepts only the listed strings. Empty strings are left to Required.
func OneOf(allowed ...string) Rule {
	return func(value any) string {
		s, ok := value.(string)
		if !ok || s == "" || slices.Contains(allowed, s) {
			return ""
		}
		return "must be one of " + strings.Join(allowed, ", ")
	}
}

// UUID accepts canonical UUID strings.
func UUID(value any) string {
	s, ok := value.(string)
	if !ok {
		return "must be a string"
	}
	if _, err := uuid.Parse(s); err != nil {
		return "must be a valid UUID"
	}
	return ""
}
