package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateForm checks a new Form for constraint violations.
// It returns a *ValidationError if any rules fail, or nil if the form is valid.
func ValidateForm(f *Form) error {
	var ve ValidationError

	// Title: required and at most 200 characters.
	title := strings.TrimSpace(f.Title)
	if title == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: "is required"})
	} else if len([]rune(title)) > 200 {
		ve.Errors = append(ve.Errors, FieldError{Field: "title", Message: "must be 200 characters or fewer"})
	}

	if f.OwnerID == "" {
		ve.Errors = append(ve.Errors, FieldError{Field: "owner_id", Message: "is required"})
	}

	// The group id becomes part of a subscription key.
	if err := GroupFor(f.GroupID).Validate(); err != nil {
		ve.Errors = append(ve.Errors, FieldError{Field: "group_id", Message: err.Error()})
	}

	if !f.State.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{
			Field:   "state",
			Message: fmt.Sprintf("invalid value %q", f.State),
		})
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}
