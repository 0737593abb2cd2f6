package validation

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DateLayout is the wire format of calendar dates.
const DateLayout = time.DateOnly

func requiredText(errs []FieldError, field, value string, maxLen int) []FieldError {
	value = strings.TrimSpace(value)
	if value == "" {
		return append(errs, FieldError{Field: field, Message: field + " is required"})
	}
	return maxText(errs, field, value, maxLen)
}

func maxText(errs []FieldError, field, value string, maxLen int) []FieldError {
	if len(value) > maxLen {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, maxLen)})
	}
	return errs
}

func oneOf(errs []FieldError, field, value string, allowed []string) []FieldError {
	if !slices.Contains(allowed, value) {
		return append(errs, FieldError{Field: field, Message: fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", "))})
	}
	return errs
}

func optionalUUID(errs []FieldError, field string, value *string) []FieldError {
	if value == nil || *value == "" {
		return errs
	}
	if _, err := uuid.Parse(*value); err != nil {
		return append(errs, FieldError{Field: field, Message: field + " must be a valid UUID"})
	}
	return errs
}

func requiredDate(errs []FieldError, field, value string) ([]FieldError, time.Time, bool) {
	if value == "" {
		return append(errs, FieldError{Field: field, Message: field + " is required"}), time.Time{}, false
	}
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return append(errs, FieldError{Field: field, Message: field + " must be a date (YYYY-MM-DD)"}), time.Time{}, false
	}
	return errs, d, true
}

func optionalDate(errs []FieldError, field string, value *string) []FieldError {
	if value == nil || *value == "" {
		return errs
	}
	if _, err := time.Parse(DateLayout, *value); err != nil {
		return append(errs, FieldError{Field: field, Message: field + " must be a date (YYYY-MM-DD)"})
	}
	return errs
}

func validEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}
