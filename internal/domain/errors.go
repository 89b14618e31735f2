package domain

import (
	"errors"
	"fmt"
)

// Application errors
var (
	// ErrMissingField required input field absent
	ErrMissingField = errors.New("required field missing")

	// ErrValidationFailed card or bank account validation failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidState operation not legal from the current lifecycle state
	ErrInvalidState = errors.New("invalid state for operation")

	// ErrInvalidDateRange start date is after end date or unparseable
	ErrInvalidDateRange = errors.New("invalid date range")

	// ErrInvalidPaymentMethod method does not belong to the customer or is inactive
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrAgreementCompleted terminal signal: the agreement ran past its
	// end date. Not a failure, there is simply nothing left to bill.
	ErrAgreementCompleted = errors.New("agreement completed")

	// ErrCustomerInactive customer exists but may not be billed
	ErrCustomerInactive = errors.New("customer is not active")

	// ErrUnsupportedFrequency frequency other than the defined cycles
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
)

// MissingFieldError reports which required field was absent
type MissingFieldError struct {
	Field string
}

// Error implements the error interface
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Is matches against ErrMissingField
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// NewMissingFieldError creates a new missing-field error
func NewMissingFieldError(field string) *MissingFieldError {
	return &MissingFieldError{Field: field}
}

// ValidationError represents a single field validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents a set of validation failures
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}

	if len(e) == 1 {
		return fmt.Sprintf("validation failed: %s - %s", e[0].Field, e[0].Message)
	}

	return fmt.Sprintf("validation failed: %d errors", len(e))
}

// Is matches against ErrValidationFailed
func (e ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

// Add appends a validation failure
func (e *ValidationErrors) Add(field, message string) {
	*e = append(*e, ValidationError{Field: field, Message: message})
}

// HasErrors reports whether any failure was recorded
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
