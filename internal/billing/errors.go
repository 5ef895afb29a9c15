package billing

import (
	"errors"
	"fmt"
)

// ErrorCode classifies business errors for API responses and logging
type ErrorCode string

const (
	// Validation errors: the caller corrects the input and resubmits
	CodeValidation ErrorCode = "VALIDATION_ERROR"

	// Business rule violations: the operation is rejected wholesale
	CodeOwnershipExceeded  ErrorCode = "OWNERSHIP_EXCEEDED"
	CodeInsufficientProfit ErrorCode = "INSUFFICIENT_PROFIT"
	CodeNoActivePartners   ErrorCode = "NO_ACTIVE_PARTNERS"
	CodeOwnershipInvalid   ErrorCode = "OWNERSHIP_INVALID"
	CodeInvalidState       ErrorCode = "INVALID_STATE"
	CodeDuplicatePeriod    ErrorCode = "DUPLICATE_PERIOD"
	CodeInvalidPeriod      ErrorCode = "INVALID_PERIOD"

	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeCalculationTimeout ErrorCode = "CALCULATION_TIMEOUT"
	CodePersistence        ErrorCode = "PERSISTENCE_ERROR"
)

// BusinessError is the error type shared by all engine components. The
// message is user-visible and must be specific enough to act on.
type BusinessError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a field/range violation error
func NewValidationError(format string, args ...interface{}) *BusinessError {
	return &BusinessError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NewBusinessRuleError creates a business rule violation with the given code
func NewBusinessRuleError(code ErrorCode, format string, args ...interface{}) *BusinessError {
	return &BusinessError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates an unknown-entity error
func NewNotFoundError(entity, id string) *BusinessError {
	return &BusinessError{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// NewCalculationTimeoutError signals that a bulk report exceeded its deadline.
// The caller should retry with a narrower scope.
func NewCalculationTimeoutError(operation string) *BusinessError {
	return &BusinessError{
		Code:    CodeCalculationTimeout,
		Message: fmt.Sprintf("%s exceeded the configured timeout; retry with a narrower scope", operation),
	}
}

// NewPersistenceError wraps an opaque storage failure
func NewPersistenceError(operation string, err error) *BusinessError {
	return &BusinessError{
		Code:    CodePersistence,
		Message: fmt.Sprintf("storage failure during %s", operation),
		Err:     err,
	}
}

// CodeOf extracts the error code from err, or CodePersistence for unknown errors
func CodeOf(err error) ErrorCode {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return CodePersistence
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
