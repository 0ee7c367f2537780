package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents different types of errors the risk engine can report
type ErrorCategory string

const (
	// A configuration was rejected before being applied
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	// Caller supplied input that cannot be assessed (e.g. non-positive portfolio value)
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	// A check-only lookup found no entry for the key
	ErrorCategoryNotFound ErrorCategory = "NOT_FOUND"
	// Internal state was found inconsistent
	ErrorCategoryIntegrity ErrorCategory = "INTEGRITY"
)

// ErrNotFound is matched by every NOT_FOUND RiskError through errors.Is
var ErrNotFound = stderrors.New("not found")

// RiskError represents a categorized error with context
type RiskError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *RiskError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *RiskError) Unwrap() error {
	return e.Underlying
}

// Is lets errors.Is(err, ErrNotFound) succeed for not-found errors
func (e *RiskError) Is(target error) bool {
	return target == ErrNotFound && e.Category == ErrorCategoryNotFound
}

// NewRiskError creates a new categorized risk error
func NewRiskError(category ErrorCategory, component, operation, message string) *RiskError {
	return &RiskError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with risk error context
func WrapError(err error, category ErrorCategory, component, operation string) *RiskError {
	if err == nil {
		return nil
	}

	return &RiskError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *RiskError) WithContext(key string, value interface{}) *RiskError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors
func NewConfigurationError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryConfiguration, component, operation, message)
}

func NewValidationError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryValidation, component, operation, message)
}

func NewNotFoundError(component, operation, key string) *RiskError {
	return NewRiskError(ErrorCategoryNotFound, component, operation, fmt.Sprintf("no entry for %q", key)).
		WithContext("key", key)
}

func NewIntegrityError(component, operation, message string) *RiskError {
	return NewRiskError(ErrorCategoryIntegrity, component, operation, message)
}

// CategoryOf returns the category of err, or "" when err is not a RiskError
func CategoryOf(err error) ErrorCategory {
	var riskErr *RiskError
	if stderrors.As(err, &riskErr) {
		return riskErr.Category
	}
	return ""
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

// IsConfiguration reports whether err is a rejected configuration
func IsConfiguration(err error) bool {
	return CategoryOf(err) == ErrorCategoryConfiguration
}

// IsValidation reports whether err is rejected input
func IsValidation(err error) bool {
	return CategoryOf(err) == ErrorCategoryValidation
}

// Join combines configuration problems into a single error, nil when there are none
func Join(component, operation string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	msg := problems[0]
	for _, p := range problems[1:] {
		msg += "; " + p
	}
	return NewConfigurationError(component, operation, msg).WithContext("problems", len(problems))
}
