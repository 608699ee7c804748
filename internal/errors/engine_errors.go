package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"
	ErrorCategoryData          ErrorCategory = "DATA"
	ErrorCategoryReport        ErrorCategory = "REPORT"
	ErrorCategoryState         ErrorCategory = "STATE"
)

// EngineError represents a categorized error with context
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// New creates a new categorized error
func New(category ErrorCategory, component, operation, message string) *EngineError {
	return &EngineError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with engine error context. Returns nil for a nil error.
func Wrap(err error, category ErrorCategory, component, operation string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsCategory reports whether err or any error it wraps is an EngineError of the category
func IsCategory(err error, category ErrorCategory) bool {
	var engineErr *EngineError
	if stderrors.As(err, &engineErr) {
		return engineErr.Category == category
	}
	return false
}

func NewConfigurationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryConfiguration, component, operation, message)
}

func NewValidationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryValidation, component, operation, message)
}

func NewDataError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryData, component, operation)
}

func NewReportError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryReport, component, operation)
}

func NewStateError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryState, component, operation)
}
