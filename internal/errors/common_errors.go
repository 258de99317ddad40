package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeLengthMismatch ErrorType = "LENGTH_MISMATCH"
	ErrTypeKeyNotFound    ErrorType = "KEY_NOT_FOUND"
	ErrTypeInvalidInput   ErrorType = "INVALID_INPUT"
	ErrTypeTaskFailure    ErrorType = "TASK_FAILURE"
	ErrTypeNetwork        ErrorType = "NETWORK"
	ErrTypeParsing        ErrorType = "PARSING"
	ErrTypeStorage        ErrorType = "STORAGE"
	ErrTypeConfig         ErrorType = "CONFIG"
)

// Sentinels for errors.Is. Any AppError of the same type matches.
var (
	ErrLengthMismatch = &AppError{Type: ErrTypeLengthMismatch, Message: "length mismatch"}
	ErrKeyNotFound    = &AppError{Type: ErrTypeKeyNotFound, Message: "key not found"}
	ErrInvalidInput   = &AppError{Type: ErrTypeInvalidInput, Message: "invalid input"}
	ErrTaskFailure    = &AppError{Type: ErrTypeTaskFailure, Message: "task failed"}
	ErrNetwork        = &AppError{Type: ErrTypeNetwork, Message: "network error"}
	ErrParsing        = &AppError{Type: ErrTypeParsing, Message: "parsing error"}
	ErrStorage        = &AppError{Type: ErrTypeStorage, Message: "storage error"}
	ErrConfig         = &AppError{Type: ErrTypeConfig, Message: "configuration error"}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// NewLengthMismatchError reports a column whose length differs from the
// container's row count.
func NewLengthMismatchError(column string, want, got int) *AppError {
	return NewAppError(ErrTypeLengthMismatch,
		fmt.Sprintf("column %q has %d values, want %d", column, got, want), nil).
		WithContext("column", column).
		WithContext("want", want).
		WithContext("got", got)
}

// NewKeyNotFoundError creates a not found error for a column or category key
func NewKeyNotFoundError(kind, key string) *AppError {
	return NewAppError(ErrTypeKeyNotFound, fmt.Sprintf("%s %q not found", kind, key), nil).
		WithContext(kind, key)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrTypeInvalidInput, message, nil)
}

// NewTaskFailureError wraps the failure of the per-key task for key.
func NewTaskFailureError(key string, cause error) *AppError {
	return NewAppError(ErrTypeTaskFailure, fmt.Sprintf("transform failed for key %q", key), cause).
		WithContext("key", key)
}

// NewNetworkError creates a network-related error
func NewNetworkError(message string, cause error) *AppError {
	return NewAppError(ErrTypeNetwork, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
