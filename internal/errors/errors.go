package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

/**
 * Custom error types for the OCR + summarization service
 *
 * Every failure that crosses a package boundary is an *Error carrying a
 * stable code. HTTP surfaces translate the code into a status with HTTPStatus.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Caller errors
	ErrorValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrorMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorNotFound         ErrorCode = "NOT_FOUND"

	// Operator errors
	ErrorConfigurationMissing ErrorCode = "CONFIGURATION_MISSING"

	// Processing errors
	ErrorRecognitionFailed ErrorCode = "RECOGNITION_FAILED"
	ErrorStorageFailed     ErrorCode = "STORAGE_FAILED"

	// Network errors
	ErrorUpstreamFailed ErrorCode = "UPSTREAM_FAILED"
)

// Error represents a structured service error
type Error struct {
	Code      ErrorCode
	Message   string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

// Error returns the human-readable message only; the code and cause are
// available through the struct and Unwrap.
func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case ErrorValidationFailed:
		return http.StatusBadRequest
	case ErrorMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// WithDetail attaches a key/value pair and returns the same error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToMap converts error to map for structured logging
func (e *Error) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// Factory functions for common errors

func NewValidationError(message string) *Error {
	return newError(ErrorValidationFailed, message, nil)
}

func NewMethodNotAllowedError() *Error {
	return newError(ErrorMethodNotAllowed, "Method Not Allowed", nil)
}

func NewNotFoundError(kind, id string) *Error {
	return newError(ErrorNotFound, fmt.Sprintf("%s not found: %s", kind, id), nil).
		WithDetail("id", id)
}

func NewConfigurationError(message string) *Error {
	return newError(ErrorConfigurationMissing, message, nil)
}

// NewRecognitionError wraps any failure inside the OCR engine lifecycle.
// Only the cause's text is surfaced in the message.
func NewRecognitionError(cause error) *Error {
	msg := "Unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return newError(ErrorRecognitionFailed, "Failed to process image with OCR: "+msg, cause)
}

func NewUpstreamError(message string, cause error) *Error {
	return newError(ErrorUpstreamFailed, message, cause)
}

func NewStorageFailedError(operation string, cause error) *Error {
	return newError(ErrorStorageFailed, fmt.Sprintf("History %s failed", operation), cause).
		WithDetail("operation", operation)
}

// IsCode reports whether err is an *Error with the given code
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, defaulting to 500 for
// errors that are not *Error.
func StatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
