package errors

import (
	"errors"
	"fmt"
	"time"
)

// DocError is the structured error type returned across docrank packages.
type DocError struct {
	// Code is the unique error code (e.g., "ERR_201_STORE_UNAVAILABLE").
	Code string

	Message  string
	Category Category
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	Cause     error
	Retryable bool

	// Suggestion is an actionable hint shown by the CLI.
	Suggestion string
}

// Sentinels for errors.Is checks. DocError.Is compares codes only.
var (
	ErrStoreUnavailable = &DocError{Code: ErrCodeStoreUnavailable}
	ErrUnknownStrategy  = &DocError{Code: ErrCodeUnknownStrategy}
	ErrTimeout          = &DocError{Code: ErrCodeTimeout}
	ErrInvalidOptions   = &DocError{Code: ErrCodeInvalidOptions}
)

// Error implements the error interface.
func (e *DocError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DocError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a DocError carrying the same code.
func (e *DocError) Is(target error) bool {
	if t, ok := target.(*DocError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *DocError) WithDetail(key, value string) *DocError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *DocError) WithSuggestion(suggestion string) *DocError {
	e.Suggestion = suggestion
	return e
}

// New creates a DocError. Category, severity and the retryable flag are
// derived from the code.
func New(code string, message string, cause error) *DocError {
	return &DocError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DocError from an existing error, reusing its message.
func Wrap(code string, err error) *DocError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreUnavailable reports a failed document store operation.
func StoreUnavailable(op string, cause error) *DocError {
	msg := "document store unavailable"
	if op != "" {
		msg = fmt.Sprintf("document store unavailable during %s", op)
	}
	e := New(ErrCodeStoreUnavailable, msg, cause)
	if op != "" {
		e.WithDetail("operation", op)
	}
	return e
}

// UnknownStrategy reports a strategy name that is not registered.
func UnknownStrategy(name string) *DocError {
	return New(ErrCodeUnknownStrategy, fmt.Sprintf("unknown strategy %q", name), nil).
		WithDetail("strategy", name).
		WithSuggestion("Run 'docrank strategies' to list the available strategies")
}

// Timeout reports that a search exceeded its overall deadline.
func Timeout(limit time.Duration, cause error) *DocError {
	return New(ErrCodeTimeout, fmt.Sprintf("search exceeded deadline of %s", limit), cause).
		WithDetail("deadline", limit.String()).
		WithSuggestion("Request fewer strategies or raise search.timeout")
}

// InvalidOptions reports malformed input or option values.
func InvalidOptions(message string) *DocError {
	return New(ErrCodeInvalidOptions, message, nil)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *DocError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *DocError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err (or anything it wraps) is a retryable DocError.
func IsRetryable(err error) bool {
	var de *DocError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// GetCode extracts the error code from the first DocError in the chain.
func GetCode(err error) string {
	var de *DocError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from the first DocError in the chain.
func GetCategory(err error) Category {
	var de *DocError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}
