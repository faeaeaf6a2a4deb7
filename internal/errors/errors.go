package errors

import (
	"errors"
	"fmt"
)

// QuarryError is the structured error type for Quarry.
// It provides rich context for error handling, logging, and user presentation.
type QuarryError struct {
	// Code is the unique error code (e.g., "ERR_301_STORE_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Store, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *QuarryError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *QuarryError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with QuarryError.
func (e *QuarryError) Is(target error) bool {
	if t, ok := target.(*QuarryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *QuarryError) WithDetail(key, value string) *QuarryError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *QuarryError) WithSuggestion(suggestion string) *QuarryError {
	e.Suggestion = suggestion
	return e
}

// New creates a new QuarryError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *QuarryError {
	return &QuarryError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Newf creates a new QuarryError with a formatted message.
func Newf(code string, format string, args ...any) *QuarryError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a QuarryError from an existing error.
// The error's message becomes the QuarryError message.
func Wrap(code string, err error) *QuarryError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StoreUnavailable creates a store-access error.
func StoreUnavailable(message string, cause error) *QuarryError {
	return New(ErrCodeStoreUnavailable, message, cause).
		WithSuggestion("run 'quarry index' to create the index, or check file permissions")
}

// IndexBusy creates an error for a rejected concurrent indexing request.
func IndexBusy(message string) *QuarryError {
	return New(ErrCodeIndexBusy, message, nil).
		WithSuggestion("wait for the running indexing pass to finish and retry")
}

// InvalidQuery creates a query-syntax error.
func InvalidQuery(message string, cause error) *QuarryError {
	return New(ErrCodeInvalidQuery, message, cause)
}

// BothSourcesFailed creates the fatal dual-source search error.
func BothSourcesFailed(ftsErr, patternErr error) *QuarryError {
	e := New(ErrCodeBothSourcesFailed, "both search sources failed", ftsErr)
	if ftsErr != nil {
		e.WithDetail("fts_error", ftsErr.Error())
	}
	if patternErr != nil {
		e.WithDetail("pattern_error", patternErr.Error())
	}
	return e
}

// CodeOf returns the error code of err, or empty string if err is not a QuarryError.
func CodeOf(err error) string {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a QuarryError with the Retryable flag set.
func IsRetryable(err error) bool {
	var qe *QuarryError
	if errors.As(err, &qe) {
		return qe.Retryable
	}
	return false
}
