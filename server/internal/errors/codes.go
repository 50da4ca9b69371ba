package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for query and index operations.
type ErrorCode string

const (
	// ErrCodeInvalidQuery indicates a malformed query spec. Never retried;
	// surfaced to the caller as a client error.
	ErrCodeInvalidQuery ErrorCode = "INVALID_QUERY"
	// ErrCodeStoreUnavailable indicates a document store read/connectivity
	// failure. Transient; the caller may retry the whole request.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeTokenizerUnavailable indicates an unknown or unloadable
	// tokenizer. Rebuild-only; the prior index remains usable.
	ErrCodeTokenizerUnavailable ErrorCode = "TOKENIZER_UNAVAILABLE"
	// ErrCodeIndexNotReady indicates the full-text index cannot serve a
	// query. Full-text search degrades to substring matching instead of
	// failing.
	ErrCodeIndexNotReady ErrorCode = "INDEX_NOT_READY"
	// ErrCodeInvalidationFailed indicates a cache invalidation failure
	// during a mutation. The mutation itself must fail.
	ErrCodeInvalidationFailed ErrorCode = "INVALIDATION_FAILED"
	// ErrCodeNotFound indicates the referenced object does not exist. The
	// request itself was well-formed.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// QueryError represents a structured error for query engine operations.
type QueryError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// GetCode returns the error code.
func (e *QueryError) GetCode() ErrorCode {
	return e.Code
}

// CodeOf extracts the ErrorCode from an error chain. Returns an empty code
// if the chain contains no QueryError.
func CodeOf(err error) ErrorCode {
	var qe *QueryError
	if stderrors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Convenience constructors for common error types.

// InvalidQuery creates an invalid query error.
func InvalidQuery(msg string) *QueryError {
	return &QueryError{Code: ErrCodeInvalidQuery, Message: msg}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *QueryError {
	return &QueryError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// TokenizerUnavailable creates a tokenizer unavailable error.
func TokenizerUnavailable(name string) *QueryError {
	return &QueryError{
		Code:    ErrCodeTokenizerUnavailable,
		Message: fmt.Sprintf("tokenizer not registered: %s", name),
	}
}

// IndexNotReady creates an index not ready error.
func IndexNotReady(msg string) *QueryError {
	return &QueryError{Code: ErrCodeIndexNotReady, Message: msg}
}

// InvalidationFailed creates an invalidation failed error.
func InvalidationFailed(msg string, cause error) *QueryError {
	return &QueryError{Code: ErrCodeInvalidationFailed, Message: msg, Cause: cause}
}

// NotFound creates a not found error.
func NotFound(msg string) *QueryError {
	return &QueryError{Code: ErrCodeNotFound, Message: msg}
}
