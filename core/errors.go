package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Operation dispatch errors
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// Transport errors
	ErrConnectivity  = errors.New("no response from server")
	ErrRequestFailed = errors.New("request failed")

	// Translation errors
	ErrBadRecord = errors.New("malformed backend record")

	// Entity errors
	ErrProductNotFound = errors.New("product not found")
	ErrNotInCart       = errors.New("product not in cart")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Storage errors
	ErrStorageUnavailable = errors.New("storage unavailable")

	// State errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotInitialized = errors.New("not initialized")

	// Auth errors
	ErrNotAuthenticated = errors.New("not authenticated")

	// Resilience errors
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ClientError provides structured error information with context.
// It implements the error interface and supports error wrapping.
type ClientError struct {
	Op      string // Operation that failed (e.g., "catalog.Search")
	Kind    string // Error kind (e.g., "transport", "translate", "storage")
	Key     string // Optional identity of the entity or cache key involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *ClientError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.Key != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.Key, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *ClientError) Unwrap() error {
	return e.Err
}

// NewClientError creates a new ClientError
func NewClientError(op, kind string, err error) *ClientError {
	return &ClientError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsConnectivity checks if an error means no response was received at
// all, as opposed to the backend answering with a failure status.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrConnectivity)
}

// IsRetryable checks if an error is retryable.
// Retryable errors are typically transient network or availability issues.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConnectivity) ||
		errors.Is(err, ErrStorageUnavailable)
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrNotInCart)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}
