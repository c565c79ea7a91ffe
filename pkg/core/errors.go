package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrNotFound indicates that a requested record was not found
	// (for example, validating an entity that is not in quarantine).
	ErrNotFound = errors.New("record not found")

	// ErrBackendUnavailable indicates that the embedding backend was
	// unreachable or timed out. The retrieval router treats this as a
	// signal to degrade to file search, never as a query failure.
	ErrBackendUnavailable = errors.New("embedding backend unavailable")

	// ErrMalformedRecord indicates that a tier or ledger file did not
	// parse into its expected shape. Batch operations skip such files
	// with a warning instead of aborting.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrLedgerPersist indicates that the tracking ledger could not be
	// persisted. This is fatal to the current operation: losing lifecycle
	// state risks double-promotion or lost quarantine entries.
	ErrLedgerPersist = errors.New("ledger persistence failed")
)

// BrainError wraps errors with operation context.
//
// It records which lifecycle operation failed, making error messages
// more informative for debugging.
//
// Example:
//
//	err := &BrainError{
//	    Op:  "Validate",
//	    Err: ErrNotFound,
//	}
//	// Error() returns: "memorybrain: Validate: record not found"
type BrainError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "memorybrain: <Op>: <Err>"
func (e *BrainError) Error() string {
	return fmt.Sprintf("memorybrain: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with BrainError.
func (e *BrainError) Unwrap() error {
	return e.Err
}

// NewBrainError creates a new BrainError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewBrainError("Ingest", err)
//	}
func NewBrainError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BrainError{
		Op:  op,
		Err: err,
	}
}
