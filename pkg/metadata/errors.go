package metadata

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// StoreError represents a domain error from store or drive operations.
//
// These are business logic errors (node not found, illegal move, ...) as
// opposed to infrastructure errors. Callers map Code to their own status
// codes. Message never contains filesystem paths; Path carries the node
// name or id the error relates to.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the node name or identifier related to the error (if any)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a StoreError.
type ErrorCode int

const (
	// ErrNotFound indicates the node doesn't exist or belongs to another owner.
	// Both cases share one code so existence never leaks across owners.
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a record with the same identity exists
	ErrAlreadyExists

	// ErrInvalidArgument indicates malformed input (nil ids, bad kinds)
	ErrInvalidArgument

	// ErrInvalidOperation indicates a structurally illegal request:
	// self-move, move into a descendant, move into trash, purge of an
	// active node.
	ErrInvalidOperation

	// ErrStorageFailure indicates content I/O failed. When it happens after
	// a metadata commit the record is orphaned and must be reconciled.
	ErrStorageFailure

	// ErrCorruptHierarchy indicates a parent chain that loops or exceeds
	// the configured maximum depth
	ErrCorruptHierarchy

	// ErrIOError indicates the metadata backend itself failed
	ErrIOError
)

func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not-found"
	case ErrAlreadyExists:
		return "already-exists"
	case ErrInvalidArgument:
		return "invalid-argument"
	case ErrInvalidOperation:
		return "invalid-operation"
	case ErrStorageFailure:
		return "storage-failure"
	case ErrCorruptHierarchy:
		return "corrupt-hierarchy"
	case ErrIOError:
		return "io-error"
	default:
		return "unknown"
	}
}

// NewNotFoundError builds the not-found error for a node of the given kind.
func NewNotFoundError(kind Kind, id uuid.UUID) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found", kind),
		Path:    id.String(),
	}
}

// NewInvalidOperationError builds an ErrInvalidOperation with a message.
func NewInvalidOperationError(message string, path string) *StoreError {
	return &StoreError{Code: ErrInvalidOperation, Message: message, Path: path}
}

// ErrorCodeOf extracts the code of a wrapped *StoreError.
func ErrorCodeOf(err error) (ErrorCode, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

// HasCode reports whether err wraps a *StoreError with the given code.
func HasCode(err error, code ErrorCode) bool {
	c, ok := ErrorCodeOf(err)
	return ok && c == code
}

// IsNotFoundError reports whether err is a not-found StoreError.
func IsNotFoundError(err error) bool {
	return HasCode(err, ErrNotFound)
}

// IsInvalidOperation reports whether err is an ErrInvalidOperation.
func IsInvalidOperation(err error) bool {
	return HasCode(err, ErrInvalidOperation)
}
