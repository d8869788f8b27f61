package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a reviewer with the same username).
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when an entity fails validation or violates
	// a database constraint such as a foreign key.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransient is returned when the store stayed busy (lock contention,
	// serialization failure, deadlock) through every retry attempt.
	ErrTransient = errors.New("store temporarily unavailable")

	// Entity-specific "not found" errors

	// ErrReviewerNotFound indicates that the requested reviewer does not exist.
	ErrReviewerNotFound = fmt.Errorf("%w: reviewer", ErrNotFound)

	// ErrTaskNotFound indicates that the requested task does not exist.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrAnnotationNotFound indicates that no annotation exists for the (task, reviewer) pair.
	ErrAnnotationNotFound = fmt.Errorf("%w: annotation", ErrNotFound)

	// ErrReviewerStateNotFound indicates that no state row has been written for the reviewer yet.
	ErrReviewerStateNotFound = fmt.Errorf("%w: reviewer state", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrUsernameExists indicates that a reviewer with the given username already exists.
	ErrUsernameExists = fmt.Errorf("%w: username", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "reviewer", "annotation")
	Operation string // The operation that failed (e.g., "upsert", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
