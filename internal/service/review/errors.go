package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/store"
)

// Common error types for the review service
var (
	// ErrReviewerNotFound indicates that no reviewer is registered under the username.
	ErrReviewerNotFound = errors.New("reviewer not found")

	// ErrNoTestInProgress indicates a submission while no batch is in progress.
	ErrNoTestInProgress = errors.New("no test in progress")

	// ErrInvalidTaskID indicates a task id that can never exist.
	ErrInvalidTaskID = errors.New("invalid task id")
)

// ServiceError wraps errors from the review service with additional context.
// This allows consumers to differentiate between different types of service errors
// using errors.As instead of string matching.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "next_task", "submit_annotation")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewNextTaskError returns a new ServiceError for the next_task operation.
func NewNextTaskError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "next_task", Message: message, Err: err}
}

// NewSubmitAnnotationError returns a new ServiceError for the submit_annotation operation.
func NewSubmitAnnotationError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "submit_annotation", Message: message, Err: err}
}

// NewRegisterError returns a new ServiceError for the register operation.
func NewRegisterError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "register", Message: message, Err: err}
}

// NewTrackPlayedError returns a new ServiceError for the track_played operation.
func NewTrackPlayedError(message string, err error) *ServiceError {
	return &ServiceError{Operation: "track_played", Message: message, Err: err}
}

// ReferentialIntegrityError reports an annotation whose task or reviewer row
// does not exist. It matches store.ErrInvalidEntity under errors.Is.
type ReferentialIntegrityError struct {
	TaskID         int64
	ReviewerID     uuid.UUID
	TaskExists     bool
	ReviewerExists bool
	// Err is the store error that exposed the violation, if any.
	Err error
}

// Error implements the error interface.
func (e *ReferentialIntegrityError) Error() string {
	var missing []string
	if !e.TaskExists {
		missing = append(missing, fmt.Sprintf("task %d (table tasks)", e.TaskID))
	}
	if !e.ReviewerExists {
		missing = append(missing, fmt.Sprintf("reviewer %s (table reviewers)", e.ReviewerID))
	}
	if len(missing) == 0 {
		return fmt.Sprintf("annotation of task %d by reviewer %s violates a foreign key", e.TaskID, e.ReviewerID)
	}
	return "annotation references missing " + strings.Join(missing, " and ")
}

// Unwrap returns store.ErrInvalidEntity together with the cause.
func (e *ReferentialIntegrityError) Unwrap() []error {
	if e.Err == nil {
		return []error{store.ErrInvalidEntity}
	}
	return []error{store.ErrInvalidEntity, e.Err}
}
