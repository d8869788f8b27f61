package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// StateMutation modifies a reviewer state in place.
// Returning an error aborts the update and leaves the stored state untouched.
type StateMutation func(state *domain.ReviewerState) error

// ReviewerStateStore persists the single progress row of each reviewer.
type ReviewerStateStore interface {
	// Get returns the stored state.
	// Returns ErrReviewerStateNotFound if no state has been written yet.
	// Malformed sub-records are reset to their empty value rather than failing the read.
	Get(ctx context.Context, reviewerID uuid.UUID) (*domain.ReviewerState, error)

	// Update applies fn to the reviewer's state as one read-modify-write.
	// The row is created with defaults on first use. Concurrent updates of the
	// same reviewer are serialized. The state after fn is returned.
	Update(ctx context.Context, reviewerID uuid.UUID, fn StateMutation) (*domain.ReviewerState, error)
}
