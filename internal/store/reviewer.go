package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// ReviewerStore defines the interface for reviewer persistence.
// Reviewers are never updated or deleted once created.
type ReviewerStore interface {
	// Create saves a new reviewer.
	// Returns ErrUsernameExists if the username is already taken.
	// Returns validation errors from the domain Reviewer if data is invalid.
	Create(ctx context.Context, reviewer *domain.Reviewer) error

	// GetByID retrieves a reviewer by ID.
	// Returns ErrReviewerNotFound if the reviewer does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error)

	// GetByUsername retrieves a reviewer by normalized username.
	// Returns ErrReviewerNotFound if the reviewer does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.Reviewer, error)
}
