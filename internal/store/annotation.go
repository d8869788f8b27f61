package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// AnnotationStore defines the interface for annotation persistence.
type AnnotationStore interface {
	// Upsert inserts the annotation, or overwrites the judgments of an existing
	// annotation for the same (task, reviewer) pair.
	// Returns ErrInvalidEntity if the task or reviewer row does not exist.
	Upsert(ctx context.Context, annotation *domain.Annotation) error

	// Get retrieves the reviewer's annotation of a task.
	// Returns ErrAnnotationNotFound if there is none.
	Get(ctx context.Context, taskID int64, reviewerID uuid.UUID) (*domain.Annotation, error)

	// CountByReviewer returns the number of annotations the reviewer has made.
	CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error)
}
