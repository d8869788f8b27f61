package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// TaskStore defines the read-only interface to the task catalog.
// Tasks, subjects and trials are loaded by an external ingest and never
// modified by the review engine.
type TaskStore interface {
	// ListEligibleBatches returns every batch that still has at least one task
	// the reviewer has not annotated, together with the batch's fairness count.
	// Results are ordered by review count, then subject, then project.
	ListEligibleBatches(ctx context.Context, reviewerID uuid.UUID) ([]domain.BatchSummary, error)

	// ListUnreviewedTasks returns the tasks of a batch the reviewer has not
	// annotated, ordered by list number, level number and ID.
	// Artifact existence is not checked here.
	ListUnreviewedTasks(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) ([]domain.Task, error)

	// ListBatchTasks returns every task of a batch in catalog order.
	ListBatchTasks(ctx context.Context, key domain.BatchKey) ([]domain.Task, error)

	// ListReviewedTasks returns the tasks of a batch the reviewer has annotated.
	ListReviewedTasks(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) ([]domain.Task, error)

	// GetTask retrieves a single task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
}
