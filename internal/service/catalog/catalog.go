// Package catalog answers which batches and tasks a reviewer may work on.
// It combines the persisted task catalog with artifact existence: a task whose
// recording is missing is never offered and never counted.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/store"
)

// ErrArtifactCheck wraps failures to determine whether an artifact exists.
var ErrArtifactCheck = errors.New("artifact existence check failed")

// ArtifactChecker reports whether a task's recording exists.
type ArtifactChecker interface {
	Exists(ctx context.Context, filename string) (bool, error)
}

// Catalog is the Task Catalog used by the review service.
type Catalog struct {
	tasks     store.TaskStore
	artifacts ArtifactChecker
	logger    *slog.Logger
}

// New creates a Catalog. It returns an error if any dependency is nil.
func New(tasks store.TaskStore, artifacts ArtifactChecker, logger *slog.Logger) (*Catalog, error) {
	if tasks == nil {
		return nil, errors.New("tasks cannot be nil")
	}
	if artifacts == nil {
		return nil, errors.New("artifacts cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		tasks:     tasks,
		artifacts: artifacts,
		logger:    logger.With("component", "task_catalog"),
	}, nil
}

// ListEligibleBatches returns batches with at least one task the reviewer has
// not annotated whose artifact exists, ordered by review count, subject and
// project. A batch's review count is the number of such tasks that another
// reviewer of the target test type has judged.
func (c *Catalog) ListEligibleBatches(ctx context.Context, reviewerID uuid.UUID) ([]domain.BatchSummary, error) {
	batches, err := c.tasks.ListEligibleBatches(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible batches: %w", err)
	}

	eligible := make([]domain.BatchSummary, 0, len(batches))
	for _, b := range batches {
		tasks, err := c.ListTasksInBatch(ctx, reviewerID, b.Key())
		if err != nil {
			return nil, err
		}
		if len(tasks) == 0 {
			c.logger.DebugContext(ctx, "skipping batch without artifacts",
				slog.String("batch", b.Key().String()))
			continue
		}
		b.ReviewCount = 0
		for _, t := range tasks {
			if t.ReviewCount > 0 {
				b.ReviewCount++
			}
		}
		eligible = append(eligible, b)
	}
	slices.SortStableFunc(eligible, func(a, b domain.BatchSummary) int {
		return cmp.Or(
			cmp.Compare(a.ReviewCount, b.ReviewCount),
			cmp.Compare(a.Subject, b.Subject),
			cmp.Compare(a.Project, b.Project),
		)
	})
	return eligible, nil
}

// ListTasksInBatch returns the batch's tasks the reviewer has not annotated
// and whose artifact exists, in list/level order.
func (c *Catalog) ListTasksInBatch(
	ctx context.Context,
	reviewerID uuid.UUID,
	key domain.BatchKey,
) ([]domain.Task, error) {
	tasks, err := c.tasks.ListUnreviewedTasks(ctx, reviewerID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks of batch %s: %w", key, err)
	}
	return c.withArtifacts(ctx, tasks)
}

// CountTotalTasks counts the batch's tasks whose artifact exists.
func (c *Catalog) CountTotalTasks(ctx context.Context, key domain.BatchKey) (int, error) {
	tasks, err := c.tasks.ListBatchTasks(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to list tasks of batch %s: %w", key, err)
	}
	present, err := c.withArtifacts(ctx, tasks)
	if err != nil {
		return 0, err
	}
	return len(present), nil
}

// CountTasksReviewedBy counts the batch's tasks the reviewer has annotated
// whose artifact exists.
func (c *Catalog) CountTasksReviewedBy(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) (int, error) {
	tasks, err := c.tasks.ListReviewedTasks(ctx, reviewerID, key)
	if err != nil {
		return 0, fmt.Errorf("failed to list reviewed tasks of batch %s: %w", key, err)
	}
	present, err := c.withArtifacts(ctx, tasks)
	if err != nil {
		return 0, err
	}
	return len(present), nil
}

// GetTask returns a task regardless of artifact existence.
func (c *Catalog) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := c.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	return task, nil
}

func (c *Catalog) withArtifacts(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	present := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		ok, err := c.artifacts.Exists(ctx, t.Filename)
		if err != nil {
			return nil, fmt.Errorf("%w: task %d: %w", ErrArtifactCheck, t.ID, err)
		}
		if !ok {
			c.logger.DebugContext(ctx, "skipping task with missing artifact",
				slog.Int64("task_id", t.ID))
			continue
		}
		present = append(present, t)
	}
	return present, nil
}
