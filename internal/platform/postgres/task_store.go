package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/store"
)

// taskSelect is shared by every task listing. $1 is always the target test
// type used for the per-task review count.
const taskSelect = `
	SELECT t.id, t.subject_id, s.username, tr.project, t.filename,
	       COALESCE(tr.answer, ''), tr.list_number, tr.level_number,
	       COUNT(a.task_id) FILTER (WHERE r.test_type = $1) AS review_count
	FROM tasks t
	JOIN trials tr ON tr.id = t.trial_id
	JOIN subjects s ON s.id = t.subject_id
	LEFT JOIN annotations a ON a.task_id = t.id
	LEFT JOIN reviewers r ON r.id = a.reviewer_id`

const taskGroupBy = `
	GROUP BY t.id, s.username, tr.project, tr.answer, tr.list_number, tr.level_number`

const taskOrderBy = `
	ORDER BY tr.list_number ASC, tr.level_number ASC, t.id ASC`

// PostgresTaskStore implements the store.TaskStore interface over the
// subjects, trials, tasks and annotations tables.
type PostgresTaskStore struct {
	db             store.DBTX
	targetTestType string
}

// NewPostgresTaskStore creates a task store. Only subjects of targetTestType
// are offered for review, and only annotations by reviewers of that type
// contribute to review counts.
func NewPostgresTaskStore(db store.DBTX, targetTestType string) *PostgresTaskStore {
	return &PostgresTaskStore{db: db, targetTestType: targetTestType}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// ListEligibleBatches implements store.TaskStore.ListEligibleBatches
func (s *PostgresTaskStore) ListEligibleBatches(
	ctx context.Context,
	reviewerID uuid.UUID,
) ([]domain.BatchSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.subject_id, tr.project,
		       COUNT(DISTINCT a.task_id) FILTER (WHERE r.test_type = $1) AS review_count
		FROM tasks t
		JOIN trials tr ON tr.id = t.trial_id
		JOIN subjects s ON s.id = t.subject_id
		LEFT JOIN annotations a ON a.task_id = t.id
		LEFT JOIN reviewers r ON r.id = a.reviewer_id
		WHERE s.test_type = $1
		  AND NOT EXISTS (
		      SELECT 1 FROM annotations mine
		      WHERE mine.task_id = t.id AND mine.reviewer_id = $2)
		GROUP BY t.subject_id, tr.project
		ORDER BY review_count ASC, t.subject_id ASC, tr.project ASC`,
		s.targetTestType, reviewerID,
	)
	if err != nil {
		return nil, store.NewStoreError("task", "list_batches", "failed to query eligible batches", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	batches := []domain.BatchSummary{}
	for rows.Next() {
		var b domain.BatchSummary
		if err := rows.Scan(&b.Subject, &b.Project, &b.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list_batches", "failed to iterate batches", MapError(err))
	}

	return batches, nil
}

// ListUnreviewedTasks implements store.TaskStore.ListUnreviewedTasks
func (s *PostgresTaskStore) ListUnreviewedTasks(
	ctx context.Context,
	reviewerID uuid.UUID,
	key domain.BatchKey,
) ([]domain.Task, error) {
	return s.listTasks(ctx, "list_unreviewed", `
		WHERE t.subject_id = $2 AND tr.project = $3
		  AND NOT EXISTS (
		      SELECT 1 FROM annotations mine
		      WHERE mine.task_id = t.id AND mine.reviewer_id = $4)`,
		key.Subject, key.Project, reviewerID)
}

// ListBatchTasks implements store.TaskStore.ListBatchTasks
func (s *PostgresTaskStore) ListBatchTasks(ctx context.Context, key domain.BatchKey) ([]domain.Task, error) {
	return s.listTasks(ctx, "list_batch", `
		WHERE t.subject_id = $2 AND tr.project = $3`,
		key.Subject, key.Project)
}

// ListReviewedTasks implements store.TaskStore.ListReviewedTasks
func (s *PostgresTaskStore) ListReviewedTasks(
	ctx context.Context,
	reviewerID uuid.UUID,
	key domain.BatchKey,
) ([]domain.Task, error) {
	return s.listTasks(ctx, "list_reviewed", `
		WHERE t.subject_id = $2 AND tr.project = $3
		  AND EXISTS (
		      SELECT 1 FROM annotations mine
		      WHERE mine.task_id = t.id AND mine.reviewer_id = $4)`,
		key.Subject, key.Project, reviewerID)
}

// GetTask implements store.TaskStore.GetTask
func (s *PostgresTaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+`
		WHERE t.id = $2`+taskGroupBy,
		s.targetTestType, id,
	)

	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, store.NewStoreError("task", "get", "failed to get task", MapError(err))
	}
	return task, nil
}

func (s *PostgresTaskStore) listTasks(ctx context.Context, operation, where string, args ...any) ([]domain.Task, error) {
	query := taskSelect + where + taskGroupBy + taskOrderBy
	rows, err := s.db.QueryContext(ctx, query, append([]any{s.targetTestType}, args...)...)
	if err != nil {
		return nil, store.NewStoreError("task", operation, "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", operation, "failed to iterate tasks", MapError(err))
	}

	return tasks, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID,
		&t.SubjectID,
		&t.SubjectUsername,
		&t.Project,
		&t.Filename,
		&t.Answer,
		&t.ListNumber,
		&t.LevelNumber,
		&t.ReviewCount,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
