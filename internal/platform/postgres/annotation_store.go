package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/store"
)

// PostgresAnnotationStore implements the store.AnnotationStore interface.
type PostgresAnnotationStore struct {
	db    store.DBTX
	retry RetryPolicy
}

// NewPostgresAnnotationStore creates a new PostgreSQL implementation of the AnnotationStore interface.
func NewPostgresAnnotationStore(db store.DBTX, retry RetryPolicy) *PostgresAnnotationStore {
	return &PostgresAnnotationStore{db: db, retry: retry}
}

// Ensure PostgresAnnotationStore implements store.AnnotationStore interface
var _ store.AnnotationStore = (*PostgresAnnotationStore)(nil)

// Upsert implements store.AnnotationStore.Upsert
func (s *PostgresAnnotationStore) Upsert(ctx context.Context, annotation *domain.Annotation) error {
	if err := annotation.Validate(); err != nil {
		return err
	}

	values := annotation.Judgments
	if values == nil {
		values = []bool{}
	}
	judgments, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode judgments: %w", err)
	}

	err = s.retry.run(ctx, "upsert_annotation", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO annotations (task_id, reviewer_id, judgments, unclear, created_at, updated_at)
			VALUES ($1, $2, $3::jsonb, $4, $5, $5)
			ON CONFLICT (task_id, reviewer_id) DO UPDATE
			SET judgments = EXCLUDED.judgments,
			    unclear = EXCLUDED.unclear,
			    updated_at = EXCLUDED.updated_at`,
			annotation.TaskID,
			annotation.ReviewerID,
			string(judgments),
			annotation.Unclear,
			annotation.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if IsForeignKeyViolation(err) {
			return store.NewStoreError("annotation", "upsert",
				fmt.Sprintf("task %d or reviewer %s does not exist", annotation.TaskID, annotation.ReviewerID),
				MapError(err))
		}
		return store.NewStoreError("annotation", "upsert", "failed to save annotation", MapError(err))
	}

	return nil
}

// Get implements store.AnnotationStore.Get
func (s *PostgresAnnotationStore) Get(
	ctx context.Context,
	taskID int64,
	reviewerID uuid.UUID,
) (*domain.Annotation, error) {
	var (
		a         domain.Annotation
		judgments []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT task_id, reviewer_id, judgments, unclear, created_at, updated_at
		FROM annotations
		WHERE task_id = $1 AND reviewer_id = $2`,
		taskID, reviewerID,
	).Scan(&a.TaskID, &a.ReviewerID, &judgments, &a.Unclear, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAnnotationNotFound
		}
		return nil, store.NewStoreError("annotation", "get", "failed to get annotation", MapError(err))
	}

	if err := json.Unmarshal(judgments, &a.Judgments); err != nil {
		return nil, fmt.Errorf("failed to decode judgments: %w", err)
	}
	return &a, nil
}

// CountByReviewer implements store.AnnotationStore.CountByReviewer
func (s *PostgresAnnotationStore) CountByReviewer(ctx context.Context, reviewerID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM annotations WHERE reviewer_id = $1`, reviewerID,
	).Scan(&n)
	if err != nil {
		return 0, store.NewStoreError("annotation", "count", "failed to count annotations", MapError(err))
	}
	return n, nil
}
