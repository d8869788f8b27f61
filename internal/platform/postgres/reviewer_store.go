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

const reviewerColumns = `id, username, role, years_practicing, test_type, created_at, updated_at`

// PostgresReviewerStore implements the store.ReviewerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresReviewerStore struct {
	db store.DBTX
}

// NewPostgresReviewerStore creates a new PostgreSQL implementation of the ReviewerStore interface.
func NewPostgresReviewerStore(db store.DBTX) *PostgresReviewerStore {
	return &PostgresReviewerStore{db: db}
}

// Ensure PostgresReviewerStore implements store.ReviewerStore interface
var _ store.ReviewerStore = (*PostgresReviewerStore)(nil)

// Create implements store.ReviewerStore.Create
func (s *PostgresReviewerStore) Create(ctx context.Context, reviewer *domain.Reviewer) error {
	if err := reviewer.Validate(); err != nil {
		return err
	}

	var years sql.NullInt32
	if reviewer.YearsPracticing != nil {
		years = sql.NullInt32{Int32: int32(*reviewer.YearsPracticing), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reviewers (`+reviewerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		reviewer.ID,
		reviewer.Username,
		string(reviewer.Role),
		years,
		reviewer.TestType,
		reviewer.CreatedAt,
		reviewer.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return MapUniqueViolation(err, store.ErrUsernameExists)
		}
		return store.NewStoreError("reviewer", "create", "failed to insert reviewer", MapError(err))
	}

	return nil
}

// GetByID implements store.ReviewerStore.GetByID
func (s *PostgresReviewerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewerColumns+` FROM reviewers WHERE id = $1`, id)
	return scanReviewer(row)
}

// GetByUsername implements store.ReviewerStore.GetByUsername
func (s *PostgresReviewerStore) GetByUsername(ctx context.Context, username string) (*domain.Reviewer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reviewerColumns+` FROM reviewers WHERE username = $1`, username)
	return scanReviewer(row)
}

func scanReviewer(row *sql.Row) (*domain.Reviewer, error) {
	var (
		r     domain.Reviewer
		role  string
		years sql.NullInt32
	)
	err := row.Scan(&r.ID, &r.Username, &role, &years, &r.TestType, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewerNotFound
		}
		return nil, fmt.Errorf("failed to scan reviewer: %w", MapError(err))
	}

	r.Role = domain.Role(role)
	if years.Valid {
		y := int(years.Int32)
		r.YearsPracticing = &y
	}
	return &r, nil
}
