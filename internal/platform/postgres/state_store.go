package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/store"
)

const stateColumns = `test_in_progress, completed_tests, remaining_tests, most_recent_subject, total_reviews, played_audio`

// PostgresReviewerStateStore implements store.ReviewerStateStore with one
// row per reviewer. Sub-records are stored as jsonb.
type PostgresReviewerStateStore struct {
	db    *sql.DB
	retry RetryPolicy
}

// NewPostgresReviewerStateStore creates a state store. Updates run in their
// own transactions, so a *sql.DB is required.
func NewPostgresReviewerStateStore(db *sql.DB, retry RetryPolicy) *PostgresReviewerStateStore {
	return &PostgresReviewerStateStore{db: db, retry: retry}
}

// Ensure PostgresReviewerStateStore implements store.ReviewerStateStore interface
var _ store.ReviewerStateStore = (*PostgresReviewerStateStore)(nil)

// Get implements store.ReviewerStateStore.Get
func (s *PostgresReviewerStateStore) Get(ctx context.Context, reviewerID uuid.UUID) (*domain.ReviewerState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM reviewer_states WHERE reviewer_id = $1`, reviewerID)

	state, err := scanState(ctx, row, reviewerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrReviewerStateNotFound
		}
		return nil, store.NewStoreError("reviewer_state", "get", "failed to read state", MapError(err))
	}
	return state, nil
}

// Update implements store.ReviewerStateStore.Update.
// The row is locked with SELECT ... FOR UPDATE for the duration of fn.
func (s *PostgresReviewerStateStore) Update(
	ctx context.Context,
	reviewerID uuid.UUID,
	fn store.StateMutation,
) (*domain.ReviewerState, error) {
	var updated *domain.ReviewerState

	err := s.retry.run(ctx, "update_reviewer_state", func() error {
		return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO reviewer_states (reviewer_id) VALUES ($1) ON CONFLICT (reviewer_id) DO NOTHING`,
				reviewerID,
			); err != nil {
				return err
			}

			row := tx.QueryRowContext(ctx,
				`SELECT `+stateColumns+` FROM reviewer_states WHERE reviewer_id = $1 FOR UPDATE`, reviewerID)
			state, err := scanState(ctx, row, reviewerID)
			if err != nil {
				return err
			}

			if err := fn(state); err != nil {
				return err
			}

			if err := writeState(ctx, tx, reviewerID, state); err != nil {
				return err
			}

			updated = state
			return nil
		})
	})
	if err != nil {
		return nil, store.NewStoreError("reviewer_state", "update", "failed to update state", MapError(err))
	}

	return updated, nil
}

func writeState(ctx context.Context, tx *sql.Tx, reviewerID uuid.UUID, state *domain.ReviewerState) error {
	var tip any
	if state.TestInProgress != nil {
		b, err := json.Marshal(state.TestInProgress)
		if err != nil {
			return fmt.Errorf("failed to encode test in progress: %w", err)
		}
		tip = string(b)
	}
	completed, err := json.Marshal(state.CompletedTests)
	if err != nil {
		return fmt.Errorf("failed to encode completed tests: %w", err)
	}
	remaining, err := json.Marshal(state.RemainingTests)
	if err != nil {
		return fmt.Errorf("failed to encode remaining tests: %w", err)
	}
	played, err := json.Marshal(state.PlayedAudio)
	if err != nil {
		return fmt.Errorf("failed to encode played audio: %w", err)
	}

	var mostRecent sql.NullInt64
	if state.MostRecentSubject != nil {
		mostRecent = sql.NullInt64{Int64: *state.MostRecentSubject, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE reviewer_states
		SET test_in_progress = $2::jsonb,
		    completed_tests = $3::jsonb,
		    remaining_tests = $4::jsonb,
		    most_recent_subject = $5,
		    total_reviews = $6,
		    played_audio = $7::jsonb,
		    updated_at = NOW()
		WHERE reviewer_id = $1`,
		reviewerID, tip, string(completed), string(remaining), mostRecent, state.TotalReviews, string(played),
	)
	return err
}

// scanState decodes a state row. A sub-record that fails to decode or
// validate is logged and reset to its empty value.
func scanState(ctx context.Context, row rowScanner, reviewerID uuid.UUID) (*domain.ReviewerState, error) {
	var (
		tipRaw, completedRaw, remainingRaw, playedRaw []byte
		mostRecent                                    sql.NullInt64
		total                                         int
	)
	if err := row.Scan(&tipRaw, &completedRaw, &remainingRaw, &mostRecent, &total, &playedRaw); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(slog.String("reviewer_id", reviewerID.String()))
	reset := func(field string, err error) {
		log.Warn("resetting malformed reviewer state field",
			slog.String("field", field),
			slog.Any("error", err))
	}

	state := domain.NewReviewerState()
	state.TotalReviews = max(total, 0)
	if mostRecent.Valid {
		state.SetMostRecentSubject(mostRecent.Int64)
	}

	if len(tipRaw) > 0 && string(tipRaw) != "null" {
		var tip domain.TestInProgress
		err := json.Unmarshal(tipRaw, &tip)
		if err == nil {
			err = tip.Validate()
		}
		if err != nil {
			reset("test_in_progress", err)
		} else {
			state.TestInProgress = &tip
		}
	}

	if len(completedRaw) > 0 {
		var keys []domain.BatchKey
		if err := json.Unmarshal(completedRaw, &keys); err != nil {
			reset("completed_tests", err)
		} else {
			valid, dropped := domain.ValidBatchKeys(keys)
			if dropped > 0 {
				reset("completed_tests", fmt.Errorf("%d malformed entries", dropped))
			}
			state.CompletedTests = valid
		}
	}

	if len(remainingRaw) > 0 {
		var batches []domain.BatchSummary
		if err := json.Unmarshal(remainingRaw, &batches); err != nil {
			reset("remaining_tests", err)
		} else {
			valid, dropped := domain.ValidBatchSummaries(batches)
			if dropped > 0 {
				reset("remaining_tests", fmt.Errorf("%d malformed entries", dropped))
			}
			state.RemainingTests = valid
		}
	}

	if len(playedRaw) > 0 {
		var played []int64
		if err := json.Unmarshal(playedRaw, &played); err != nil {
			reset("played_audio", err)
		} else if played != nil {
			state.PlayedAudio = played
		}
	}

	// A batch that is both completed and in progress cannot be resumed.
	if state.TestInProgress != nil && state.IsCompleted(state.TestInProgress.Key()) {
		reset("test_in_progress", errors.New("batch already completed"))
		state.TestInProgress = nil
	}

	return state, nil
}
