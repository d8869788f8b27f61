package review

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/store"
)

// errNoChange aborts a state mutation that would not change anything.
var errNoChange = errors.New("state unchanged")

// StateKeeper reads and mutates reviewer progress. Reads never fail and
// mutations are best-effort: a failure is logged at WARN and leaves the
// stored state stale rather than corrupt.
type StateKeeper struct {
	states      store.ReviewerStateStore
	annotations store.AnnotationStore
	logger      *slog.Logger
}

// NewStateKeeper creates a StateKeeper.
func NewStateKeeper(states store.ReviewerStateStore, annotations store.AnnotationStore, logger *slog.Logger) *StateKeeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &StateKeeper{
		states:      states,
		annotations: annotations,
		logger:      logger.With(slog.String("component", "reviewer_state")),
	}
}

// Get returns the reviewer's state, or an empty state when none is stored or
// it cannot be read. TotalReviews is recomputed from the annotation count and
// the stored value is corrected when it drifted.
func (k *StateKeeper) Get(ctx context.Context, reviewerID uuid.UUID) *domain.ReviewerState {
	log := logger.FromContextOrDefault(ctx, k.logger)

	state, err := k.states.Get(ctx, reviewerID)
	if err != nil {
		if !errors.Is(err, store.ErrReviewerStateNotFound) {
			log.WarnContext(ctx, "failed to read reviewer state, using defaults",
				slog.String("reviewer_id", reviewerID.String()),
				slog.Any("error", err))
		}
		state = domain.NewReviewerState()
	}

	count, err := k.annotations.CountByReviewer(ctx, reviewerID)
	if err != nil {
		log.WarnContext(ctx, "failed to count annotations, keeping stored total",
			slog.String("reviewer_id", reviewerID.String()),
			slog.Any("error", err))
		return state
	}
	if count != state.TotalReviews {
		log.DebugContext(ctx, "correcting drifted total_reviews",
			slog.String("reviewer_id", reviewerID.String()),
			slog.Int("stored", state.TotalReviews),
			slog.Int("actual", count))
		state.TotalReviews = count
		k.update(ctx, reviewerID, "correct_total_reviews", func(s *domain.ReviewerState) error {
			if s.TotalReviews == count {
				return errNoChange
			}
			s.TotalReviews = count
			return nil
		})
	}
	return state
}

// SetTestInProgress records the task being served. It is a no-op when the
// batch has meanwhile been completed.
func (k *StateKeeper) SetTestInProgress(ctx context.Context, reviewerID uuid.UUID, tip domain.TestInProgress) {
	k.update(ctx, reviewerID, "set_test_in_progress", func(s *domain.ReviewerState) error {
		if s.IsCompleted(tip.Key()) {
			return errNoChange
		}
		s.TestInProgress = &tip
		return nil
	})
}

// ClearTestInProgress forgets the batch in progress.
func (k *StateKeeper) ClearTestInProgress(ctx context.Context, reviewerID uuid.UUID) {
	k.update(ctx, reviewerID, "clear_test_in_progress", func(s *domain.ReviewerState) error {
		if s.TestInProgress == nil {
			return errNoChange
		}
		s.TestInProgress = nil
		return nil
	})
}

// StartBatch makes tip the batch in progress and drops it from the remaining cache.
func (k *StateKeeper) StartBatch(ctx context.Context, reviewerID uuid.UUID, tip domain.TestInProgress) {
	k.update(ctx, reviewerID, "start_batch", func(s *domain.ReviewerState) error {
		if s.IsCompleted(tip.Key()) {
			return errNoChange
		}
		s.Start(tip)
		return nil
	})
}

// CompleteBatch marks the batch completed, makes its subject the most recent
// one, drops it from the remaining cache and clears it if in progress, all in
// one write.
func (k *StateKeeper) CompleteBatch(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) {
	k.update(ctx, reviewerID, "complete_batch", func(s *domain.ReviewerState) error {
		s.Complete(key)
		return nil
	})
}

// SetRemainingTests replaces the remaining cache. Completed and in-progress
// batches are filtered out against the stored state.
func (k *StateKeeper) SetRemainingTests(ctx context.Context, reviewerID uuid.UUID, remaining []domain.BatchSummary) {
	k.update(ctx, reviewerID, "set_remaining_tests", func(s *domain.ReviewerState) error {
		s.RemainingTests = s.Eligible(remaining)
		return nil
	})
}

// AddPlayed records that the reviewer played a task.
func (k *StateKeeper) AddPlayed(ctx context.Context, reviewerID uuid.UUID, taskID int64) {
	k.update(ctx, reviewerID, "add_played", func(s *domain.ReviewerState) error {
		if !s.AddPlayed(taskID) {
			return errNoChange
		}
		return nil
	})
}

// RemovePlayed forgets a played task once it has been judged.
func (k *StateKeeper) RemovePlayed(ctx context.Context, reviewerID uuid.UUID, taskID int64) {
	k.update(ctx, reviewerID, "remove_played", func(s *domain.ReviewerState) error {
		if !s.RemovePlayed(taskID) {
			return errNoChange
		}
		return nil
	})
}

// RefreshTotalReviews recomputes the reviewer's annotation count and stores
// it. It returns the new count, or fallback when counting fails.
func (k *StateKeeper) RefreshTotalReviews(ctx context.Context, reviewerID uuid.UUID, fallback int) int {
	count, err := k.annotations.CountByReviewer(ctx, reviewerID)
	if err != nil {
		logger.FromContextOrDefault(ctx, k.logger).WarnContext(ctx, "failed to count annotations",
			slog.String("reviewer_id", reviewerID.String()),
			slog.Any("error", err))
		return fallback
	}
	k.update(ctx, reviewerID, "refresh_total_reviews", func(s *domain.ReviewerState) error {
		if s.TotalReviews == count {
			return errNoChange
		}
		s.TotalReviews = count
		return nil
	})
	return count
}

func (k *StateKeeper) update(ctx context.Context, reviewerID uuid.UUID, operation string, fn store.StateMutation) {
	_, err := k.states.Update(ctx, reviewerID, fn)
	if err == nil || errors.Is(err, errNoChange) {
		return
	}
	logger.FromContextOrDefault(ctx, k.logger).WarnContext(ctx, "reviewer state update failed",
		slog.String("operation", operation),
		slog.String("reviewer_id", reviewerID.String()),
		slog.Any("error", err))
}
