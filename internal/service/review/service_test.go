package review_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/events"
	"github.com/phrazzld/jnd-review/internal/mocks"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/service/catalog"
	"github.com/phrazzld/jnd-review/internal/service/review"
	"github.com/phrazzld/jnd-review/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quick = domain.BatchKey{Subject: 7, Project: "quick"}

func TestNewService_RequiresDependencies(t *testing.T) {
	db := mocks.NewMemoryDB(targetTestType)
	cat, err := catalog.New(db.Tasks(), mocks.NewMockArtifactChecker(), nil)
	require.NoError(t, err)

	full := review.Dependencies{
		Catalog: cat, Reviewers: db.Reviewers(), States: db.States(), Annotations: db.Annotations(),
	}
	_, err = review.NewService(full)
	require.NoError(t, err)

	for name, mutate := range map[string]func(*review.Dependencies){
		"catalog":     func(d *review.Dependencies) { d.Catalog = nil },
		"reviewers":   func(d *review.Dependencies) { d.Reviewers = nil },
		"states":      func(d *review.Dependencies) { d.States = nil },
		"annotations": func(d *review.Dependencies) { d.Annotations = nil },
	} {
		deps := full
		mutate(&deps)
		_, err := review.NewService(deps)
		assert.Error(t, err, name)
	}
}

// A batch of four tasks is served in order with absolute positions.
func TestWalkThroughBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	ids := h.addBatch(7, "quick", 4, 1)
	h.register(t, "alice")

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	require.True(t, p.HasTask())
	assert.Equal(t, ids[0], p.FileID)
	assert.Equal(t, 1, fileNum(p))
	assert.Equal(t, 4, totalFiles(p))
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, int64(7), p.ParticipantID)
	assert.Equal(t, "/jnd/api/review/upload/s7_quick_2.wav", p.Next[1])

	again, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, p, again, "repeated next calls are idempotent")

	p, err = h.svc.SubmitAnnotation(ctx, "alice", judge(true, false))
	require.NoError(t, err)
	assert.Equal(t, ids[1], p.FileID)
	assert.Equal(t, 2, fileNum(p))
	assert.Equal(t, 4, totalFiles(p))
	assert.Equal(t, 1, p.Position)

	assert.Equal(t, []string{events.TypeBatchStarted, events.TypeAnnotationSubmitted}, h.events.Types())
}

// Finishing a batch moves on to a different one, and finishing everything
// yields the empty shape.
func TestCompletingBatchSelectsNext(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	h.addBatch(8, "quick", 2, 10)
	alice := h.register(t, "alice")

	p := h.svc.Next(ctx, "alice")
	assert.Equal(t, int64(7), p.ParticipantID)

	p = h.svc.Submit(ctx, "alice", judge(true))
	assert.Equal(t, int64(2), p.FileID)
	p = h.svc.Submit(ctx, "alice", judge(true))
	require.True(t, p.HasTask())
	assert.Equal(t, int64(8), p.ParticipantID)
	assert.Equal(t, 1, fileNum(p))

	state := h.db.State(alice.ID)
	require.NotNil(t, state)
	assert.Contains(t, state.CompletedTests, quick)
	assert.Equal(t, int64(7), *state.MostRecentSubject)
	for _, b := range state.RemainingTests {
		assert.NotEqual(t, quick, b.Key(), "completed batch must leave the remaining cache")
	}

	h.svc.Submit(ctx, "alice", judge(false))
	p = h.svc.Submit(ctx, "alice", judge(false))
	assert.False(t, p.HasTask())
	assert.Empty(t, p.Error)
	assert.Empty(t, p.Cur)

	assert.Equal(t, []string{
		events.TypeBatchStarted,
		events.TypeAnnotationSubmitted,
		events.TypeAnnotationSubmitted,
		events.TypeBatchCompleted,
		events.TypeBatchStarted,
		events.TypeAnnotationSubmitted,
		events.TypeAnnotationSubmitted,
		events.TypeBatchCompleted,
	}, h.events.Types())

	state = h.db.State(alice.ID)
	assert.Nil(t, state.TestInProgress)
	assert.Len(t, state.CompletedTests, 2)
	assert.Equal(t, 4, state.TotalReviews)
}

func TestCompletedBatchIsNeverOfferedAgain(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 1, 1)
	h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	p := h.svc.Submit(ctx, "alice", judge(true))
	require.False(t, p.HasTask())

	// A new recording appears in the completed batch.
	h.addBatch(7, "quick", 1, 50)

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, p.HasTask())
}

func TestDuplicateSubmissionKeepsTotalReviews(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 4, 1)
	alice := h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	p, err := h.svc.SubmitAnnotation(ctx, "alice", judge(true, true))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Position)

	// A stale session still believes task 1 is in progress.
	stale := h.db.State(alice.ID)
	stale.TestInProgress.CurrentTaskID = 1
	h.db.PutState(alice.ID, stale)

	p, err = h.svc.SubmitAnnotation(ctx, "alice", judge(true, true))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Position)
	assert.Equal(t, int64(2), p.FileID)

	state, err := h.svc.State(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, state.TotalReviews)
}

func TestInProgressNeverPointsAtAnnotatedTask(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 3, 1)
	alice := h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	// Another session of the same reviewer judges the current task.
	h.annotate(t, alice.ID, 1)

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.FileID)
	assert.Equal(t, 2, fileNum(p))

	for range 2 {
		state := h.db.State(alice.ID)
		require.NotNil(t, state.TestInProgress)
		assert.False(t, h.isAnnotated(t, alice.ID, state.TestInProgress.CurrentTaskID))
		h.svc.Submit(ctx, "alice", judge(true))
	}
}

func TestResumeCompletesEmptiedBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	alice := h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	h.annotate(t, alice.ID, 1)
	h.annotate(t, alice.ID, 2)

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, p.HasTask())

	state := h.db.State(alice.ID)
	assert.Nil(t, state.TestInProgress)
	assert.Equal(t, []domain.BatchKey{quick}, state.CompletedTests)
	assert.Contains(t, h.events.Types(), events.TypeBatchCompleted)
}

func TestResumeDropsCompletedBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	alice := h.register(t, "alice")

	state := domain.NewReviewerState()
	state.TestInProgress = &domain.TestInProgress{Subject: 7, Project: "quick", CurrentTaskID: 1, TotalFiles: 2}
	state.CompletedTests = []domain.BatchKey{quick}
	h.db.PutState(alice.ID, state)

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, p.HasTask(), "a completed batch is not served again")

	stored := h.db.State(alice.ID)
	assert.Nil(t, stored.TestInProgress)
	assert.Equal(t, []domain.BatchKey{quick}, stored.CompletedTests)
	assert.NotContains(t, h.events.Types(), events.TypeBatchCompleted)
	assert.True(t, h.logs.HasMessage(slog.LevelWarn, "dropping batch in progress that is already completed"))
}

func TestSelectionPicksLeastReviewedBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(1, "P", 2, 10)
	h.addBatch(2, "P", 2, 20)
	h.addBatch(3, "P", 2, 30)
	h.addBatch(4, "P", 2, 40)

	bob := h.register(t, "bob")
	carol := h.register(t, "carol")
	h.annotate(t, bob.ID, 10)
	h.annotate(t, carol.ID, 11)
	h.annotate(t, bob.ID, 40)

	// Annotations by non-target reviewers do not count.
	dave, _, err := h.svc.Register(ctx, review.Registration{Username: "dave", Role: domain.RoleStudent, TestType: "control"})
	require.NoError(t, err)
	h.annotate(t, dave.ID, 20)

	h.register(t, "alice")
	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)

	assert.Equal(t, []int{2}, h.picks, "subjects 2 and 3 tie at zero reviews")
	assert.Equal(t, int64(2), p.ParticipantID)
	assert.Equal(t, 0, p.ReviewCount)
}

func TestSelectionCountsDistinctReviewedTasks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(1, "P", 1, 10)
	h.addBatch(2, "P", 2, 20)

	// One task judged three times weighs less than two tasks judged once.
	for _, name := range []string{"bob", "carol", "erin"} {
		r := h.register(t, name)
		h.annotate(t, r.ID, 10)
	}
	frank := h.register(t, "frank")
	h.annotate(t, frank.ID, 20)
	h.annotate(t, frank.ID, 21)

	h.register(t, "alice")
	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)

	assert.Empty(t, h.picks, "no tie to break")
	assert.Equal(t, int64(1), p.ParticipantID)
	assert.Equal(t, 3, p.ReviewCount, "the task itself still reports every review")
}

func TestAntiRepetition(t *testing.T) {
	ctx := context.Background()

	t.Run("skips most recent subject", func(t *testing.T) {
		h := newHarness(t)
		h.addBatch(1, "A", 1, 10)
		h.addBatch(1, "B", 1, 20)
		h.addBatch(2, "A", 2, 30)
		bob := h.register(t, "bob")
		h.annotate(t, bob.ID, 30)
		h.register(t, "alice")

		p := h.svc.Next(ctx, "alice")
		require.Equal(t, int64(1), p.ParticipantID)
		require.Equal(t, "A", p.Test)

		p = h.svc.Submit(ctx, "alice", judge(true))
		require.True(t, p.HasTask())
		assert.Equal(t, int64(2), p.ParticipantID, "subject 1 is skipped although (1, B) has fewer reviews")
	})

	t.Run("repeats subject when nothing else remains", func(t *testing.T) {
		h := newHarness(t)
		h.addBatch(1, "A", 1, 10)
		h.addBatch(1, "B", 1, 20)
		h.register(t, "alice")

		h.svc.Next(ctx, "alice")
		p := h.svc.Submit(ctx, "alice", judge(true))
		require.True(t, p.HasTask())
		assert.Equal(t, int64(1), p.ParticipantID)
		assert.Equal(t, "B", p.Test)
	})
}

func TestSelectionDropsBatchesWithoutEligibleTasks(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(1, "P", 1, 10)
	h.addBatch(2, "P", 1, 20)
	alice := h.register(t, "alice")

	cached := domain.NewReviewerState()
	cached.RemainingTests = []domain.BatchSummary{
		{Subject: 1, Project: "P"},
		{Subject: 2, Project: "P"},
	}
	h.db.PutState(alice.ID, cached)
	h.artifacts.SetMissing("s1_P_1.wav", true)

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	require.True(t, p.HasTask())
	assert.Equal(t, int64(2), p.ParticipantID)

	state := h.db.State(alice.ID)
	assert.Empty(t, state.RemainingTests)
	assert.True(t, h.logs.HasMessage(slog.LevelDebug, "dropping batch without eligible tasks"))
}

func TestSelectionRecomputesExhaustedCache(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(1, "P", 1, 10)
	h.addBatch(2, "P", 1, 20)
	alice := h.register(t, "alice")

	// The cache only knows a batch that has since lost its recordings.
	cached := domain.NewReviewerState()
	cached.RemainingTests = []domain.BatchSummary{{Subject: 1, Project: "P"}}
	h.db.PutState(alice.ID, cached)
	h.artifacts.SetMissing("s1_P_1.wav", true)

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	require.True(t, p.HasTask())
	assert.Equal(t, int64(2), p.ParticipantID)
}

func TestClientTaskIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 3, 1)
	alice := h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	p, err := h.svc.SubmitAnnotation(ctx, "alice", review.Submission{Judgments: []bool{true}, ClientTaskID: 3})
	require.NoError(t, err)

	assert.True(t, h.isAnnotated(t, alice.ID, 1))
	assert.False(t, h.isAnnotated(t, alice.ID, 3))
	assert.Equal(t, int64(2), p.FileID)
	assert.True(t, h.logs.HasMessage(slog.LevelWarn, "ignoring client task id that differs from the task in progress"))
}

func TestSubmitWithoutTestInProgress(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 1, 1)
	h.register(t, "alice")

	_, err := h.svc.SubmitAnnotation(ctx, "alice", judge(true))
	assert.ErrorIs(t, err, review.ErrNoTestInProgress)

	p := h.svc.Submit(ctx, "alice", judge(true))
	assert.False(t, p.HasTask())
	assert.Equal(t, review.ErrNoTestInProgress.Error(), p.Error)
	assert.Equal(t, map[int]string{1: ""}, p.Next)
}

func TestSubmitInvalidAnnotation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 1, 1)
	h.register(t, "alice")
	h.svc.Next(ctx, "alice")

	_, err := h.svc.SubmitAnnotation(ctx, "alice", review.Submission{})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.ErrorIs(t, err, domain.ErrAnnotationJudgmentsEmpty)

	p, err := h.svc.SubmitAnnotation(ctx, "alice", review.Submission{Unclear: true})
	require.NoError(t, err, "an unclear recording needs no judgments")
	assert.False(t, p.HasTask())
}

func TestUnknownReviewer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 1, 1)

	_, err := h.svc.NextTask(ctx, "nobody")
	assert.ErrorIs(t, err, review.ErrReviewerNotFound)

	p := h.svc.Next(ctx, "nobody")
	assert.False(t, p.HasTask())
	assert.NotEmpty(t, p.Error)
	assert.True(t, h.logs.HasMessage(slog.LevelError, "failed to serve next task"))
}

func TestSubmitForRemovedTask(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	alice := h.register(t, "alice")
	h.svc.Next(ctx, "alice")

	h.db.RemoveTask(1)

	_, err := h.svc.SubmitAnnotation(ctx, "alice", judge(true))
	var rerr *review.ReferentialIntegrityError
	require.ErrorAs(t, err, &rerr)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)
	assert.Equal(t, int64(1), rerr.TaskID)
	assert.Equal(t, alice.ID, rerr.ReviewerID)
	assert.False(t, rerr.TaskExists)
	assert.True(t, rerr.ReviewerExists)
	assert.Contains(t, err.Error(), "table tasks")

	p := h.svc.Submit(ctx, "alice", judge(true))
	assert.Contains(t, p.Error, "task 1")
}

func TestIdenticalResubmissionForRemovedTaskIsDuplicate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	alice := h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	h.svc.Submit(ctx, "alice", judge(true, false))

	stale := h.db.State(alice.ID)
	stale.TestInProgress.CurrentTaskID = 1
	h.db.PutState(alice.ID, stale)
	h.db.RemoveTask(1)

	_, err := h.svc.SubmitAnnotation(ctx, "alice", judge(true, false))
	assert.NoError(t, err)

	stale = h.db.State(alice.ID)
	stale.TestInProgress.CurrentTaskID = 1
	h.db.PutState(alice.ID, stale)

	_, err = h.svc.SubmitAnnotation(ctx, "alice", judge(false, false))
	assert.ErrorIs(t, err, store.ErrInvalidEntity, "different data is not a duplicate")
}

func TestArtifactCheckFailureDoesNotCompleteBatch(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	alice := h.register(t, "alice")
	h.svc.Next(ctx, "alice")

	h.artifacts.ExistsFn = func(context.Context, string) (bool, error) {
		return false, errors.New("bucket unreachable")
	}

	p := h.svc.Next(ctx, "alice")
	assert.False(t, p.HasTask())
	assert.Contains(t, p.Error, "bucket unreachable")

	state := h.db.State(alice.ID)
	assert.Empty(t, state.CompletedTests)
	assert.NotNil(t, state.TestInProgress)
}

func TestStateWriteFailuresAreNotFatal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	h.register(t, "alice")
	h.db.FailOn("States.Update", errors.New("disk full"))

	p, err := h.svc.NextTask(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.FileID)
	assert.True(t, h.logs.HasMessage(slog.LevelWarn, "reviewer state update failed"))
}

func TestTrackPlayed(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.addBatch(7, "quick", 2, 1)
	alice := h.register(t, "alice")

	p := h.svc.Next(ctx, "alice")
	assert.False(t, p.AlreadyPlayed)

	require.NoError(t, h.svc.TrackPlayed(ctx, "alice", 1))
	require.NoError(t, h.svc.TrackPlayed(ctx, "alice", 1))
	p = h.svc.Next(ctx, "alice")
	assert.True(t, p.AlreadyPlayed)
	assert.Equal(t, []int64{1}, h.db.State(alice.ID).PlayedAudio)

	h.svc.Submit(ctx, "alice", judge(true))
	assert.Empty(t, h.db.State(alice.ID).PlayedAudio, "judged tasks leave the played list")

	assert.ErrorIs(t, h.svc.TrackPlayed(ctx, "alice", 0), review.ErrInvalidTaskID)
	assert.ErrorIs(t, h.svc.TrackPlayed(ctx, "alice", 999), review.ErrInvalidTaskID)
	assert.ErrorIs(t, h.svc.TrackPlayed(ctx, "nobody", 1), review.ErrReviewerNotFound)
}

func TestProjectScopedEventHandlers(t *testing.T) {
	ctx := context.Background()
	log, _ := logger.NewTestLogger()
	emitter := events.NewInMemoryEventEmitter(log)

	var seen []string
	emitter.RegisterHandler(events.ForProjects(events.HandlerFunc(func(_ context.Context, e *events.ReviewEvent) error {
		seen = append(seen, e.Batch.Project+":"+e.Type)
		return nil
	}), "quick"))
	emitter.RegisterHandler(events.HandlerFunc(func(context.Context, *events.ReviewEvent) error {
		return errors.New("handler down")
	}))

	h := newHarness(t, func(d *review.Dependencies) { d.Events = emitter })
	h.addBatch(7, "quick", 1, 1)
	h.addBatch(8, "slow", 1, 10)
	h.register(t, "alice")

	h.svc.Next(ctx, "alice")
	h.svc.Submit(ctx, "alice", judge(true))
	p := h.svc.Submit(ctx, "alice", judge(true))
	assert.False(t, p.HasTask())
	assert.Empty(t, p.Error, "handler failures never abort the request")

	assert.Equal(t, []string{
		"quick:" + events.TypeBatchStarted,
		"quick:" + events.TypeAnnotationSubmitted,
		"quick:" + events.TypeBatchCompleted,
	}, seen)
	assert.True(t, h.logs.HasMessage(slog.LevelWarn, "review event handler failed"))
}
