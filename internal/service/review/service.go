package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/events"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/store"
)

// TaskCatalog lists the batches and tasks a reviewer may work on.
// It is implemented by catalog.Catalog.
type TaskCatalog interface {
	ListEligibleBatches(ctx context.Context, reviewerID uuid.UUID) ([]domain.BatchSummary, error)
	ListTasksInBatch(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) ([]domain.Task, error)
	CountTotalTasks(ctx context.Context, key domain.BatchKey) (int, error)
	CountTasksReviewedBy(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) (int, error)
	GetTask(ctx context.Context, id int64) (*domain.Task, error)
}

// Dependencies holds everything a Service needs.
type Dependencies struct {
	Catalog     TaskCatalog
	Reviewers   store.ReviewerStore
	States      store.ReviewerStateStore
	Annotations store.AnnotationStore

	// Events receives lifecycle events. Optional.
	Events events.EventEmitter
	// Policy decides batch selection. Defaults to random tie breaks with
	// repeat-subject avoidance.
	Policy *SelectionPolicy
	// UploadURLPrefix defaults to DefaultUploadURLPrefix.
	UploadURLPrefix string
	Logger          *slog.Logger
}

// Submission is a reviewer's judgment of the task currently in progress.
type Submission struct {
	Judgments []bool
	Unclear   bool
	// ClientTaskID is the task the client believes it judged. The judgment
	// is always applied to the task in progress; a different value is only logged.
	ClientTaskID int64
}

// Service assigns tasks to reviewers and tracks their progress.
type Service struct {
	catalog     TaskCatalog
	reviewers   store.ReviewerStore
	annotations store.AnnotationStore
	state       *StateKeeper
	events      events.EventEmitter
	policy      *SelectionPolicy
	urlPrefix   string
	logger      *slog.Logger
}

// NewService creates a Service. It returns an error if a required dependency is nil.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog cannot be nil")
	}
	if deps.Reviewers == nil {
		return nil, errors.New("reviewers cannot be nil")
	}
	if deps.States == nil {
		return nil, errors.New("states cannot be nil")
	}
	if deps.Annotations == nil {
		return nil, errors.New("annotations cannot be nil")
	}

	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	policy := deps.Policy
	if policy == nil {
		policy = &SelectionPolicy{AvoidRepeatSubject: true, RandomTieBreak: true}
	}
	prefix := deps.UploadURLPrefix
	if prefix == "" {
		prefix = DefaultUploadURLPrefix
	}

	return &Service{
		catalog:     deps.Catalog,
		reviewers:   deps.Reviewers,
		annotations: deps.Annotations,
		state:       NewStateKeeper(deps.States, deps.Annotations, log),
		events:      deps.Events,
		policy:      policy,
		urlPrefix:   prefix,
		logger:      log.With(slog.String("component", "review_service")),
	}, nil
}

// State returns the reviewer's current progress.
func (s *Service) State(ctx context.Context, username string) (*domain.ReviewerState, error) {
	reviewer, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	return s.state.Get(ctx, reviewer.ID), nil
}

// Next returns the task the reviewer should judge now. Failures are
// returned as an error payload.
func (s *Service) Next(ctx context.Context, username string) *Payload {
	p, err := s.NextTask(ctx, username)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).ErrorContext(ctx, "failed to serve next task",
			slog.String("username", username),
			slog.Any("error", err))
		return ErrorPayload(username, err)
	}
	return p
}

// NextTask resumes the batch in progress or selects a new one and returns
// the task to judge. A payload without a task means nothing is left.
func (s *Service) NextTask(ctx context.Context, username string) (*Payload, error) {
	reviewer, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	state := s.state.Get(ctx, reviewer.ID)

	p, err := s.serve(ctx, reviewer, state)
	if err != nil {
		return nil, NewNextTaskError("failed to assign task", err)
	}
	return p, nil
}

// Submit records a judgment of the task in progress and returns the next
// task. Failures are returned as an error payload.
func (s *Service) Submit(ctx context.Context, username string, sub Submission) *Payload {
	p, err := s.SubmitAnnotation(ctx, username, sub)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).ErrorContext(ctx, "failed to submit annotation",
			slog.String("username", username),
			slog.Any("error", err))
		return ErrorPayload(username, err)
	}
	return p
}

// SubmitAnnotation records a judgment of the task in progress, completes the
// batch when every task in it is judged, and returns the next task.
func (s *Service) SubmitAnnotation(ctx context.Context, username string, sub Submission) (*Payload, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	reviewer, err := s.lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	state := s.state.Get(ctx, reviewer.ID)

	tip := state.TestInProgress
	if tip == nil {
		return nil, ErrNoTestInProgress
	}
	taskID := tip.CurrentTaskID
	if sub.ClientTaskID != 0 && sub.ClientTaskID != taskID {
		log.WarnContext(ctx, "ignoring client task id that differs from the task in progress",
			slog.String("username", reviewer.Username),
			slog.Int64("client_task_id", sub.ClientTaskID),
			slog.Int64("task_id", taskID))
	}

	annotation, err := domain.NewAnnotation(taskID, reviewer.ID, sub.Judgments, sub.Unclear)
	if err != nil {
		return nil, domain.NewValidationError("annotations", "are invalid", err)
	}
	if err := s.saveAnnotation(ctx, annotation); err != nil {
		return nil, err
	}

	state.RemovePlayed(taskID)
	s.state.RemovePlayed(ctx, reviewer.ID, taskID)
	state.TotalReviews = s.state.RefreshTotalReviews(ctx, reviewer.ID, state.TotalReviews)

	key := tip.Key()
	s.emit(ctx, events.NewReviewEvent(events.TypeAnnotationSubmitted, reviewer, key, taskID))

	complete, err := s.isBatchComplete(ctx, reviewer.ID, key)
	if err != nil {
		return nil, NewSubmitAnnotationError("failed to check batch completion", err)
	}
	if complete {
		s.completeBatch(ctx, reviewer, state, key)
	}

	p, err := s.serve(ctx, reviewer, state)
	if err != nil {
		return nil, NewSubmitAnnotationError("failed to assign next task", err)
	}
	return p, nil
}

// TrackPlayed records that the reviewer played a task's recording.
func (s *Service) TrackPlayed(ctx context.Context, username string, taskID int64) error {
	if taskID <= 0 {
		return ErrInvalidTaskID
	}
	reviewer, err := s.lookup(ctx, username)
	if err != nil {
		return err
	}
	if _, err := s.catalog.GetTask(ctx, taskID); err != nil {
		if store.IsNotFoundError(err) {
			return fmt.Errorf("%w: task %d does not exist", ErrInvalidTaskID, taskID)
		}
		return NewTrackPlayedError("failed to look up task", err)
	}
	s.state.AddPlayed(ctx, reviewer.ID, taskID)
	return nil
}

func (s *Service) lookup(ctx context.Context, username string) (*domain.Reviewer, error) {
	name := domain.NormalizeUsername(username)
	if name == "" {
		return nil, ErrReviewerNotFound
	}
	reviewer, err := s.reviewers.GetByUsername(ctx, name)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s", ErrReviewerNotFound, name)
		}
		return nil, &ServiceError{Operation: "lookup_reviewer", Message: "failed to load reviewer", Err: err}
	}
	return reviewer, nil
}

// serve produces the payload for the reviewer's next task.
func (s *Service) serve(ctx context.Context, reviewer *domain.Reviewer, state *domain.ReviewerState) (*Payload, error) {
	a, err := s.assign(ctx, reviewer, state)
	if err != nil {
		return nil, err
	}
	return buildPayload(s.urlPrefix, reviewer.Username, a, state), nil
}

func (s *Service) assign(ctx context.Context, reviewer *domain.Reviewer, state *domain.ReviewerState) (*assignment, error) {
	if state.TestInProgress != nil {
		a, err := s.resume(ctx, reviewer, state)
		if err != nil || a != nil {
			return a, err
		}
	}
	return s.selectBatch(ctx, reviewer, state)
}

// resume serves the next task of the batch in progress. It returns nil when
// the batch has no tasks left, after completing it.
func (s *Service) resume(ctx context.Context, reviewer *domain.Reviewer, state *domain.ReviewerState) (*assignment, error) {
	tip := *state.TestInProgress
	key := tip.Key()

	// A completed batch is never resumed, even if tasks were added to it since.
	if state.IsCompleted(key) {
		logger.FromContextOrDefault(ctx, s.logger).WarnContext(ctx, "dropping batch in progress that is already completed",
			slog.String("username", reviewer.Username),
			slog.String("batch", key.String()))
		state.TestInProgress = nil
		s.state.ClearTestInProgress(ctx, reviewer.ID)
		return nil, nil
	}

	tasks, err := s.catalog.ListTasksInBatch(ctx, reviewer.ID, key)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		s.completeBatch(ctx, reviewer, state, key)
		return nil, nil
	}

	reviewed, err := s.catalog.CountTasksReviewedBy(ctx, reviewer.ID, key)
	if err != nil {
		return nil, err
	}
	total := tip.TotalFiles
	if total <= 0 {
		if total, err = s.catalog.CountTotalTasks(ctx, key); err != nil {
			return nil, err
		}
	}

	index := domain.IndexOfTask(tasks, tip.CurrentTaskID)
	if index < 0 {
		index = 0
	}
	a := &assignment{tasks: tasks, index: index, totalFiles: total, reviewed: reviewed}

	progress := a.progress()
	state.TestInProgress = &progress
	s.state.SetTestInProgress(ctx, reviewer.ID, progress)
	return a, nil
}

// selectBatch picks a new batch and starts it. It returns nil when no batch
// with eligible tasks remains.
func (s *Service) selectBatch(ctx context.Context, reviewer *domain.Reviewer, state *domain.ReviewerState) (*assignment, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	remaining := state.Eligible(state.RemainingTests)
	refreshed := false
	for {
		if len(remaining) == 0 && !refreshed {
			batches, err := s.catalog.ListEligibleBatches(ctx, reviewer.ID)
			if err != nil {
				return nil, err
			}
			remaining = state.Eligible(batches)
			refreshed = true
			s.state.SetRemainingTests(ctx, reviewer.ID, remaining)
		}

		chosen, ok := s.policy.Choose(s.policy.Candidates(remaining, state.MostRecentSubject))
		if !ok {
			log.DebugContext(ctx, "no batch left to assign", slog.String("username", reviewer.Username))
			state.RemainingTests = remaining
			return nil, nil
		}
		key := chosen.Key()

		tasks, err := s.catalog.ListTasksInBatch(ctx, reviewer.ID, key)
		if err != nil {
			return nil, err
		}
		if len(tasks) == 0 {
			log.DebugContext(ctx, "dropping batch without eligible tasks",
				slog.String("username", reviewer.Username),
				slog.String("batch", key.String()))
			remaining = domain.WithoutBatch(remaining, key)
			s.state.SetRemainingTests(ctx, reviewer.ID, remaining)
			continue
		}

		total, err := s.catalog.CountTotalTasks(ctx, key)
		if err != nil {
			return nil, err
		}
		reviewed, err := s.catalog.CountTasksReviewedBy(ctx, reviewer.ID, key)
		if err != nil {
			return nil, err
		}

		a := &assignment{tasks: tasks, totalFiles: total, reviewed: reviewed}
		progress := a.progress()
		state.RemainingTests = remaining
		state.Start(progress)
		s.state.StartBatch(ctx, reviewer.ID, progress)

		log.InfoContext(ctx, "assigned batch",
			slog.String("username", reviewer.Username),
			slog.String("batch", key.String()),
			slog.Int("review_count", chosen.ReviewCount))
		s.emit(ctx, events.NewReviewEvent(events.TypeBatchStarted, reviewer, key, 0))
		return a, nil
	}
}

func (s *Service) isBatchComplete(ctx context.Context, reviewerID uuid.UUID, key domain.BatchKey) (bool, error) {
	total, err := s.catalog.CountTotalTasks(ctx, key)
	if err != nil {
		return false, err
	}
	if total == 0 {
		return false, nil
	}
	reviewed, err := s.catalog.CountTasksReviewedBy(ctx, reviewerID, key)
	if err != nil {
		return false, err
	}
	return reviewed >= total, nil
}

func (s *Service) completeBatch(ctx context.Context, reviewer *domain.Reviewer, state *domain.ReviewerState, key domain.BatchKey) {
	state.Complete(key)
	s.state.CompleteBatch(ctx, reviewer.ID, key)

	logger.FromContextOrDefault(ctx, s.logger).InfoContext(ctx, "batch completed",
		slog.String("username", reviewer.Username),
		slog.String("batch", key.String()))
	s.emit(ctx, events.NewReviewEvent(events.TypeBatchCompleted, reviewer, key, 0))
}

// saveAnnotation upserts the annotation. A missing task or reviewer is a
// ReferentialIntegrityError unless the identical annotation is already stored.
func (s *Service) saveAnnotation(ctx context.Context, a *domain.Annotation) error {
	if _, err := s.catalog.GetTask(ctx, a.TaskID); err != nil {
		if !store.IsNotFoundError(err) {
			return NewSubmitAnnotationError("failed to look up task", err)
		}
		return s.integrityError(ctx, a, err)
	}

	if err := s.annotations.Upsert(ctx, a); err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			return s.integrityError(ctx, a, err)
		}
		return NewSubmitAnnotationError("failed to save annotation", err)
	}
	return nil
}

func (s *Service) integrityError(ctx context.Context, a *domain.Annotation, cause error) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if existing, err := s.annotations.Get(ctx, a.TaskID, a.ReviewerID); err == nil && existing.SameJudgment(a) {
		log.DebugContext(ctx, "treating resubmission of an identical annotation as a duplicate",
			slog.Int64("task_id", a.TaskID),
			slog.String("reviewer_id", a.ReviewerID.String()))
		return nil
	}

	_, taskErr := s.catalog.GetTask(ctx, a.TaskID)
	_, reviewerErr := s.reviewers.GetByID(ctx, a.ReviewerID)
	rerr := &ReferentialIntegrityError{
		TaskID:         a.TaskID,
		ReviewerID:     a.ReviewerID,
		TaskExists:     taskErr == nil,
		ReviewerExists: reviewerErr == nil,
		Err:            cause,
	}
	log.WarnContext(ctx, "annotation rejected", slog.Any("error", rerr))
	return rerr
}

func (s *Service) emit(ctx context.Context, event *events.ReviewEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).WarnContext(ctx, "review event handler failed",
			slog.String("event_type", event.Type),
			slog.Any("error", err))
	}
}
