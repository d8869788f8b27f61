package mocks

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/store"
)

type subjectRecord struct {
	username string
	testType string
}

type annotationKey struct {
	taskID     int64
	reviewerID uuid.UUID
}

// MemoryDB holds the data shared by the in-memory stores.
type MemoryDB struct {
	mu             sync.Mutex
	targetTestType string
	subjects       map[int64]subjectRecord
	tasks          map[int64]domain.Task
	reviewers      map[uuid.UUID]*domain.Reviewer
	states         map[uuid.UUID]*domain.ReviewerState
	annotations    map[annotationKey]*domain.Annotation
	failures       map[string]error

	// StateWrites counts successful state updates.
	StateWrites int
}

// NewMemoryDB creates an empty database counting reviews by targetTestType.
func NewMemoryDB(targetTestType string) *MemoryDB {
	return &MemoryDB{
		targetTestType: targetTestType,
		subjects:       map[int64]subjectRecord{},
		tasks:          map[int64]domain.Task{},
		reviewers:      map[uuid.UUID]*domain.Reviewer{},
		states:         map[uuid.UUID]*domain.ReviewerState{},
		annotations:    map[annotationKey]*domain.Annotation{},
		failures:       map[string]error{},
	}
}

// AddSubject registers a recorded participant.
func (db *MemoryDB) AddSubject(id int64, username, testType string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.subjects[id] = subjectRecord{username: username, testType: testType}
}

// AddTask adds a task. SubjectUsername is filled from the subject and
// ReviewCount is always computed.
func (db *MemoryDB) AddTask(t domain.Task) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tasks[t.ID] = t
}

// RemoveTask deletes a task, as a catalog reload might.
func (db *MemoryDB) RemoveTask(id int64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	delete(db.tasks, id)
}

// FailOn makes the named operation (for example "States.Update") return err
// until it is cleared with a nil err.
func (db *MemoryDB) FailOn(operation string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err == nil {
		delete(db.failures, operation)
		return
	}
	db.failures[operation] = err
}

// PutState replaces a reviewer's stored state.
func (db *MemoryDB) PutState(reviewerID uuid.UUID, state *domain.ReviewerState) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.states[reviewerID] = state.Clone()
}

// State returns a copy of the stored state, or nil.
func (db *MemoryDB) State(reviewerID uuid.UUID) *domain.ReviewerState {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s, ok := db.states[reviewerID]; ok {
		return s.Clone()
	}
	return nil
}

// Tasks returns the store.TaskStore view.
func (db *MemoryDB) Tasks() *MemoryTaskStore { return &MemoryTaskStore{db: db} }

// Reviewers returns the store.ReviewerStore view.
func (db *MemoryDB) Reviewers() *MemoryReviewerStore { return &MemoryReviewerStore{db: db} }

// States returns the store.ReviewerStateStore view.
func (db *MemoryDB) States() *MemoryStateStore { return &MemoryStateStore{db: db} }

// Annotations returns the store.AnnotationStore view.
func (db *MemoryDB) Annotations() *MemoryAnnotationStore { return &MemoryAnnotationStore{db: db} }

// failure must be called with mu held.
func (db *MemoryDB) failure(operation string) error {
	return db.failures[operation]
}

// reviewCount must be called with mu held.
func (db *MemoryDB) reviewCount(taskID int64) int {
	n := 0
	for k := range db.annotations {
		if k.taskID != taskID {
			continue
		}
		if r, ok := db.reviewers[k.reviewerID]; ok && r.TestType == db.targetTestType {
			n++
		}
	}
	return n
}

// annotated must be called with mu held.
func (db *MemoryDB) annotated(taskID int64, reviewerID uuid.UUID) bool {
	_, ok := db.annotations[annotationKey{taskID: taskID, reviewerID: reviewerID}]
	return ok
}

// taskView must be called with mu held.
func (db *MemoryDB) taskView(t domain.Task) domain.Task {
	t.SubjectUsername = db.subjects[t.SubjectID].username
	t.ReviewCount = db.reviewCount(t.ID)
	return t
}

// batchTasks must be called with mu held. Tasks come back in catalog order.
func (db *MemoryDB) batchTasks(key domain.BatchKey, keep func(domain.Task) bool) []domain.Task {
	out := []domain.Task{}
	for _, t := range db.tasks {
		if t.Batch() == key && keep(t) {
			out = append(out, db.taskView(t))
		}
	}
	slices.SortFunc(out, func(a, b domain.Task) int {
		return cmp.Or(
			cmp.Compare(a.ListNumber, b.ListNumber),
			cmp.Compare(a.LevelNumber, b.LevelNumber),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out
}

// MemoryTaskStore implements store.TaskStore.
type MemoryTaskStore struct{ db *MemoryDB }

var _ store.TaskStore = (*MemoryTaskStore)(nil)

// ListEligibleBatches implements store.TaskStore.
func (s *MemoryTaskStore) ListEligibleBatches(_ context.Context, reviewerID uuid.UUID) ([]domain.BatchSummary, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Tasks.ListEligibleBatches"); err != nil {
		return nil, err
	}

	counts := map[domain.BatchKey]int{}
	for _, t := range db.tasks {
		if db.subjects[t.SubjectID].testType != db.targetTestType || db.annotated(t.ID, reviewerID) {
			continue
		}
		// A batch counts tasks with at least one target review, not reviews.
		k := t.Batch()
		if _, ok := counts[k]; !ok {
			counts[k] = 0
		}
		if db.reviewCount(t.ID) > 0 {
			counts[k]++
		}
	}

	out := make([]domain.BatchSummary, 0, len(counts))
	for k, n := range counts {
		out = append(out, domain.BatchSummary{Subject: k.Subject, Project: k.Project, ReviewCount: n})
	}
	slices.SortFunc(out, func(a, b domain.BatchSummary) int {
		return cmp.Or(
			cmp.Compare(a.ReviewCount, b.ReviewCount),
			cmp.Compare(a.Subject, b.Subject),
			cmp.Compare(a.Project, b.Project),
		)
	})
	return out, nil
}

// ListUnreviewedTasks implements store.TaskStore.
func (s *MemoryTaskStore) ListUnreviewedTasks(_ context.Context, reviewerID uuid.UUID, key domain.BatchKey) ([]domain.Task, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Tasks.ListUnreviewedTasks"); err != nil {
		return nil, err
	}
	return db.batchTasks(key, func(t domain.Task) bool { return !db.annotated(t.ID, reviewerID) }), nil
}

// ListBatchTasks implements store.TaskStore.
func (s *MemoryTaskStore) ListBatchTasks(_ context.Context, key domain.BatchKey) ([]domain.Task, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Tasks.ListBatchTasks"); err != nil {
		return nil, err
	}
	return db.batchTasks(key, func(domain.Task) bool { return true }), nil
}

// ListReviewedTasks implements store.TaskStore.
func (s *MemoryTaskStore) ListReviewedTasks(_ context.Context, reviewerID uuid.UUID, key domain.BatchKey) ([]domain.Task, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Tasks.ListReviewedTasks"); err != nil {
		return nil, err
	}
	return db.batchTasks(key, func(t domain.Task) bool { return db.annotated(t.ID, reviewerID) }), nil
}

// GetTask implements store.TaskStore.
func (s *MemoryTaskStore) GetTask(_ context.Context, id int64) (*domain.Task, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Tasks.GetTask"); err != nil {
		return nil, err
	}
	t, ok := db.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	view := db.taskView(t)
	return &view, nil
}

// MemoryReviewerStore implements store.ReviewerStore.
type MemoryReviewerStore struct{ db *MemoryDB }

var _ store.ReviewerStore = (*MemoryReviewerStore)(nil)

// Create implements store.ReviewerStore.
func (s *MemoryReviewerStore) Create(_ context.Context, reviewer *domain.Reviewer) error {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Reviewers.Create"); err != nil {
		return err
	}
	if err := reviewer.Validate(); err != nil {
		return err
	}
	for _, r := range db.reviewers {
		if r.Username == reviewer.Username {
			return store.ErrUsernameExists
		}
	}
	c := *reviewer
	db.reviewers[reviewer.ID] = &c
	return nil
}

// GetByID implements store.ReviewerStore.
func (s *MemoryReviewerStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Reviewer, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if r, ok := db.reviewers[id]; ok {
		c := *r
		return &c, nil
	}
	return nil, store.ErrReviewerNotFound
}

// GetByUsername implements store.ReviewerStore.
func (s *MemoryReviewerStore) GetByUsername(_ context.Context, username string) (*domain.Reviewer, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Reviewers.GetByUsername"); err != nil {
		return nil, err
	}
	for _, r := range db.reviewers {
		if r.Username == username {
			c := *r
			return &c, nil
		}
	}
	return nil, store.ErrReviewerNotFound
}

// MemoryStateStore implements store.ReviewerStateStore.
type MemoryStateStore struct{ db *MemoryDB }

var _ store.ReviewerStateStore = (*MemoryStateStore)(nil)

// Get implements store.ReviewerStateStore.
func (s *MemoryStateStore) Get(_ context.Context, reviewerID uuid.UUID) (*domain.ReviewerState, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("States.Get"); err != nil {
		return nil, err
	}
	state, ok := db.states[reviewerID]
	if !ok {
		return nil, store.ErrReviewerStateNotFound
	}
	return state.Clone(), nil
}

// Update implements store.ReviewerStateStore.
func (s *MemoryStateStore) Update(
	_ context.Context,
	reviewerID uuid.UUID,
	fn store.StateMutation,
) (*domain.ReviewerState, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("States.Update"); err != nil {
		return nil, err
	}
	if _, ok := db.reviewers[reviewerID]; !ok {
		return nil, fmt.Errorf("%w: reviewer %s does not exist", store.ErrInvalidEntity, reviewerID)
	}

	state := domain.NewReviewerState()
	if existing, ok := db.states[reviewerID]; ok {
		state = existing.Clone()
	}
	if err := fn(state); err != nil {
		return nil, err
	}
	db.states[reviewerID] = state.Clone()
	db.StateWrites++
	return state, nil
}

// MemoryAnnotationStore implements store.AnnotationStore.
type MemoryAnnotationStore struct{ db *MemoryDB }

var _ store.AnnotationStore = (*MemoryAnnotationStore)(nil)

// Upsert implements store.AnnotationStore.
func (s *MemoryAnnotationStore) Upsert(_ context.Context, annotation *domain.Annotation) error {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Annotations.Upsert"); err != nil {
		return err
	}
	if err := annotation.Validate(); err != nil {
		return err
	}
	if _, ok := db.tasks[annotation.TaskID]; !ok {
		return fmt.Errorf("%w: task %d does not exist", store.ErrInvalidEntity, annotation.TaskID)
	}
	if _, ok := db.reviewers[annotation.ReviewerID]; !ok {
		return fmt.Errorf("%w: reviewer %s does not exist", store.ErrInvalidEntity, annotation.ReviewerID)
	}

	key := annotationKey{taskID: annotation.TaskID, reviewerID: annotation.ReviewerID}
	c := *annotation
	c.Judgments = slices.Clone(annotation.Judgments)
	if existing, ok := db.annotations[key]; ok {
		c.CreatedAt = existing.CreatedAt
	}
	db.annotations[key] = &c
	return nil
}

// Get implements store.AnnotationStore.
func (s *MemoryAnnotationStore) Get(_ context.Context, taskID int64, reviewerID uuid.UUID) (*domain.Annotation, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	a, ok := db.annotations[annotationKey{taskID: taskID, reviewerID: reviewerID}]
	if !ok {
		return nil, store.ErrAnnotationNotFound
	}
	c := *a
	c.Judgments = slices.Clone(a.Judgments)
	return &c, nil
}

// CountByReviewer implements store.AnnotationStore.
func (s *MemoryAnnotationStore) CountByReviewer(_ context.Context, reviewerID uuid.UUID) (int, error) {
	db := s.db
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.failure("Annotations.CountByReviewer"); err != nil {
		return 0, err
	}
	n := 0
	for k := range db.annotations {
		if k.reviewerID == reviewerID {
			n++
		}
	}
	return n, nil
}
