package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/store"
	"github.com/stretchr/testify/mock"
)

// TestifyMockTaskStore is a testify mock of store.TaskStore.
type TestifyMockTaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*TestifyMockTaskStore)(nil)

// ListEligibleBatches implements store.TaskStore.
func (m *TestifyMockTaskStore) ListEligibleBatches(ctx context.Context, reviewerID uuid.UUID) ([]domain.BatchSummary, error) {
	args := m.Called(ctx, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BatchSummary), args.Error(1)
}

// ListUnreviewedTasks implements store.TaskStore.
func (m *TestifyMockTaskStore) ListUnreviewedTasks(
	ctx context.Context,
	reviewerID uuid.UUID,
	key domain.BatchKey,
) ([]domain.Task, error) {
	args := m.Called(ctx, reviewerID, key)
	return tasksArg(args)
}

// ListBatchTasks implements store.TaskStore.
func (m *TestifyMockTaskStore) ListBatchTasks(ctx context.Context, key domain.BatchKey) ([]domain.Task, error) {
	args := m.Called(ctx, key)
	return tasksArg(args)
}

// ListReviewedTasks implements store.TaskStore.
func (m *TestifyMockTaskStore) ListReviewedTasks(
	ctx context.Context,
	reviewerID uuid.UUID,
	key domain.BatchKey,
) ([]domain.Task, error) {
	args := m.Called(ctx, reviewerID, key)
	return tasksArg(args)
}

// GetTask implements store.TaskStore.
func (m *TestifyMockTaskStore) GetTask(ctx context.Context, id int64) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

func tasksArg(args mock.Arguments) ([]domain.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Task), args.Error(1)
}
