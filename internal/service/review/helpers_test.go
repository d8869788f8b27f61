package review_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/mocks"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/service/catalog"
	"github.com/phrazzld/jnd-review/internal/service/review"
	"github.com/phrazzld/jnd-review/internal/store"
	"github.com/stretchr/testify/require"
)

const targetTestType = "patient"

// harness wires a Service to in-memory stores.
type harness struct {
	db        *mocks.MemoryDB
	artifacts *mocks.MockArtifactChecker
	events    *mocks.EventRecorder
	logs      *logger.TestLogBuffer
	svc       *review.Service
	picks     []int
}

type option func(*review.Dependencies)

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	h := &harness{
		db:        mocks.NewMemoryDB(targetTestType),
		artifacts: mocks.NewMockArtifactChecker(),
		events:    &mocks.EventRecorder{},
	}
	log, buf := logger.NewTestLogger()
	h.logs = buf

	cat, err := catalog.New(h.db.Tasks(), h.artifacts, log)
	require.NoError(t, err)

	policy := &review.SelectionPolicy{AvoidRepeatSubject: true, RandomTieBreak: true}
	deps := review.Dependencies{
		Catalog:     cat,
		Reviewers:   h.db.Reviewers(),
		States:      h.db.States(),
		Annotations: h.db.Annotations(),
		Events:      h.events,
		Policy: policy.WithPicker(func(n int) int {
			h.picks = append(h.picks, n)
			return 0
		}),
		Logger: log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	h.svc, err = review.NewService(deps)
	require.NoError(t, err)
	return h
}

// addBatch adds n tasks for a patient subject, with ids starting at firstID.
func (h *harness) addBatch(subject int64, project string, n int, firstID int64) []int64 {
	h.db.AddSubject(subject, fmt.Sprintf("subject-%d", subject), targetTestType)
	ids := make([]int64, n)
	for i := range n {
		id := firstID + int64(i)
		ids[i] = id
		h.db.AddTask(domain.Task{
			ID:          id,
			SubjectID:   subject,
			Project:     project,
			Filename:    fmt.Sprintf("s%d_%s_%d.wav", subject, project, i+1),
			Answer:      fmt.Sprintf("answer %d", i+1),
			ListNumber:  1,
			LevelNumber: i + 1,
		})
	}
	return ids
}

func (h *harness) register(t *testing.T, username string) *domain.Reviewer {
	t.Helper()
	r, created, err := h.svc.Register(context.Background(), review.Registration{
		Username: username,
		Role:     domain.RoleStudent,
		TestType: targetTestType,
	})
	require.NoError(t, err)
	require.True(t, created)
	return r
}

// annotate stores an annotation directly, as another session would.
func (h *harness) annotate(t *testing.T, reviewerID uuid.UUID, taskID int64) {
	t.Helper()
	a, err := domain.NewAnnotation(taskID, reviewerID, []bool{true}, false)
	require.NoError(t, err)
	require.NoError(t, h.db.Annotations().Upsert(context.Background(), a))
}

func (h *harness) isAnnotated(t *testing.T, reviewerID uuid.UUID, taskID int64) bool {
	t.Helper()
	_, err := h.db.Annotations().Get(context.Background(), taskID, reviewerID)
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, store.ErrAnnotationNotFound)
	return false
}

func judge(judgments ...bool) review.Submission {
	return review.Submission{Judgments: judgments}
}

func fileNum(p *review.Payload) int {
	if p.TaskDetails == nil || p.CurrentFileNum == nil {
		return 0
	}
	return *p.CurrentFileNum
}

func totalFiles(p *review.Payload) int {
	if p.TaskDetails == nil || p.TotalFiles == nil {
		return 0
	}
	return *p.TotalFiles
}
