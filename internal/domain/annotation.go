package domain

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Annotation validation errors
var (
	ErrAnnotationTaskIDEmpty     = errors.New("annotation task ID cannot be empty")
	ErrAnnotationReviewerIDEmpty = errors.New("annotation reviewer ID cannot be empty")
	ErrAnnotationJudgmentsEmpty  = errors.New("annotation must judge at least one keyword unless marked unclear")
)

// Annotation is a reviewer's judgment of one task: one boolean per keyword of
// the expected answer, plus a flag for recordings too unclear to judge.
// There is at most one annotation per (task, reviewer); resubmission overwrites.
type Annotation struct {
	TaskID     int64     `json:"task_id"`
	ReviewerID uuid.UUID `json:"reviewer_id"`
	Judgments  []bool    `json:"judgments"`
	Unclear    bool      `json:"unclear"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAnnotation creates a validated Annotation.
func NewAnnotation(taskID int64, reviewerID uuid.UUID, judgments []bool, unclear bool) (*Annotation, error) {
	now := time.Now().UTC()
	a := &Annotation{
		TaskID:     taskID,
		ReviewerID: reviewerID,
		Judgments:  slices.Clone(judgments),
		Unclear:    unclear,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// Validate checks if the Annotation has valid data.
func (a *Annotation) Validate() error {
	if a.TaskID <= 0 {
		return ErrAnnotationTaskIDEmpty
	}
	if a.ReviewerID == uuid.Nil {
		return ErrAnnotationReviewerIDEmpty
	}
	if len(a.Judgments) == 0 && !a.Unclear {
		return ErrAnnotationJudgmentsEmpty
	}
	return nil
}

// SameJudgment reports whether two annotations carry identical data for the
// same (task, reviewer) pair. Timestamps are ignored.
func (a *Annotation) SameJudgment(other *Annotation) bool {
	if other == nil {
		return false
	}
	return a.TaskID == other.TaskID &&
		a.ReviewerID == other.ReviewerID &&
		a.Unclear == other.Unclear &&
		slices.Equal(a.Judgments, other.Judgments)
}
