package domain

import (
	"slices"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// TestInProgress tracks the batch a reviewer is currently working through.
// TotalFiles, FilesReviewed and CurrentFileNum are display caches; the
// authoritative counts are always recomputed from the task catalog.
type TestInProgress struct {
	Subject        int64  `json:"subject" validate:"gt=0"`
	Project        string `json:"project" validate:"required"`
	CurrentTaskID  int64  `json:"current_task_id" validate:"gt=0"`
	TotalFiles     int    `json:"total_files" validate:"gte=0"`
	FilesReviewed  int    `json:"files_reviewed" validate:"gte=0"`
	CurrentFileNum int    `json:"current_file_num" validate:"gte=0"`
}

// Key returns the batch being worked on.
func (t *TestInProgress) Key() BatchKey {
	return BatchKey{Subject: t.Subject, Project: t.Project}
}

// Validate checks the record's schema.
func (t *TestInProgress) Validate() error {
	return validate.Struct(t)
}

// ReviewerState is the persisted progress of one reviewer.
type ReviewerState struct {
	TestInProgress    *TestInProgress `json:"test_in_progress"`
	CompletedTests    []BatchKey      `json:"completed_tests"`
	RemainingTests    []BatchSummary  `json:"remaining_tests"`
	MostRecentSubject *int64          `json:"most_recent_subject"`
	TotalReviews      int             `json:"total_reviews"`
	PlayedAudio       []int64         `json:"played_audio"`
}

// NewReviewerState returns the state of a reviewer who has done nothing yet.
func NewReviewerState() *ReviewerState {
	return &ReviewerState{
		CompletedTests: []BatchKey{},
		RemainingTests: []BatchSummary{},
		PlayedAudio:    []int64{},
	}
}

// Clone returns a deep copy of the state.
func (s *ReviewerState) Clone() *ReviewerState {
	c := &ReviewerState{
		CompletedTests: slices.Clone(s.CompletedTests),
		RemainingTests: slices.Clone(s.RemainingTests),
		TotalReviews:   s.TotalReviews,
		PlayedAudio:    slices.Clone(s.PlayedAudio),
	}
	if s.TestInProgress != nil {
		tip := *s.TestInProgress
		c.TestInProgress = &tip
	}
	if s.MostRecentSubject != nil {
		subject := *s.MostRecentSubject
		c.MostRecentSubject = &subject
	}
	return c
}

// IsCompleted reports whether the reviewer has finished the batch.
func (s *ReviewerState) IsCompleted(key BatchKey) bool {
	return slices.Contains(s.CompletedTests, key)
}

// InProgress reports whether the batch is the one currently being worked on.
func (s *ReviewerState) InProgress(key BatchKey) bool {
	return s.TestInProgress != nil && s.TestInProgress.Key() == key
}

// AddCompleted appends the batch to the completed set if it is not there yet.
func (s *ReviewerState) AddCompleted(key BatchKey) {
	if !s.IsCompleted(key) {
		s.CompletedTests = append(s.CompletedTests, key)
	}
}

// SetMostRecentSubject records the subject of the last finished batch.
func (s *ReviewerState) SetMostRecentSubject(subject int64) {
	s.MostRecentSubject = &subject
}

// Start makes tip the batch in progress and drops it from the remaining cache.
func (s *ReviewerState) Start(tip TestInProgress) {
	s.TestInProgress = &tip
	s.RemoveRemaining(tip.Key())
}

// Complete marks the batch completed in a single step so that the batch is
// never both in progress and completed: it is added to the completed set,
// its subject becomes the most recent one, it leaves the remaining cache and,
// if it was in progress, the in-progress record is cleared.
func (s *ReviewerState) Complete(key BatchKey) {
	s.AddCompleted(key)
	s.SetMostRecentSubject(key.Subject)
	s.RemoveRemaining(key)
	if s.InProgress(key) {
		s.TestInProgress = nil
	}
}

// RemoveRemaining drops the batch from the remaining cache.
func (s *ReviewerState) RemoveRemaining(key BatchKey) {
	s.RemainingTests = WithoutBatch(s.RemainingTests, key)
}

// Eligible filters batches down to those the reviewer may still be assigned:
// anything completed or currently in progress is excluded.
func (s *ReviewerState) Eligible(batches []BatchSummary) []BatchSummary {
	out := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		key := b.Key()
		if s.IsCompleted(key) || s.InProgress(key) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// HasPlayed reports whether the task was played but not yet judged.
func (s *ReviewerState) HasPlayed(taskID int64) bool {
	return slices.Contains(s.PlayedAudio, taskID)
}

// AddPlayed records that the task was played. It reports whether the state changed.
func (s *ReviewerState) AddPlayed(taskID int64) bool {
	if s.HasPlayed(taskID) {
		return false
	}
	s.PlayedAudio = append(s.PlayedAudio, taskID)
	return true
}

// RemovePlayed forgets a played task. It reports whether the state changed.
func (s *ReviewerState) RemovePlayed(taskID int64) bool {
	i := slices.Index(s.PlayedAudio, taskID)
	if i < 0 {
		return false
	}
	s.PlayedAudio = slices.Delete(s.PlayedAudio, i, i+1)
	return true
}

// WithoutBatch returns a copy of batches with every entry for key removed.
func WithoutBatch(batches []BatchSummary, key BatchKey) []BatchSummary {
	out := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		if b.Key() != key {
			out = append(out, b)
		}
	}
	return out
}

// ValidBatchKeys drops malformed entries from a decoded completed list.
// It reports how many entries were dropped.
func ValidBatchKeys(keys []BatchKey) ([]BatchKey, int) {
	out := make([]BatchKey, 0, len(keys))
	for _, k := range keys {
		if validate.Struct(k) == nil && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	return out, len(keys) - len(out)
}

// ValidBatchSummaries drops malformed entries from a decoded remaining list.
// It reports how many entries were dropped.
func ValidBatchSummaries(batches []BatchSummary) ([]BatchSummary, int) {
	out := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		if validate.Struct(b) == nil {
			out = append(out, b)
		}
	}
	return out, len(batches) - len(out)
}
