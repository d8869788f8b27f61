package domain

import "fmt"

// UnknownProject is reported when a task's trial has no project name.
const UnknownProject = "Unknown"

// BatchKey identifies a batch ("test"): every task recorded by one subject
// under one project. Batches are not stored; they are derived from tasks.
type BatchKey struct {
	Subject int64  `json:"subject" validate:"gt=0"`
	Project string `json:"project" validate:"required"`
}

// String renders the key for logs.
func (k BatchKey) String() string {
	return fmt.Sprintf("%d/%s", k.Subject, k.Project)
}

// BatchSummary is an eligible batch together with its fairness count: the
// number of annotations made on its tasks by target-type reviewers.
type BatchSummary struct {
	Subject     int64  `json:"subject" validate:"gt=0"`
	Project     string `json:"project" validate:"required"`
	ReviewCount int    `json:"total_reviews" validate:"gte=0"`
}

// Key returns the batch identity of the summary.
func (b BatchSummary) Key() BatchKey {
	return BatchKey{Subject: b.Subject, Project: b.Project}
}

// Task is one recording awaiting a keyword-correctness judgment.
// Tasks are immutable once created.
type Task struct {
	ID              int64  `json:"id"`
	SubjectID       int64  `json:"participant_id"`
	SubjectUsername string `json:"username"`
	Project         string `json:"test"`
	Filename        string `json:"filename"`
	Answer          string `json:"answer"`
	ListNumber      int    `json:"list_number"`
	LevelNumber     int    `json:"level_number"`
	// ReviewCount is the number of target-type annotations on this task.
	ReviewCount int `json:"review_count"`
}

// Batch returns the key of the batch the task belongs to.
func (t *Task) Batch() BatchKey {
	return BatchKey{Subject: t.SubjectID, Project: t.Project}
}

// ProjectName returns the project, or UnknownProject when it is empty.
func (t *Task) ProjectName() string {
	if t.Project == "" {
		return UnknownProject
	}
	return t.Project
}

// IndexOfTask returns the position of the task with the given ID, or -1.
func IndexOfTask(tasks []Task, id int64) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
