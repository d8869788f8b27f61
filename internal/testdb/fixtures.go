package testdb

import (
	"context"
	"testing"

	"github.com/phrazzld/jnd-review/internal/store"
	"github.com/stretchr/testify/require"
)

// TaskFixture describes one catalog task to insert.
type TaskFixture struct {
	Project     string
	ListNumber  int
	LevelNumber int
	Answer      string
	Filename    string
}

// InsertSubject inserts a recorded participant and returns its ID.
func InsertSubject(t *testing.T, db store.DBTX, username, testType string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRowContext(context.Background(),
		`INSERT INTO subjects (username, test_type) VALUES ($1, $2) RETURNING id`,
		username, testType,
	).Scan(&id)
	require.NoError(t, err, "failed to insert subject")
	return id
}

// InsertTask inserts a trial and a task recorded by subjectID and returns the task ID.
func InsertTask(t *testing.T, db store.DBTX, subjectID int64, f TaskFixture) int64 {
	t.Helper()
	ctx := context.Background()

	var trialID int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO trials (project, list_number, level_number, answer) VALUES ($1, $2, $3, $4) RETURNING id`,
		f.Project, f.ListNumber, f.LevelNumber, f.Answer,
	).Scan(&trialID)
	require.NoError(t, err, "failed to insert trial")

	var taskID int64
	err = db.QueryRowContext(ctx,
		`INSERT INTO tasks (subject_id, trial_id, filename) VALUES ($1, $2, $3) RETURNING id`,
		subjectID, trialID, f.Filename,
	).Scan(&taskID)
	require.NoError(t, err, "failed to insert task")
	return taskID
}
