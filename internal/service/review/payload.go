package review

import (
	"path"
	"strings"

	"github.com/phrazzld/jnd-review/internal/domain"
)

// DefaultUploadURLPrefix is where recordings are served when no prefix is configured.
const DefaultUploadURLPrefix = "/jnd/api/review/upload/"

// Payload is the response to every "next task" and "submit" request.
// Empty strings and a nil TaskDetails mean no task is available.
type Payload struct {
	Cur    string         `json:"cur"`
	Next   map[int]string `json:"next"`
	Answer [2]string      `json:"answer"`
	Name   string         `json:"name"`

	*TaskDetails

	Error string `json:"error,omitempty"`
}

// TaskDetails describes the served task and the reviewer's progress.
type TaskDetails struct {
	ParticipantID int64  `json:"participant_id"`
	Username      string `json:"username"`
	Test          string `json:"test"`
	ListNumber    int    `json:"list_number"`
	LevelNumber   int    `json:"level_number"`
	// Position is the reviewer's total number of annotations.
	Position       int   `json:"position"`
	ReviewCount    int   `json:"review_count"`
	AlreadyPlayed  bool  `json:"already_played"`
	FileID         int64 `json:"file_id"`
	CurrentFileNum *int  `json:"current_file_num,omitempty"`
	TotalFiles     *int  `json:"total_files,omitempty"`
}

// HasTask reports whether the payload carries a task.
func (p *Payload) HasTask() bool {
	return p.TaskDetails != nil
}

// EmptyPayload returns the "no task available" shape.
func EmptyPayload(name string) *Payload {
	return &Payload{
		Next:   map[int]string{1: ""},
		Answer: [2]string{"", ""},
		Name:   name,
	}
}

// ErrorPayload returns the empty-task shape carrying the error message.
func ErrorPayload(name string, err error) *Payload {
	p := EmptyPayload(name)
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

// UploadURL maps a task filename to the URL its recording is served from.
// Placeholder names starting with "FOREIGN" or "[" have no recording.
func UploadURL(prefix, filename string) string {
	if filename == "" {
		return ""
	}
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	if strings.HasPrefix(name, "FOREIGN") || strings.HasPrefix(name, "[") {
		return ""
	}
	if !strings.HasSuffix(name, ".wav") {
		name += ".wav"
	}
	if prefix == "" {
		prefix = DefaultUploadURLPrefix
	}
	return prefix + name
}

// assignment is a task chosen for a reviewer, with its position in the batch.
type assignment struct {
	tasks      []domain.Task
	index      int
	totalFiles int
	reviewed   int
}

func (a *assignment) task() *domain.Task {
	return &a.tasks[a.index]
}

// fileNum is the 1-based position of the task within the whole batch.
func (a *assignment) fileNum() int {
	return a.reviewed + a.index + 1
}

func (a *assignment) progress() domain.TestInProgress {
	t := a.task()
	return domain.TestInProgress{
		Subject:        t.SubjectID,
		Project:        t.Project,
		CurrentTaskID:  t.ID,
		TotalFiles:     a.totalFiles,
		FilesReviewed:  a.reviewed,
		CurrentFileNum: a.fileNum(),
	}
}

func buildPayload(prefix, name string, a *assignment, state *domain.ReviewerState) *Payload {
	p := EmptyPayload(name)
	if a == nil {
		return p
	}
	t := a.task()
	p.Cur = UploadURL(prefix, t.Filename)
	if a.index+1 < len(a.tasks) {
		p.Next[1] = UploadURL(prefix, a.tasks[a.index+1].Filename)
	}
	p.Answer = [2]string{t.Answer, ""}

	fileNum, total := a.fileNum(), a.totalFiles
	p.TaskDetails = &TaskDetails{
		ParticipantID:  t.SubjectID,
		Username:       t.SubjectUsername,
		Test:           t.ProjectName(),
		ListNumber:     t.ListNumber,
		LevelNumber:    t.LevelNumber,
		Position:       state.TotalReviews,
		ReviewCount:    t.ReviewCount,
		AlreadyPlayed:  state.HasPlayed(t.ID),
		FileID:         t.ID,
		CurrentFileNum: &fileNum,
		TotalFiles:     &total,
	}
	return p
}
