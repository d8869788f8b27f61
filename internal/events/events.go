package events

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// Review lifecycle event types
const (
	TypeBatchStarted        = "batch.started"
	TypeAnnotationSubmitted = "annotation.submitted"
	TypeBatchCompleted      = "batch.completed"
)

// ReviewEvent describes one step of a reviewer's progress.
type ReviewEvent struct {
	// ID is a unique identifier for this event
	ID   uuid.UUID `json:"id"`
	Type string    `json:"type"`

	ReviewerID uuid.UUID       `json:"reviewer_id"`
	Username   string          `json:"username"`
	Batch      domain.BatchKey `json:"batch"`
	// TaskID is zero for batch-level events.
	TaskID int64 `json:"task_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewReviewEvent creates a ReviewEvent with a fresh ID.
func NewReviewEvent(eventType string, reviewer *domain.Reviewer, batch domain.BatchKey, taskID int64) *ReviewEvent {
	return &ReviewEvent{
		ID:         uuid.New(),
		Type:       eventType,
		ReviewerID: reviewer.ID,
		Username:   reviewer.Username,
		Batch:      batch,
		TaskID:     taskID,
		CreatedAt:  time.Now().UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	HandleEvent(ctx context.Context, event *ReviewEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows the review service to publish events without knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *ReviewEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *ReviewEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *ReviewEvent) error {
	return f(ctx, event)
}

// ForProjects returns a handler that only forwards events whose batch belongs
// to one of the named projects.
func ForProjects(handler EventHandler, projects ...string) EventHandler {
	allowed := slices.Clone(projects)
	return HandlerFunc(func(ctx context.Context, event *ReviewEvent) error {
		if !slices.Contains(allowed, event.Batch.Project) {
			return nil
		}
		return handler.HandleEvent(ctx, event)
	})
}
