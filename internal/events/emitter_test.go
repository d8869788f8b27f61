package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestInMemoryEventEmitter_OrderedDispatch(t *testing.T) {
	log, _ := logger.NewTestLogger()
	emitter := NewInMemoryEventEmitter(log)

	var order []string
	record := func(name string, err error) EventHandler {
		return HandlerFunc(func(ctx context.Context, event *ReviewEvent) error {
			order = append(order, name)
			return err
		})
	}
	firstErr := errors.New("first failure")
	emitter.RegisterHandler(record("a", nil))
	emitter.RegisterHandler(record("b", firstErr))
	emitter.RegisterHandler(record("c", errors.New("second failure")))

	event := NewReviewEvent(TypeBatchCompleted, testReviewer(), domain.BatchKey{Subject: 2, Project: "KWords"}, 0)
	err := emitter.EmitEvent(context.Background(), event)

	assert.Equal(t, []string{"a", "b", "c"}, order, "every handler runs, in registration order")
	assert.ErrorIs(t, err, firstErr)
}

func TestInMemoryEventEmitter_NoHandlers(t *testing.T) {
	log, _ := logger.NewTestLogger()
	emitter := NewInMemoryEventEmitter(log)

	event := NewReviewEvent(TypeBatchStarted, testReviewer(), domain.BatchKey{Subject: 2, Project: "KWords"}, 0)
	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}

func TestLogHandler(t *testing.T) {
	log, buf := logger.NewTestLogger()
	handler := NewLogHandler(log)

	event := NewReviewEvent(TypeAnnotationSubmitted, testReviewer(), domain.BatchKey{Subject: 2, Project: "KWords"}, 9)
	assert.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.True(t, buf.HasMessage(slog.LevelInfo, "review event"))
}
