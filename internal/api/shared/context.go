package shared

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is the type of request-scoped values set by the API layer.
type ContextKey string

const (
	// ReviewerContextKey holds the authenticated reviewer's username.
	ReviewerContextKey ContextKey = "reviewer"

	// TraceIDKey holds the request's trace ID.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the length of a trace ID in hex characters.
	TraceIDLength = 32
)

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID returns the context's trace ID, or "" if none was set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SetReviewer stores the reviewer's username in the context.
func SetReviewer(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ReviewerContextKey, username)
}

// GetReviewer returns the username stored by SetReviewer.
func GetReviewer(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(ReviewerContextKey).(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}

// generateTraceID returns a random 32-character hex string.
func generateTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
