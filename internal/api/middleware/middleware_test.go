package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/jnd-review/internal/api/shared"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	base, buf := logger.NewTestLogger()

	var traceID string
	handler := TraceMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).InfoContext(r.Context(), "inside handler")
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/review/start", nil))

	require.Len(t, traceID, shared.TraceIDLength)
	assert.True(t, buf.HasMessage(slog.LevelDebug, "request started"))

	entries, err := buf.Entries()
	require.NoError(t, err)
	var found bool
	for _, e := range entries {
		if e["msg"] == "inside handler" {
			found = true
			assert.Equal(t, traceID, e["trace_id"], "handler logger carries the trace id")
		}
	}
	assert.True(t, found)
}

func TestRequireReviewer(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		target     string
		wantStatus int
		wantName   string
	}{
		{name: "header", header: "alice", target: "/review/start", wantStatus: http.StatusOK, wantName: "alice"},
		{name: "query", target: "/review/start?username=bob", wantStatus: http.StatusOK, wantName: "bob"},
		{name: "header wins", header: "alice", target: "/review/start?username=bob", wantStatus: http.StatusOK, wantName: "alice"},
		{name: "blank header falls back", header: "  ", target: "/review/start?username=bob", wantStatus: http.StatusOK, wantName: "bob"},
		{name: "missing", target: "/review/start", wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := RequireReviewer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = shared.GetReviewer(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				req.Header.Set(ReviewerHeader, tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, tc.wantName, got)
			if tc.wantStatus == http.StatusUnauthorized {
				var resp shared.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "Reviewer identity required", resp.Error)
			}
		})
	}
}
