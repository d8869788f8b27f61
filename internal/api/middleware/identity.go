package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/phrazzld/jnd-review/internal/api/shared"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
)

// ReviewerHeader carries the username of an already authenticated reviewer,
// as set by the fronting proxy or session layer.
const ReviewerHeader = "X-Reviewer"

// RequireReviewer stores the caller's username in the request context.
// The header wins over the "username" query parameter. Requests without
// either are rejected with 401.
func RequireReviewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimSpace(r.Header.Get(ReviewerHeader))
		if username == "" {
			username = strings.TrimSpace(r.URL.Query().Get("username"))
		}
		if username == "" {
			logger.FromContextOrDefault(r.Context(), slog.Default()).DebugContext(r.Context(),
				"request without reviewer identity", slog.String("path", r.URL.Path))
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Reviewer identity required")
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.SetReviewer(r.Context(), username)))
	})
}
