package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/phrazzld/jnd-review/internal/api/shared"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/service/review"
)

// getReviewerFromContext returns the username placed in the context by
// middleware.RequireReviewer, writing a 401 if it is missing.
func getReviewerFromContext(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	username, ok := shared.GetReviewer(r.Context())
	if !ok {
		if log == nil {
			log = logger.FromContextOrDefault(r.Context(), slog.Default())
		}
		log.WarnContext(r.Context(), "reviewer identity not found in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "Reviewer identity required")
		return "", false
	}
	return username, true
}

// requestParams merges the request's query string, form body and JSON
// body. Later sources fill only keys the earlier ones left empty.
type requestParams struct {
	values map[string]string
	body   map[string]json.RawMessage
}

func readParams(r *http.Request) (*requestParams, error) {
	p := &requestParams{values: map[string]string{}}

	if shared.IsJSON(r) && r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, shared.MaxBodyBytes)).Decode(&p.body); err != nil {
			return nil, domain.NewValidationError("body", "is not a JSON object", domain.ErrInvalidFormat)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, domain.NewValidationError("body", "is not a valid form", domain.ErrInvalidFormat)
	}

	for key, vals := range r.URL.Query() {
		if len(vals) > 0 {
			p.values[key] = vals[0]
		}
	}
	for key, vals := range r.PostForm {
		if _, ok := p.values[key]; !ok && len(vals) > 0 {
			p.values[key] = vals[0]
		}
	}
	return p, nil
}

// raw returns the JSON text of a parameter. Query and form values are
// returned verbatim; JSON body values keep their encoding.
func (p *requestParams) raw(key string) (string, bool) {
	if v, ok := p.values[key]; ok {
		return v, true
	}
	if v, ok := p.body[key]; ok {
		return string(v), true
	}
	return "", false
}

// judgments parses the "annotations" parameter, a JSON list whose items are
// coerced to booleans by truthiness.
func (p *requestParams) judgments() ([]bool, error) {
	raw, ok := p.raw("annotations")
	if !ok {
		return nil, domain.NewValidationError("annotations", "is required", domain.ErrValidation)
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, domain.NewValidationError("annotations", "must be a JSON list", domain.ErrInvalidFormat)
	}

	out := make([]bool, len(items))
	for i, item := range items {
		out[i] = truthy(item)
	}
	return out, nil
}

// unclear parses the "unclear" flag. Only "true", "1" and "yes" are true.
func (p *requestParams) unclear() bool {
	raw, ok := p.raw("unclear")
	if !ok {
		return false
	}
	v := strings.ToLower(strings.Trim(strings.TrimSpace(raw), `"`))
	return v == "true" || v == "1" || v == "yes"
}

// taskID parses "file_id", falling back to "ref". Zero means absent.
func (p *requestParams) taskID() (int64, error) {
	for _, key := range []string{"file_id", "ref"} {
		raw, ok := p.raw(key)
		if !ok || strings.TrimSpace(raw) == "" {
			continue
		}
		id, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(raw), `"`), 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: %s=%q", review.ErrInvalidTaskID, key, raw)
		}
		return id, nil
	}
	return 0, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
