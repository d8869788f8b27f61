package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/jnd-review/internal/api/shared"
	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/service/review"
)

// ReviewService is the engine behind the review endpoints.
// It is implemented by review.Service.
type ReviewService interface {
	Next(ctx context.Context, username string) *review.Payload
	Submit(ctx context.Context, username string, sub review.Submission) *review.Payload
	TrackPlayed(ctx context.Context, username string, taskID int64) error
	Register(ctx context.Context, reg review.Registration) (*domain.Reviewer, bool, error)
}

// ReviewHandler serves the /review endpoints.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(service ReviewService, logger *slog.Logger) *ReviewHandler {
	if service == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("review service cannot be nil for ReviewHandler")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReviewHandler{
		service: service,
		logger:  logger.With(slog.String("component", "review_handler")),
	}
}

// Start handles GET /review/start. It always answers 200; failures are
// reported in the payload's error field.
func (h *ReviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	username, ok := getReviewerFromContext(w, r, log)
	if !ok {
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, h.service.Next(r.Context(), username))
}

// Result handles GET|POST /review/result. It records the judgment of the
// task in progress and answers with the next task. Malformed parameters
// are rejected with 400; everything else answers 200 with a payload.
func (h *ReviewHandler) Result(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	username, ok := getReviewerFromContext(w, r, log)
	if !ok {
		return
	}

	params, err := readParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	judgments, err := params.judgments()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	clientTaskID, err := params.taskID()
	if err != nil {
		log.DebugContext(r.Context(), "ignoring malformed client file id", slog.Any("error", err))
		clientTaskID = 0
	}

	payload := h.service.Submit(r.Context(), username, review.Submission{
		Judgments:    judgments,
		Unclear:      params.unclear(),
		ClientTaskID: clientTaskID,
	})
	shared.RespondWithJSON(w, r, http.StatusOK, payload)
}

// TrackPlayed handles GET|POST /review/track-played.
func (h *ReviewHandler) TrackPlayed(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	username, ok := getReviewerFromContext(w, r, log)
	if !ok {
		return
	}

	params, err := readParams(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	taskID, err := params.taskID()
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if taskID == 0 {
		HandleAPIError(w, r, review.ErrInvalidTaskID, "file_id is required")
		return
	}

	if err := h.service.TrackPlayed(r.Context(), username, taskID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{Status: "success"})
}

// Register handles POST /review/register. A new reviewer answers 201, a
// returning one 200.
func (h *ReviewHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req RegisterRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	reviewer, created, err := h.service.Register(r.Context(), review.Registration{
		Username:        req.Username,
		Role:            domain.Role(req.Role),
		YearsPracticing: req.YearsPracticing,
		TestType:        req.TestType,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		log.InfoContext(r.Context(), "reviewer registered", slog.String("username", reviewer.Username))
	}
	shared.RespondWithJSON(w, r, status, reviewerToResponse(reviewer, created))
}
