package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/jnd-review/internal/api"
	apiMiddleware "github.com/phrazzld/jnd-review/internal/api/middleware"
)

// setupRouter builds the HTTP router for the review endpoints.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	reviewHandler := api.NewReviewHandler(app.reviewService, app.logger)

	r.Route("/review", func(r chi.Router) {
		r.Post("/register", reviewHandler.Register)

		r.Group(func(r chi.Router) {
			r.Use(apiMiddleware.RequireReviewer)

			r.Get("/start", reviewHandler.Start)
			r.Get("/result", reviewHandler.Result)
			r.Post("/result", reviewHandler.Result)
			r.Get("/track-played", reviewHandler.TrackPlayed)
			r.Post("/track-played", reviewHandler.TrackPlayed)
		})
	})

	r.Get("/health", app.handleHealth)

	return r
}

func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	if app.db != nil {
		if err := pingDatabase(r.Context(), app.db); err != nil {
			app.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		app.logger.Error("failed to write health check response", "error", err)
	}
}
