package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/jnd-review/internal/api"
	"github.com/phrazzld/jnd-review/internal/config"
	"github.com/phrazzld/jnd-review/internal/events"
	"github.com/phrazzld/jnd-review/internal/platform/postgres"
	"github.com/phrazzld/jnd-review/internal/platform/uploads"
	"github.com/phrazzld/jnd-review/internal/service/catalog"
	"github.com/phrazzld/jnd-review/internal/service/review"
	"github.com/phrazzld/jnd-review/internal/store"
)

// application holds the shared dependencies of the server.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	reviewers   store.ReviewerStore
	states      store.ReviewerStateStore
	annotations store.AnnotationStore
	tasks       store.TaskStore

	artifacts     uploads.Checker
	eventEmitter  *events.InMemoryEventEmitter
	reviewService api.ReviewService
}

// newApplication wires stores, the artifact checker and the review engine.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	retry := postgres.RetryPolicy{
		Attempts:        cfg.Database.RetryAttempts,
		InitialInterval: cfg.Database.RetryInitialInterval,
	}
	app.reviewers = postgres.NewPostgresReviewerStore(db)
	app.states = postgres.NewPostgresReviewerStateStore(db, retry)
	app.annotations = postgres.NewPostgresAnnotationStore(db, retry)
	app.tasks = postgres.NewPostgresTaskStore(db, cfg.Review.TargetTestType)

	var err error
	app.artifacts, err = uploads.New(ctx, cfg.Uploads)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize uploads backend: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(events.NewLogHandler(logger))

	app.reviewService, err = newReviewService(app, review.NewSelectionPolicy(cfg.Review))
	if err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

func newReviewService(app *application, policy *review.SelectionPolicy) (*review.Service, error) {
	cat, err := catalog.New(app.tasks, app.artifacts, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task catalog: %w", err)
	}

	var emitter events.EventEmitter
	if app.eventEmitter != nil {
		emitter = app.eventEmitter
	}

	svc, err := review.NewService(review.Dependencies{
		Catalog:         cat,
		Reviewers:       app.reviewers,
		States:          app.states,
		Annotations:     app.annotations,
		Events:          emitter,
		Policy:          policy,
		UploadURLPrefix: app.config.Uploads.URLPrefix,
		Logger:          app.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create review service: %w", err)
	}
	return svc, nil
}

// Run serves HTTP until the context is canceled or a shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (app *application) cleanup() {
	if app.db != nil {
		closeDatabase(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}
