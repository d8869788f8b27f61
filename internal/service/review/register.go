package review

import (
	"context"
	"errors"
	"log/slog"

	"github.com/phrazzld/jnd-review/internal/domain"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/store"
)

// Registration is the information a reviewer gives on first login.
type Registration struct {
	Username        string
	Role            domain.Role
	YearsPracticing *int
	TestType        string
}

// Register returns the reviewer for a username, creating it on first login.
// Throwaway test names always create a fresh reviewer.
func (s *Service) Register(ctx context.Context, reg Registration) (*domain.Reviewer, bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	name := domain.NormalizeUsername(reg.Username)
	if !domain.ValidUsername(name) {
		return nil, false, domain.NewValidationError("username", "is invalid", domain.ErrInvalidUsername)
	}

	if domain.IsThrowawayUsername(name) {
		name = domain.ThrowawayUsername(name)
	} else {
		existing, err := s.reviewers.GetByUsername(ctx, name)
		if err == nil {
			log.DebugContext(ctx, "returning reviewer logged in", slog.String("username", name))
			return existing, false, nil
		}
		if !store.IsNotFoundError(err) {
			return nil, false, NewRegisterError("failed to look up reviewer", err)
		}
	}

	reviewer, err := domain.NewReviewer(name, reg.Role, reg.YearsPracticing, reg.TestType)
	if err != nil {
		return nil, false, err
	}

	if err := s.reviewers.Create(ctx, reviewer); err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			// Another request registered the same name first.
			existing, lookupErr := s.reviewers.GetByUsername(ctx, name)
			if lookupErr == nil {
				return existing, false, nil
			}
			return nil, false, NewRegisterError("failed to load concurrently registered reviewer", lookupErr)
		}
		return nil, false, NewRegisterError("failed to create reviewer", err)
	}

	log.InfoContext(ctx, "registered reviewer",
		slog.String("username", reviewer.Username),
		slog.String("role", string(reviewer.Role)))
	return reviewer, true, nil
}
