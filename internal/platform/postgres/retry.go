package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/phrazzld/jnd-review/internal/platform/logger"
	"github.com/phrazzld/jnd-review/internal/store"
)

// RetryPolicy bounds the retry of transient failures.
type RetryPolicy struct {
	// Attempts is the number of retries after the first try.
	Attempts        int
	InitialInterval time.Duration
}

// DefaultRetryPolicy matches the configuration defaults.
var DefaultRetryPolicy = RetryPolicy{Attempts: 4, InitialInterval: 50 * time.Millisecond}

// NoRetry runs an operation once.
var NoRetry = RetryPolicy{}

// run executes op, retrying with exponential backoff while it fails with a
// transient error. Non-transient errors are returned at once. A transient error
// that outlasts every attempt is wrapped with store.ErrTransient.
func (p RetryPolicy) run(ctx context.Context, operation string, op func() error) error {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	exp.MaxElapsedTime = 0

	attempts := max(p.Attempts, 0)
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts)), ctx)

	try := 0
	err := backoff.Retry(func() error {
		try++
		err := op()
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		logger.FromContext(ctx).Debug("transient store failure",
			slog.String("operation", operation),
			slog.Int("attempt", try),
			slog.Any("error", err))
		return err
	}, policy)

	if err != nil && IsTransient(err) {
		return fmt.Errorf("%w: %s gave up after %d attempts: %v", store.ErrTransient, operation, try, err)
	}
	return err
}
