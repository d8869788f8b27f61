package uploads

import (
	"context"
	"fmt"

	"github.com/phrazzld/jnd-review/internal/config"
)

// Checker reports whether the artifact for a filename exists.
// An error means existence could not be determined; it never means "missing".
type Checker interface {
	Exists(ctx context.Context, filename string) (bool, error)
}

// New builds the checker selected by cfg.Backend.
func New(ctx context.Context, cfg config.UploadsConfig) (Checker, error) {
	switch cfg.Backend {
	case "dir":
		return NewDir(cfg.Dir), nil
	case "minio":
		return NewMinio(ctx, cfg.Minio)
	default:
		return nil, fmt.Errorf("unknown uploads backend %q", cfg.Backend)
	}
}
