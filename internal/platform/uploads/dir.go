package uploads

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Dir checks artifacts in a local directory.
type Dir struct {
	root string
}

// NewDir creates a checker rooted at root.
func NewDir(root string) *Dir {
	return &Dir{root: root}
}

// Exists implements Checker. Names that escape the root are reported missing.
func (d *Dir) Exists(_ context.Context, filename string) (bool, error) {
	if filename == "" || !filepath.IsLocal(filename) {
		return false, nil
	}

	info, err := os.Stat(filepath.Join(d.root, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat upload %q: %w", filename, err)
	}
	return info.Mode().IsRegular(), nil
}
