package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockArtifactChecker reports every artifact as present unless its filename
// is listed in Missing. ExistsFn overrides that behaviour when set.
type MockArtifactChecker struct {
	mu       sync.Mutex
	missing  map[string]bool
	ExistsFn func(ctx context.Context, filename string) (bool, error)
	Calls    int
}

// NewMockArtifactChecker creates a checker with the given filenames missing.
func NewMockArtifactChecker(missing ...string) *MockArtifactChecker {
	m := &MockArtifactChecker{missing: map[string]bool{}}
	for _, f := range missing {
		m.missing[f] = true
	}
	return m
}

// SetMissing marks a filename as missing (or present again).
func (m *MockArtifactChecker) SetMissing(filename string, missing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing == nil {
		m.missing = map[string]bool{}
	}
	m.missing[filename] = missing
}

// Exists implements catalog.ArtifactChecker.
func (m *MockArtifactChecker) Exists(ctx context.Context, filename string) (bool, error) {
	m.mu.Lock()
	m.Calls++
	fn := m.ExistsFn
	missing := m.missing[filename]
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, filename)
	}
	return !missing, nil
}

// TestifyMockArtifactChecker is a testify mock of catalog.ArtifactChecker.
type TestifyMockArtifactChecker struct {
	mock.Mock
}

// Exists implements catalog.ArtifactChecker.
func (m *TestifyMockArtifactChecker) Exists(ctx context.Context, filename string) (bool, error) {
	args := m.Called(ctx, filename)
	return args.Bool(0), args.Error(1)
}
