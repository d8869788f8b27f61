package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewAnnotation(t *testing.T) {
	t.Parallel()

	reviewerID := uuid.New()
	judgments := []bool{true, false, true}

	a, err := NewAnnotation(7, reviewerID, judgments, false)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// The annotation owns its judgments
	judgments[0] = false
	if !a.Judgments[0] {
		t.Error("Expected annotation to copy judgments")
	}

	if _, err := NewAnnotation(0, reviewerID, []bool{true}, false); err != ErrAnnotationTaskIDEmpty {
		t.Errorf("Expected %v, got %v", ErrAnnotationTaskIDEmpty, err)
	}
	if _, err := NewAnnotation(7, uuid.Nil, []bool{true}, false); err != ErrAnnotationReviewerIDEmpty {
		t.Errorf("Expected %v, got %v", ErrAnnotationReviewerIDEmpty, err)
	}
	if _, err := NewAnnotation(7, reviewerID, nil, false); err != ErrAnnotationJudgmentsEmpty {
		t.Errorf("Expected %v, got %v", ErrAnnotationJudgmentsEmpty, err)
	}
	if _, err := NewAnnotation(7, reviewerID, nil, true); err != nil {
		t.Errorf("Expected unclear annotation without judgments to be valid, got %v", err)
	}
}

func TestAnnotationSameJudgment(t *testing.T) {
	t.Parallel()

	reviewerID := uuid.New()
	a, _ := NewAnnotation(1, reviewerID, []bool{true, false}, false)
	b, _ := NewAnnotation(1, reviewerID, []bool{true, false}, false)

	if !a.SameJudgment(b) {
		t.Error("Expected identical annotations to match")
	}

	b.Unclear = true
	if a.SameJudgment(b) {
		t.Error("Expected unclear flag to matter")
	}

	c, _ := NewAnnotation(1, reviewerID, []bool{true, true}, false)
	if a.SameJudgment(c) {
		t.Error("Expected judgments to matter")
	}

	if a.SameJudgment(nil) {
		t.Error("Expected nil to never match")
	}
}
