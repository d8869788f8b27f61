package review

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewSubmitAnnotationError("failed to save annotation", cause)

	assert.Equal(t, "submit_annotation operation failed: failed to save annotation: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	bare := &ServiceError{Operation: "next_task", Message: "no catalog"}
	assert.Equal(t, "next_task operation failed: no catalog", bare.Error())
	assert.Equal(t, "next_task", NewNextTaskError("x", nil).Operation)
	assert.Equal(t, "register", NewRegisterError("x", nil).Operation)
	assert.Equal(t, "track_played", NewTrackPlayedError("x", nil).Operation)
}

func TestReferentialIntegrityError(t *testing.T) {
	t.Parallel()

	reviewerID := uuid.MustParse("0b7f0d2e-5d43-4b39-9a0b-6a1d6b0c8f11")
	cause := errors.New("fk violation")

	tests := []struct {
		name string
		err  *ReferentialIntegrityError
		want string
	}{
		{
			name: "missing task",
			err:  &ReferentialIntegrityError{TaskID: 4, ReviewerID: reviewerID, ReviewerExists: true, Err: cause},
			want: "annotation references missing task 4 (table tasks)",
		},
		{
			name: "missing both",
			err:  &ReferentialIntegrityError{TaskID: 4, ReviewerID: reviewerID},
			want: "annotation references missing task 4 (table tasks) and reviewer " + reviewerID.String() + " (table reviewers)",
		},
		{
			name: "both present",
			err:  &ReferentialIntegrityError{TaskID: 4, ReviewerID: reviewerID, TaskExists: true, ReviewerExists: true},
			want: "annotation of task 4 by reviewer " + reviewerID.String() + " violates a foreign key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.ErrorIs(t, tt.err, store.ErrInvalidEntity)
		})
	}

	assert.ErrorIs(t, tests[0].err, cause)
}
