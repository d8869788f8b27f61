package api

import (
	"github.com/google/uuid"
	"github.com/phrazzld/jnd-review/internal/domain"
)

// RegisterRequest is the body of POST /review/register.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Role     string `json:"role"     validate:"required,oneof=student audiologist"`
	// YearsPracticing is required for audiologists and must be absent for students.
	YearsPracticing *int   `json:"years_practicing,omitempty" validate:"omitempty,gte=0,lte=100"`
	TestType        string `json:"test_type,omitempty"        validate:"max=32"`
}

// ReviewerResponse describes a registered reviewer.
type ReviewerResponse struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Role            string    `json:"role"`
	YearsPracticing *int      `json:"years_practicing,omitempty"`
	TestType        string    `json:"test_type,omitempty"`
	// Created is false when the username already belonged to a reviewer.
	Created bool `json:"created"`
}

// StatusResponse is the body of fire-and-forget endpoints.
type StatusResponse struct {
	Status string `json:"status"`
}

func reviewerToResponse(r *domain.Reviewer, created bool) ReviewerResponse {
	return ReviewerResponse{
		ID:              r.ID,
		Username:        r.Username,
		Role:            string(r.Role),
		YearsPracticing: r.YearsPracticing,
		TestType:        r.TestType,
		Created:         created,
	}
}
