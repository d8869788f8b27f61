package domain

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Role is the professional category a reviewer registered under.
type Role string

// Possible reviewer roles
const (
	RoleStudent     Role = "student"
	RoleAudiologist Role = "audiologist"
)

// MaxUsernameLength is the longest username accepted at registration.
const MaxUsernameLength = 512

// MaxYearsPracticing bounds the years-of-practice an audiologist may report.
const MaxYearsPracticing = 100

// Reviewer validation errors
var (
	ErrReviewerIDEmpty       = errors.New("reviewer ID cannot be empty")
	ErrInvalidUsername       = errors.New("invalid username")
	ErrInvalidRole           = errors.New("role must be student or audiologist")
	ErrYearsRequired         = errors.New("years of practice is required for certified audiologists")
	ErrYearsNotAllowed       = errors.New("years of practice only applies to certified audiologists")
	ErrYearsPracticingBounds = errors.New("years of practice must be between 0 and 100")
)

// Reviewer is a human judge who labels task recordings.
// Reviewers are created on first registration and never deleted.
type Reviewer struct {
	ID              uuid.UUID `json:"id"`
	Username        string    `json:"username"`
	Role            Role      `json:"role"`
	YearsPracticing *int      `json:"years_practicing,omitempty"`
	// TestType is the test-type flag used by the fairness count; only
	// annotations by reviewers of the configured target type count toward
	// a batch's review_count.
	TestType  string    `json:"test_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewReviewer creates a Reviewer with a fresh ID. The username is normalized
// with NormalizeUsername before validation.
func NewReviewer(username string, role Role, yearsPracticing *int, testType string) (*Reviewer, error) {
	now := time.Now().UTC()
	r := &Reviewer{
		ID:              uuid.New(),
		Username:        NormalizeUsername(username),
		Role:            role,
		YearsPracticing: yearsPracticing,
		TestType:        testType,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	return r, nil
}

// Validate checks if the Reviewer has valid data.
func (r *Reviewer) Validate() error {
	if r.ID == uuid.Nil {
		return ErrReviewerIDEmpty
	}

	if !ValidUsername(r.Username) {
		return NewValidationError("username", "is invalid", ErrInvalidUsername)
	}

	switch r.Role {
	case RoleAudiologist:
		if r.YearsPracticing == nil {
			return NewValidationError("years_practicing", "is required", ErrYearsRequired)
		}
		if *r.YearsPracticing < 0 || *r.YearsPracticing > MaxYearsPracticing {
			return NewValidationError("years_practicing", "is out of range", ErrYearsPracticingBounds)
		}
	case RoleStudent:
		if r.YearsPracticing != nil {
			return NewValidationError("years_practicing", "must be empty", ErrYearsNotAllowed)
		}
	default:
		return NewValidationError("role", "is invalid", ErrInvalidRole)
	}

	return nil
}

// NormalizeUsername trims surrounding whitespace and lower-cases the name.
// Usernames are unique after normalization.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether the name is 1..MaxUsernameLength characters of
// letters, numbers, connector or dash punctuation and spaces. '@' and '.' are
// also allowed so email addresses work as usernames.
func ValidUsername(username string) bool {
	n := utf8.RuneCountInString(username)
	if n == 0 || n > MaxUsernameLength {
		return false
	}

	for _, c := range username {
		if c == '@' || c == '.' {
			continue
		}
		if !unicode.In(c, unicode.L, unicode.Nd, unicode.Nl, unicode.Pc, unicode.Pd, unicode.Zs) {
			return false
		}
	}

	return true
}

// IsThrowawayUsername reports whether a username names a disposable test
// account ("test" or anything starting with "test-"). Such names get a unique
// suffix at registration so repeated test logins never share progress.
func IsThrowawayUsername(username string) bool {
	if len(username) < 4 {
		return false
	}
	prefix := username
	if len(prefix) > 5 {
		prefix = prefix[:5]
	}
	return strings.HasPrefix("test-", prefix)
}

// ThrowawayUsername appends a random UUID to a throwaway username.
func ThrowawayUsername(username string) string {
	return username + "-" + uuid.NewString()
}
