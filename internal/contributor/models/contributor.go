package models

import (
	"strings"
	"time"

	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
)

// Contributor is a registry record binding a principal address to a GitHub
// identity and an admin-managed reputation score.
//
// Invariants:
//   - Address is immutable after registration; one record per address
//   - GitHubHandle is non-empty, at most 39 characters, alphanumeric or
//     hyphen, and never starts or ends with a hyphen
//   - ReputationScore starts at zero and is only changed by the registry
//     admin; any uint64 value is legal (no monotonicity)
//   - RegisteredAt is immutable after construction
type Contributor struct {
	Address         domain.Principal `json:"address"`
	GitHubHandle    string           `json:"github_handle"`
	ReputationScore uint64           `json:"reputation_score"`
	RegisteredAt    time.Time        `json:"registered_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

const maxGitHubHandleLen = 39

// NewContributor constructs a registration-time record. The handle is
// normalized (trimmed) before validation; the score always starts at zero.
//
// Errors: CodeInvariantViolation when the handle breaks an invariant; the
// service layer converts these to validation errors for the API.
func NewContributor(address domain.Principal, handle string, now time.Time) (*Contributor, error) {
	handle = NormalizeGitHubHandle(handle)
	if err := validateGitHubHandle(handle); err != nil {
		return nil, err
	}
	return &Contributor{
		Address:         address,
		GitHubHandle:    handle,
		ReputationScore: 0,
		RegisteredAt:    now,
		UpdatedAt:       now,
	}, nil
}

// ApplyScore overwrites the reputation score. Callers own authorization;
// the model only tracks the mutation time.
func (c *Contributor) ApplyScore(score uint64, now time.Time) {
	c.ReputationScore = score
	c.UpdatedAt = now
}

// NormalizeGitHubHandle trims surrounding whitespace.
func NormalizeGitHubHandle(handle string) string {
	return strings.TrimSpace(handle)
}

func validateGitHubHandle(handle string) error {
	if handle == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "github handle cannot be empty")
	}
	if len(handle) > maxGitHubHandleLen {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "github handle must be at most %d characters", maxGitHubHandleLen)
	}
	if handle[0] == '-' || handle[len(handle)-1] == '-' {
		return dErrors.New(dErrors.CodeInvariantViolation, "github handle cannot start or end with a hyphen")
	}
	for i := 0; i < len(handle); i++ {
		c := handle[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return dErrors.New(dErrors.CodeInvariantViolation, "github handle contains invalid characters")
		}
	}
	return nil
}
