package handler

import (
	"time"

	"vestry/internal/contributor/models"
)

// ContributorResponse is the HTTP representation of a contributor record.
type ContributorResponse struct {
	Address         string    `json:"address"`
	GitHubHandle    string    `json:"github_handle"`
	ReputationScore uint64    `json:"reputation_score"`
	RegisteredAt    time.Time `json:"registered_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FromContributor converts a domain record to an HTTP response.
func FromContributor(c *models.Contributor) *ContributorResponse {
	return &ContributorResponse{
		Address:         c.Address.String(),
		GitHubHandle:    c.GitHubHandle,
		ReputationScore: c.ReputationScore,
		RegisteredAt:    c.RegisteredAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// AdminResponse is the HTTP response for GET /registry/admin.
type AdminResponse struct {
	Admin string `json:"admin"`
}
