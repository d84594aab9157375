package handler

import (
	"strings"

	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
)

// InitializeRequest is the HTTP request body for POST /registry/admin.
type InitializeRequest struct {
	Admin string `json:"admin"`

	// Parsed values (populated by Validate)
	parsedAdmin domain.Principal
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *InitializeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Admin = strings.TrimSpace(r.Admin)
	if r.Admin == "" {
		return dErrors.New(dErrors.CodeValidation, "admin is required")
	}
	admin, err := domain.ParsePrincipal(r.Admin)
	if err != nil {
		return err
	}
	r.parsedAdmin = admin
	return nil
}

// ParsedAdmin returns the validated admin principal.
func (r *InitializeRequest) ParsedAdmin() domain.Principal {
	return r.parsedAdmin
}

// RegisterRequest is the HTTP request body for POST /registry/contributors.
type RegisterRequest struct {
	Address      string `json:"address"`
	GitHubHandle string `json:"github_handle"`

	parsedAddress domain.Principal
}

// Validate validates and parses the request. Handle content rules live in
// the domain model; only presence is checked here.
func (r *RegisterRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Address = strings.TrimSpace(r.Address)
	if r.Address == "" {
		return dErrors.New(dErrors.CodeValidation, "address is required")
	}
	address, err := domain.ParsePrincipal(r.Address)
	if err != nil {
		return err
	}
	r.parsedAddress = address

	if strings.TrimSpace(r.GitHubHandle) == "" {
		return dErrors.New(dErrors.CodeValidation, "github_handle is required")
	}
	return nil
}

// ParsedAddress returns the validated contributor address.
func (r *RegisterRequest) ParsedAddress() domain.Principal {
	return r.parsedAddress
}

// UpdateReputationRequest is the HTTP request body for
// PUT /registry/contributors/{address}/reputation.
type UpdateReputationRequest struct {
	Admin string `json:"admin"`
	Score uint64 `json:"score"`

	parsedAdmin domain.Principal
}

func (r *UpdateReputationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Admin = strings.TrimSpace(r.Admin)
	if r.Admin == "" {
		return dErrors.New(dErrors.CodeValidation, "admin is required")
	}
	admin, err := domain.ParsePrincipal(r.Admin)
	if err != nil {
		return err
	}
	r.parsedAdmin = admin
	return nil
}

// ParsedAdmin returns the validated admin principal.
func (r *UpdateReputationRequest) ParsedAdmin() domain.Principal {
	return r.parsedAdmin
}
