package handler

import (
	"math/big"
	"strings"
	"time"

	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
)

// InitializeRequest is the HTTP request body for POST /vesting/admin.
type InitializeRequest struct {
	Admin string `json:"admin"`
	Token string `json:"token"`

	// Parsed values (populated by Validate)
	parsedAdmin domain.Principal
	parsedToken domain.Asset
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

	r.Token = strings.TrimSpace(r.Token)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	asset, err := domain.ParseAsset(r.Token)
	if err != nil {
		return err
	}
	r.parsedToken = asset
	return nil
}

// ParsedAdmin returns the validated admin principal.
func (r *InitializeRequest) ParsedAdmin() domain.Principal {
	return r.parsedAdmin
}

// ParsedToken returns the validated vesting asset.
func (r *InitializeRequest) ParsedToken() domain.Asset {
	return r.parsedToken
}

// CreateScheduleRequest is the HTTP request body for POST /vesting/schedules.
// Amounts are decimal strings so 128-bit token quantities survive JSON intact.
type CreateScheduleRequest struct {
	Admin           string    `json:"admin"`
	Beneficiary     string    `json:"beneficiary"`
	TotalAmount     string    `json:"total_amount"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`

	parsedAdmin       domain.Principal
	parsedBeneficiary domain.Principal
	parsedTotal       *big.Int
}

// Validate validates and parses the request. Grant invariants (positive
// total, positive duration) live in the domain model; only shape is
// checked here.
func (r *CreateScheduleRequest) Validate() error {
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

	r.Beneficiary = strings.TrimSpace(r.Beneficiary)
	if r.Beneficiary == "" {
		return dErrors.New(dErrors.CodeValidation, "beneficiary is required")
	}
	beneficiary, err := domain.ParsePrincipal(r.Beneficiary)
	if err != nil {
		return err
	}
	r.parsedBeneficiary = beneficiary

	if strings.TrimSpace(r.TotalAmount) == "" {
		return dErrors.New(dErrors.CodeValidation, "total_amount is required")
	}
	total, err := domain.ParseAmount(r.TotalAmount)
	if err != nil {
		return err
	}
	r.parsedTotal = total

	if r.StartTime.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "start_time is required")
	}
	return nil
}

// ParsedAdmin returns the validated admin principal.
func (r *CreateScheduleRequest) ParsedAdmin() domain.Principal {
	return r.parsedAdmin
}

// ParsedBeneficiary returns the validated beneficiary principal.
func (r *CreateScheduleRequest) ParsedBeneficiary() domain.Principal {
	return r.parsedBeneficiary
}

// ParsedTotal returns the validated total grant amount.
func (r *CreateScheduleRequest) ParsedTotal() *big.Int {
	return r.parsedTotal
}
