package handler

import (
	"time"

	"vestry/internal/vesting/models"
	"vestry/pkg/domain"
)

// ScheduleResponse is the HTTP representation of a vesting schedule.
// VestedAmount and ClaimableAmount are derived from the grant terms at
// response time; only the claimed amount is stored state.
type ScheduleResponse struct {
	Beneficiary     string    `json:"beneficiary"`
	TotalAmount     string    `json:"total_amount"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	ClaimedAmount   string    `json:"claimed_amount"`
	VestedAmount    string    `json:"vested_amount"`
	ClaimableAmount string    `json:"claimable_amount"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// FromSchedule converts a schedule to an HTTP response, deriving the vested
// and claimable amounts as of now.
func FromSchedule(schedule *models.Schedule, now time.Time) *ScheduleResponse {
	claimable := schedule.ClaimableAt(now)
	if claimable.Sign() < 0 {
		claimable.SetInt64(0)
	}
	return &ScheduleResponse{
		Beneficiary:     schedule.Beneficiary.String(),
		TotalAmount:     domain.FormatAmount(schedule.TotalAmount),
		StartTime:       schedule.StartTime,
		DurationSeconds: schedule.DurationSeconds,
		ClaimedAmount:   domain.FormatAmount(schedule.ClaimedAmount),
		VestedAmount:    domain.FormatAmount(schedule.VestedAt(now)),
		ClaimableAmount: domain.FormatAmount(claimable),
		CreatedAt:       schedule.CreatedAt,
		UpdatedAt:       schedule.UpdatedAt,
	}
}

// AdminResponse is the HTTP response for GET /vesting/admin.
type AdminResponse struct {
	Admin string `json:"admin"`
	Token string `json:"token"`
}

// ClaimResponse is the HTTP response for a paid claim.
type ClaimResponse struct {
	Beneficiary string `json:"beneficiary"`
	Amount      string `json:"amount"`
}
