package models

import (
	"math/big"
	"time"

	"vestry/pkg/domain"
	dErrors "vestry/pkg/domain-errors"
)

// Config is the wallet's instance record, written exactly once at
// initialization. The admin authorizes schedule creation; the asset is the
// token every schedule in this wallet pays out in.
type Config struct {
	Admin domain.Principal `json:"admin"`
	Asset domain.Asset     `json:"asset"`
}

// Schedule is one beneficiary's linear vesting grant.
//
// Invariants:
//   - Beneficiary is immutable; one schedule per beneficiary
//   - TotalAmount > 0 and DurationSeconds > 0
//   - 0 <= ClaimedAmount <= TotalAmount, and ClaimedAmount only grows
//   - TotalAmount and ClaimedAmount are never nil
type Schedule struct {
	Beneficiary     domain.Principal `json:"beneficiary"`
	TotalAmount     *big.Int         `json:"total_amount"`
	StartTime       time.Time        `json:"start_time"`
	DurationSeconds int64            `json:"duration_seconds"`
	ClaimedAmount   *big.Int         `json:"claimed_amount"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// NewSchedule constructs a grant with nothing claimed yet.
//
// Errors: CodeInvariantViolation when the amount or duration is not positive;
// the service layer converts these to validation errors for the API.
func NewSchedule(beneficiary domain.Principal, total *big.Int, start time.Time, durationSeconds int64, now time.Time) (*Schedule, error) {
	if total == nil || total.Sign() <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "total amount must be positive")
	}
	if durationSeconds <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "duration must be positive")
	}
	if start.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "start time is required")
	}
	return &Schedule{
		Beneficiary:     beneficiary,
		TotalAmount:     new(big.Int).Set(total),
		StartTime:       start,
		DurationSeconds: durationSeconds,
		ClaimedAmount:   big.NewInt(0),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// VestedAt returns the cumulative amount unlocked at the given instant.
// Vesting is linear at second granularity: nothing before StartTime, the
// full TotalAmount once DurationSeconds have elapsed, and the floored
// proportion TotalAmount * elapsed / DurationSeconds in between. Rounding
// down means intermediate reads may lag the exact fraction, but the final
// second always pays out to exactly TotalAmount.
func (s *Schedule) VestedAt(now time.Time) *big.Int {
	if now.Before(s.StartTime) {
		return big.NewInt(0)
	}
	elapsed := now.Unix() - s.StartTime.Unix()
	if elapsed >= s.DurationSeconds {
		return new(big.Int).Set(s.TotalAmount)
	}
	vested := new(big.Int).Mul(s.TotalAmount, big.NewInt(elapsed))
	return vested.Quo(vested, big.NewInt(s.DurationSeconds))
}

// ClaimableAt returns what the beneficiary could withdraw right now: the
// vested amount minus what was already paid. Zero or negative means there is
// nothing to claim at this instant.
func (s *Schedule) ClaimableAt(now time.Time) *big.Int {
	return new(big.Int).Sub(s.VestedAt(now), s.ClaimedAmount)
}

// ApplyClaim records a payout. Callers own the claimable computation and the
// ledger transfer; the model only advances the bookkeeping.
func (s *Schedule) ApplyClaim(amount *big.Int, now time.Time) {
	s.ClaimedAmount = new(big.Int).Add(s.ClaimedAmount, amount)
	s.UpdatedAt = now
}
