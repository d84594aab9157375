// Package audit captures the registry's mutation trail. Every successful
// state change emits one event; sinks fan events out to logs, postgres, or
// Kafka depending on deployment.
package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/financial significance.
	// These require tamper-proof storage and long retention.
	// Examples: reputation changes, vesting schedule creation, claim payouts.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring.
	// Examples: registry initialization, rejected privileged operations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers events useful for debugging and visibility.
	// Examples: contributor registrations, routine reads.
	CategoryOperations EventCategory = "operations"
)

// Action names a registry mutation.
type Action string

const (
	ActionRegistryInitialized   Action = "registry_initialized"
	ActionContributorRegistered Action = "contributor_registered"
	ActionReputationUpdated     Action = "reputation_updated"
	ActionWalletInitialized     Action = "wallet_initialized"
	ActionScheduleCreated       Action = "vesting_schedule_created"
	ActionClaimPaid             Action = "vesting_claimed"
	ActionRateLimitExceeded     Action = "rate_limit_exceeded"
)

// actionCategories maps each action to its category and is the single source
// of truth for routing.
var actionCategories = map[Action]EventCategory{
	ActionRegistryInitialized:   CategorySecurity,
	ActionWalletInitialized:     CategorySecurity,
	ActionRateLimitExceeded:     CategorySecurity,
	ActionReputationUpdated:     CategoryCompliance,
	ActionScheduleCreated:       CategoryCompliance,
	ActionClaimPaid:             CategoryCompliance,
	ActionContributorRegistered: CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Category  EventCategory
	Timestamp time.Time
	Action    Action
	// Actor is the principal performing the action; Subject is the principal
	// acted upon. They coincide for self-service operations.
	Actor   string
	Subject string
	// Request metadata captured by middleware.
	RequestID string
	ClientIP  string
	Device    string
	// Metadata carries action-specific details (scores, amounts as strings).
	Metadata map[string]string
}

// Store persists or forwards events. Implementations must be safe for
// concurrent Append calls.
type Store interface {
	Append(ctx context.Context, event Event) error
}
