package vesting

import (
	"log/slog"

	"vestry/internal/authproof"
	"vestry/internal/token"
	"vestry/internal/vesting/handler"
	"vestry/internal/vesting/service"
	"vestry/pkg/domain"
)

// Service exposes vesting schedule and claim orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the vesting service.
type Handler = handler.Handler

// NewService constructs the vesting service with required dependencies.
func NewService(store service.Store, ledger token.Ledger, treasury domain.Principal, proofs authproof.Verifier, opts ...service.Option) *Service {
	return service.New(store, ledger, treasury, proofs, opts...)
}

// NewHandler constructs an HTTP handler for the vesting routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
