package contributor

import (
	"log/slog"

	"vestry/internal/authproof"
	"vestry/internal/contributor/handler"
	"vestry/internal/contributor/service"
)

// Service exposes contributor registration and reputation orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the contributor service.
type Handler = handler.Handler

// NewService constructs the contributor service with required dependencies.
func NewService(store service.Store, proofs authproof.Verifier, opts ...service.Option) *Service {
	return service.New(store, proofs, opts...)
}

// NewHandler constructs an HTTP handler for the registry routes.
func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
