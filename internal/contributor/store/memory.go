// Package store provides persistence for the contributor registry: the
// one-shot admin slot plus contributor records keyed by address.
package store

import (
	"context"
	"fmt"
	"sync"

	"vestry/internal/contributor/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
)

// InMemory keeps the registry in process memory. Used by tests and local
// development. Records are stored by value so callers can mutate what they
// get back without leaking into the store.
type InMemory struct {
	mu           sync.RWMutex
	admin        domain.Principal
	hasAdmin     bool
	contributors map[domain.Principal]models.Contributor
}

func NewInMemory() *InMemory {
	return &InMemory{contributors: make(map[domain.Principal]models.Contributor)}
}

func (s *InMemory) Admin(_ context.Context) (domain.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasAdmin {
		return "", fmt.Errorf("registry admin: %w", sentinel.ErrNotFound)
	}
	return s.admin, nil
}

func (s *InMemory) CreateAdmin(_ context.Context, admin domain.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasAdmin {
		return fmt.Errorf("registry admin already set: %w", sentinel.ErrConflict)
	}
	s.admin = admin
	s.hasAdmin = true
	return nil
}

func (s *InMemory) Create(_ context.Context, contributor *models.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contributors[contributor.Address]; exists {
		return fmt.Errorf("contributor %s: %w", contributor.Address, sentinel.ErrConflict)
	}
	s.contributors[contributor.Address] = *contributor
	return nil
}

func (s *InMemory) Get(_ context.Context, address domain.Principal) (*models.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	contributor, ok := s.contributors[address]
	if !ok {
		return nil, fmt.Errorf("contributor %s: %w", address, sentinel.ErrNotFound)
	}
	return &contributor, nil
}

func (s *InMemory) UpdateScore(_ context.Context, contributor *models.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.contributors[contributor.Address]
	if !ok {
		return fmt.Errorf("contributor %s: %w", contributor.Address, sentinel.ErrNotFound)
	}
	existing.ReputationScore = contributor.ReputationScore
	existing.UpdatedAt = contributor.UpdatedAt
	s.contributors[contributor.Address] = existing
	return nil
}
