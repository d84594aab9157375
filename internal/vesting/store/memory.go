// Package store provides persistence for the vesting wallet: the one-shot
// config record plus schedules keyed by beneficiary.
package store

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"vestry/internal/vesting/models"
	"vestry/pkg/domain"
	"vestry/pkg/platform/sentinel"
)

// InMemory keeps the wallet in process memory. Used by tests and local
// development. Schedules are deep-copied on the way in and out; the amounts
// are pointers, so a plain value copy would still share them.
type InMemory struct {
	mu        sync.RWMutex
	config    models.Config
	hasConfig bool
	schedules map[domain.Principal]models.Schedule
}

func NewInMemory() *InMemory {
	return &InMemory{schedules: make(map[domain.Principal]models.Schedule)}
}

func (s *InMemory) Config(_ context.Context) (models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasConfig {
		return models.Config{}, fmt.Errorf("wallet config: %w", sentinel.ErrNotFound)
	}
	return s.config, nil
}

func (s *InMemory) CreateConfig(_ context.Context, cfg models.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasConfig {
		return fmt.Errorf("wallet config already set: %w", sentinel.ErrConflict)
	}
	s.config = cfg
	s.hasConfig = true
	return nil
}

func (s *InMemory) Create(_ context.Context, schedule *models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.schedules[schedule.Beneficiary]; exists {
		return fmt.Errorf("schedule %s: %w", schedule.Beneficiary, sentinel.ErrConflict)
	}
	s.schedules[schedule.Beneficiary] = cloneSchedule(*schedule)
	return nil
}

func (s *InMemory) Get(_ context.Context, beneficiary domain.Principal) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schedule, ok := s.schedules[beneficiary]
	if !ok {
		return nil, fmt.Errorf("schedule %s: %w", beneficiary, sentinel.ErrNotFound)
	}
	clone := cloneSchedule(schedule)
	return &clone, nil
}

func (s *InMemory) Update(_ context.Context, schedule *models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.schedules[schedule.Beneficiary]
	if !ok {
		return fmt.Errorf("schedule %s: %w", schedule.Beneficiary, sentinel.ErrNotFound)
	}
	existing.ClaimedAmount = new(big.Int).Set(schedule.ClaimedAmount)
	existing.UpdatedAt = schedule.UpdatedAt
	s.schedules[schedule.Beneficiary] = existing
	return nil
}

func cloneSchedule(schedule models.Schedule) models.Schedule {
	schedule.TotalAmount = new(big.Int).Set(schedule.TotalAmount)
	schedule.ClaimedAmount = new(big.Int).Set(schedule.ClaimedAmount)
	return schedule
}
