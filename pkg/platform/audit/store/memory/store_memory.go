package memory

import (
	"context"
	"sync"

	audit "vestry/pkg/platform/audit"
)

// InMemoryStore keeps events in insertion order, indexed by subject. Used by
// tests and by deployments that have not wired a durable sink.
type InMemoryStore struct {
	mu        sync.RWMutex
	ordered   []audit.Event
	bySubject map[string][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{bySubject: make(map[string][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordered = nil
	s.bySubject = make(map[string][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ordered = append(s.ordered, event)
	s.bySubject[event.Subject] = append(s.bySubject[event.Subject], event)
	return nil
}

func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.bySubject[subject]...), nil
}

// ListAll returns every recorded event in insertion order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.ordered...), nil
}
