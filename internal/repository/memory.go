package repository

import (
	"context"
	"sync"

	"flowbuilder/backend/pkg/models"
)

// MemoryStore keeps flows and results for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	flows   []*models.Flow
	results []*models.Result
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveFlow(_ context.Context, flow *models.Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows = append([]*models.Flow{flow.Clone()}, s.flows...)
	return nil
}

func (s *MemoryStore) ListFlows(_ context.Context) ([]*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Flow, 0, len(s.flows))
	for _, f := range s.flows {
		out = append(out, f.Clone())
	}
	return out, nil
}

func (s *MemoryStore) GetFlow(_ context.Context, id string) (*models.Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.flows {
		if f.ID == id {
			return f.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) SaveResult(_ context.Context, result *models.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append([]*models.Result{result.Clone()}, s.results...)
	return nil
}

func (s *MemoryStore) ListResults(_ context.Context) ([]*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Result, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *MemoryStore) GetResult(_ context.Context, id string) (*models.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return r.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}
