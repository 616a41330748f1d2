package memory

import (
	"context"
	"sync"

	"ginkana-service/internal/domain"
)

// Store is an in-memory record store, useful for tests and demos where no
// external spreadsheet or database is wired up.
type Store struct {
	mu      sync.RWMutex
	catalog []domain.Challenge
	teams   []domain.Team
	subs    []domain.Submission
}

func NewStore(catalog []domain.Challenge) *Store {
	return &Store{catalog: catalog}
}

func (s *Store) LoadCatalog(_ context.Context) ([]domain.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Challenge, len(s.catalog))
	copy(out, s.catalog)
	return out, nil
}

func (s *Store) LoadRoster(_ context.Context) ([]domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Team, len(s.teams))
	copy(out, s.teams)
	return out, nil
}

func (s *Store) LoadSubmissions(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Submission, len(s.subs))
	copy(out, s.subs)
	return out, nil
}

func (s *Store) AppendSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Store) AppendTeam(_ context.Context, team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teams = append(s.teams, team)
	return nil
}
