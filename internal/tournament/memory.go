package tournament

import (
	"context"
	"sync"

	"tourney.org/internal/ids"
)

// InMemory implements Store with in-process locking for tests and the
// storeless dev mode.
type InMemory struct {
	mu   sync.RWMutex
	docs map[string]Tournament
}

// NewInMemory creates an empty in-memory tournament store.
func NewInMemory() *InMemory {
	return &InMemory{docs: make(map[string]Tournament)}
}

func (s *InMemory) FindByID(_ context.Context, id string) (Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.docs[id]
	if !ok {
		return Tournament{}, ErrNotFound
	}
	return copyTournament(t), nil
}

func (s *InMemory) FindAll(_ context.Context) ([]Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Tournament, 0, len(s.docs))
	for _, t := range s.docs {
		out = append(out, copyTournament(t))
	}
	return out, nil
}

func (s *InMemory) FindByRosterMember(_ context.Context, accountID string) ([]Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tournament
	for _, t := range s.docs {
		if t.InRoster(accountID) {
			out = append(out, copyTournament(t))
		}
	}
	return out, nil
}

func (s *InMemory) FindByOwner(_ context.Context, ownerID string) ([]Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Tournament
	for _, t := range s.docs {
		if t.OwnerID == ownerID {
			out = append(out, copyTournament(t))
		}
	}
	return out, nil
}

func (s *InMemory) Save(_ context.Context, t Tournament) (Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	s.docs[t.ID] = copyTournament(t)
	return copyTournament(t), nil
}

func (s *InMemory) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]Tournament)
	return nil
}

func copyTournament(t Tournament) Tournament {
	out := t
	out.Roster = append([]string(nil), t.Roster...)
	return out
}
