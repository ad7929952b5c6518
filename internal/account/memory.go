package account

import (
	"context"
	"sync"

	"tourney.org/internal/ids"
)

// InMemory implements Store and RoleStore with in-process locking. It backs
// tests and the storeless dev mode of cmd/api.
type InMemory struct {
	mu       sync.RWMutex
	accounts map[string]Account
	roles    map[string]Role
}

// NewInMemory creates an empty in-memory account/role store.
func NewInMemory() *InMemory {
	return &InMemory{
		accounts: make(map[string]Account),
		roles:    make(map[string]Role),
	}
}

func (s *InMemory) FindByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return copyAccount(acc), nil
}

func (s *InMemory) FindByHandle(_ context.Context, handle string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, acc := range s.accounts {
		if acc.Handle == handle {
			return copyAccount(acc), nil
		}
	}
	return Account{}, ErrNotFound
}

func (s *InMemory) FindAll(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, copyAccount(acc))
	}
	return out, nil
}

func (s *InMemory) Save(_ context.Context, acc Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	s.accounts[acc.ID] = copyAccount(acc)
	return copyAccount(acc), nil
}

func (s *InMemory) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make(map[string]Account)
	return nil
}

// InMemoryRoles exposes the role half of the store. Role documents share
// the account store's lock.
type InMemoryRoles struct {
	parent *InMemory
}

// RoleStore returns the role-document view of this store.
func (s *InMemory) RoleStore() *InMemoryRoles {
	return &InMemoryRoles{parent: s}
}

func (r *InMemoryRoles) FindByName(_ context.Context, name string) (Role, error) {
	r.parent.mu.RLock()
	defer r.parent.mu.RUnlock()
	for _, role := range r.parent.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (r *InMemoryRoles) FindAll(_ context.Context) ([]Role, error) {
	r.parent.mu.RLock()
	defer r.parent.mu.RUnlock()
	out := make([]Role, 0, len(r.parent.roles))
	for _, role := range r.parent.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *InMemoryRoles) Save(_ context.Context, role Role) (Role, error) {
	r.parent.mu.Lock()
	defer r.parent.mu.Unlock()
	if role.ID == "" {
		role.ID = ids.New()
	}
	r.parent.roles[role.ID] = role
	return role, nil
}

func (r *InMemoryRoles) DeleteAll(_ context.Context) error {
	r.parent.mu.Lock()
	defer r.parent.mu.Unlock()
	r.parent.roles = make(map[string]Role)
	return nil
}

func copyAccount(acc Account) Account {
	out := acc
	out.TournamentIDs = append([]string(nil), acc.TournamentIDs...)
	out.Roles = append([]Role(nil), acc.Roles...)
	return out
}
