package auth

import (
	"context"
	"sync"
)

// MemoryUsers implements UserStore in memory.
type MemoryUsers struct {
	mu     sync.RWMutex
	users  map[string]*User
	grants map[string][]Grant
}

var _ UserStore = (*MemoryUsers)(nil)

// NewMemoryUsers creates an empty in-memory user store.
func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		users:  make(map[string]*User),
		grants: make(map[string][]Grant),
	}
}

func (m *MemoryUsers) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[u.ID]; exists {
		return ErrConflict
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryUsers) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryUsers) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryUsers) UpdateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryUsers) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	delete(m.grants, id)
	return nil
}

func (m *MemoryUsers) Grants(ctx context.Context, userID string) ([]Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]Grant, len(m.grants[userID]))
	copy(res, m.grants[userID])
	return res, nil
}

func (m *MemoryUsers) PutGrant(ctx context.Context, grant Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.grants[grant.UserID]
	for i, g := range existing {
		if g.Permission == grant.Permission {
			existing[i] = grant
			return nil
		}
	}
	m.grants[grant.UserID] = append(existing, grant)
	return nil
}
