package directory

import (
	"context"
	"errors"
	"maps"
	"strings"
	"sync"

	goGuard "github.com/MrEthical07/goGuard"
)

// Credential field names read by Memory.
const (
	FieldLogin    = "login"
	FieldPassword = "password"
)

var ErrDuplicateLogin = errors.New("directory: login already registered")

// User is the Principal stored by Memory.
type User struct {
	ID     string
	Login  string
	Claims map[string]any

	hash string
}

func (u *User) AuthIdentifier() string { return u.ID }

func (u *User) CustomClaims() map[string]any { return maps.Clone(u.Claims) }

// Memory is a concurrency-safe goGuard.UserDirectory backed by maps. Logins are matched
// case-insensitively.
type Memory struct {
	hasher *Hasher

	mu      sync.RWMutex
	byID    map[string]*User
	byLogin map[string]*User
}

var _ goGuard.UserDirectory = (*Memory)(nil)

func NewMemory(hasher *Hasher) *Memory {
	return &Memory{
		hasher:  hasher,
		byID:    make(map[string]*User),
		byLogin: make(map[string]*User),
	}
}

// Register stores a user with a freshly hashed password. Re-registering an id replaces it.
func (m *Memory) Register(id, login, password string, claims map[string]any) (*User, error) {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(login) == "" {
		return nil, goGuard.ErrInvalidAction
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(login)
	u := &User{ID: id, Login: login, Claims: maps.Clone(claims), hash: hash}

	m.mu.Lock()
	defer m.mu.Unlock()
	if other, ok := m.byLogin[key]; ok && other.ID != id {
		return nil, ErrDuplicateLogin
	}
	if old, ok := m.byID[id]; ok {
		delete(m.byLogin, strings.ToLower(old.Login))
	}
	m.byID[id] = u
	m.byLogin[key] = u
	return u, nil
}

// Remove deletes a user. Tokens already issued to it then fail with ErrUnauthenticated.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		delete(m.byLogin, strings.ToLower(u.Login))
		delete(m.byID, id)
	}
}

func (m *Memory) RetrieveByID(_ context.Context, subject string) (goGuard.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[subject]
	if !ok {
		return nil, goGuard.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) RetrieveByCredentials(_ context.Context, creds goGuard.Credentials) (goGuard.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byLogin[strings.ToLower(creds[FieldLogin])]
	if !ok {
		return nil, goGuard.ErrUserNotFound
	}
	return u, nil
}

func (m *Memory) ValidateCredentials(_ context.Context, p goGuard.Principal, creds goGuard.Credentials) (bool, error) {
	u, ok := p.(*User)
	if !ok {
		return false, nil
	}
	return m.hasher.Verify(creds[FieldPassword], u.hash)
}
