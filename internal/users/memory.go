package users

import (
	"context"
	"sync"
	"time"

	"github.com/lendinghub/lending-service/internal/models"
)

// MemoryUserRepository is the in-process UserRepository used when no MongoDB URI
// is configured, and by tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	byID   map[string]models.User
	byName map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: map[string]models.User{}, byName: map[string]string{}}
}

func (m *MemoryUserRepository) Save(ctx context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.byName[u.Username]; ok && owner != u.ID {
		return nil, ErrDuplicateUsername
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if prev, ok := m.byID[u.ID]; ok && prev.Username != u.Username {
		delete(m.byName, prev.Username)
	}
	m.byID[u.ID] = *u
	m.byName[u.Username] = u.ID
	out := *u
	return &out, nil
}

func (m *MemoryUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return nil, nil
	}
	u := m.byID[id]
	return &u, nil
}

func (m *MemoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}
