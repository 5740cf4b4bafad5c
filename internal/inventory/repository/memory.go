package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lendinghub/lending-service/internal/models"
)

// MemoryRepo is an in-memory repository used when MongoDB is not configured
// and by unit tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]models.Item
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]models.Item)}
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (m *MemoryRepo) List(ctx context.Context) ([]*models.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Item, 0, len(m.store))
	for _, it := range m.store {
		it := it
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *MemoryRepo) Save(ctx context.Context, item *models.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if prev, ok := m.store[item.ID]; ok {
		item.CreatedAt = prev.CreatedAt
	} else if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	m.store[item.ID] = *item
	return nil
}

func (m *MemoryRepo) UpdateDetails(ctx context.Context, id, title, author string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	it.Title = title
	it.Author = author
	it.UpdatedAt = time.Now().UTC()
	m.store[id] = it
	return &it, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *MemoryRepo) Adjust(ctx context.Context, id string, delta int) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	if it.Available+delta < 0 {
		return nil, ErrOutOfStock
	}
	it.Available += delta
	it.UpdatedAt = time.Now().UTC()
	m.store[id] = it
	return &it, nil
}
