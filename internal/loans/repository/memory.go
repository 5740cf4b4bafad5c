package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lendinghub/lending-service/internal/models"
)

type pairKey struct{ holder, item string }

// MemoryRepo is an in-memory loan repository. A single mutex makes every
// operation, Close included, linearizable.
type MemoryRepo struct {
	mu    sync.RWMutex
	store map[string]models.Loan
	open  map[pairKey]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]models.Loan), open: make(map[pairKey]string)}
}

func (m *MemoryRepo) Create(ctx context.Context, loan *models.Loan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{loan.HolderID, loan.ItemID}
	if loan.Open {
		if _, exists := m.open[k]; exists {
			return ErrOpenLoanExists
		}
		m.open[k] = loan.ID
	}
	m.store[loan.ID] = cloneLoan(*loan)
	return nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (*models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneLoan(l)
	return &out, nil
}

func (m *MemoryRepo) FindOpenByHolderAndItem(ctx context.Context, holderID, itemID string) (*models.Loan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.open[pairKey{holderID, itemID}]
	if !ok {
		return nil, nil
	}
	out := cloneLoan(m.store[id])
	return &out, nil
}

func (m *MemoryRepo) FindByHolder(ctx context.Context, holderID string) ([]*models.Loan, error) {
	out := m.filter(func(l *models.Loan) bool { return l.HolderID == holderID })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BorrowedAt.Equal(out[j].BorrowedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].BorrowedAt.After(out[j].BorrowedAt)
	})
	return out, nil
}

func (m *MemoryRepo) FindOpenWithDeadlineBefore(ctx context.Context, t time.Time) ([]*models.Loan, error) {
	return m.sortedByID(m.filter(func(l *models.Loan) bool {
		return l.Open && l.HardExpiresAt != nil && !l.HardExpiresAt.After(t)
	})), nil
}

func (m *MemoryRepo) FindOpenWithPolicyCutoffBefore(ctx context.Context, t time.Time) ([]*models.Loan, error) {
	return m.sortedByID(m.filter(func(l *models.Loan) bool {
		return l.Open && l.PolicyReturnAt != nil && !l.PolicyReturnAt.After(t)
	})), nil
}

func (m *MemoryRepo) CountOpenByItem(ctx context.Context, itemID string) (int64, error) {
	return int64(len(m.filter(func(l *models.Loan) bool { return l.Open && l.ItemID == itemID }))), nil
}

func (m *MemoryRepo) Close(ctx context.Context, id string, at time.Time, by models.Actor) (*models.Loan, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.store[id]
	if !ok {
		return nil, false, ErrNotFound
	}
	if !l.Open {
		out := cloneLoan(l)
		return &out, false, nil
	}
	closedAt := at
	l.Open = false
	l.ClosedAt = &closedAt
	l.ClosedBy = by
	m.store[id] = l
	delete(m.open, pairKey{l.HolderID, l.ItemID})
	out := cloneLoan(l)
	return &out, true, nil
}

func (m *MemoryRepo) filter(keep func(*models.Loan) bool) []*models.Loan {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Loan{}
	for _, l := range m.store {
		if keep(&l) {
			c := cloneLoan(l)
			out = append(out, &c)
		}
	}
	return out
}

func (m *MemoryRepo) sortedByID(in []*models.Loan) []*models.Loan {
	sort.Slice(in, func(i, j int) bool { return in[i].ID < in[j].ID })
	return in
}

// cloneLoan copies the pointer fields so callers cannot mutate stored state.
func cloneLoan(l models.Loan) models.Loan {
	if l.HardExpiresAt != nil {
		t := *l.HardExpiresAt
		l.HardExpiresAt = &t
	}
	if l.PolicyReturnAt != nil {
		t := *l.PolicyReturnAt
		l.PolicyReturnAt = &t
	}
	if l.ClosedAt != nil {
		t := *l.ClosedAt
		l.ClosedAt = &t
	}
	return l
}
