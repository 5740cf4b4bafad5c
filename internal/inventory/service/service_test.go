package service

import (
	"context"
	"testing"

	"github.com/lendinghub/lending-service/internal/inventory/repository"
	"github.com/lendinghub/lending-service/internal/models"
	"github.com/stretchr/testify/require"
)

type stubCounter map[string]int64

func (s stubCounter) CountOpenByItem(ctx context.Context, itemID string) (int64, error) {
	return s[itemID], nil
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	loans := stubCounter{}
	svc := New(repository.NewMemoryRepo(), loans)

	it, err := svc.Add(ctx, ItemInput{Title: " Dune ", Author: "Herbert", Available: 3})
	require.NoError(t, err)
	require.NotEmpty(t, it.ID)
	require.Equal(t, "Dune", it.Title)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	upd, err := svc.Update(ctx, it.ID, ItemInput{Title: "Dune Messiah", Author: "Herbert", Available: 1})
	require.NoError(t, err)
	require.Equal(t, "Dune Messiah", upd.Title)
	require.Equal(t, 1, upd.Available)

	loans[it.ID] = 1
	require.ErrorIs(t, svc.Delete(ctx, it.ID), ErrItemOnLoan)

	loans[it.ID] = 0
	require.NoError(t, svc.Delete(ctx, it.ID))
	_, err = svc.Get(ctx, it.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, it.ID), ErrNotFound)
}

func TestServiceValidation(t *testing.T) {
	ctx := context.Background()
	svc := New(repository.NewMemoryRepo(), stubCounter{})

	_, err := svc.Add(ctx, ItemInput{Title: "  ", Available: 1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Add(ctx, ItemInput{Title: "Dune", Available: -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Update(ctx, "missing", ItemInput{Title: "x"})
	require.ErrorIs(t, err, ErrNotFound)
}

// borrowingRepo lends one copy right after the service has read the item,
// the way a concurrent borrow would.
type borrowingRepo struct {
	*repository.MemoryRepo
	borrowed bool
}

func (r *borrowingRepo) Get(ctx context.Context, id string) (*models.Item, error) {
	it, err := r.MemoryRepo.Get(ctx, id)
	if err == nil && !r.borrowed {
		r.borrowed = true
		if _, err := r.MemoryRepo.Adjust(ctx, id, -1); err != nil {
			return nil, err
		}
	}
	return it, err
}

func newBorrowingService(t *testing.T, available int) (*Service, *borrowingRepo) {
	t.Helper()
	repo := &borrowingRepo{MemoryRepo: repository.NewMemoryRepo()}
	require.NoError(t, repo.Save(context.Background(), &models.Item{ID: "x", Title: "Dune", Available: available}))
	return New(repo, stubCounter{}), repo
}

func TestUpdate_KeepsConcurrentBorrow(t *testing.T) {
	ctx := context.Background()

	t.Run("title edit", func(t *testing.T) {
		svc, repo := newBorrowingService(t, 1)
		it, err := svc.Update(ctx, "x", ItemInput{Title: "Dune (2nd ed.)", Available: 1})
		require.NoError(t, err)
		require.Equal(t, "Dune (2nd ed.)", it.Title)
		require.Equal(t, 0, it.Available)

		stored, err := repo.MemoryRepo.Get(ctx, "x")
		require.NoError(t, err)
		require.Equal(t, 0, stored.Available)
	})

	t.Run("restock", func(t *testing.T) {
		svc, _ := newBorrowingService(t, 1)
		it, err := svc.Update(ctx, "x", ItemInput{Title: "Dune", Available: 3})
		require.NoError(t, err)
		require.Equal(t, 2, it.Available)
	})

	t.Run("lowering below what is left", func(t *testing.T) {
		svc, repo := newBorrowingService(t, 1)
		_, err := svc.Update(ctx, "x", ItemInput{Title: "Dune", Available: 0})
		require.ErrorIs(t, err, ErrStockConflict)

		stored, err := repo.MemoryRepo.Get(ctx, "x")
		require.NoError(t, err)
		require.Equal(t, 0, stored.Available)
	})
}
