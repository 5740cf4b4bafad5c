package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lendinghub/lending-service/internal/ids"
	"github.com/lendinghub/lending-service/internal/inventory/repository"
	"github.com/lendinghub/lending-service/internal/models"
)

var (
	ErrNotFound      = errors.New("item not found")
	ErrInvalidInput  = errors.New("invalid item")
	ErrItemOnLoan    = errors.New("item has open loans")
	// ErrStockConflict means borrows emptied the shelf while an admin was
	// lowering its count.
	ErrStockConflict = errors.New("shelf count changed concurrently")
)

// OpenLoanCounter reports how many open loans reference an item.
type OpenLoanCounter interface {
	CountOpenByItem(ctx context.Context, itemID string) (int64, error)
}

// ItemInput carries the admin-editable fields of an item.
type ItemInput struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Available int    `json:"available"`
}

func (in ItemInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Available < 0 {
		return fmt.Errorf("%w: available must not be negative", ErrInvalidInput)
	}
	return nil
}

// Service holds the catalog operations available to administrators.
type Service struct {
	repo  repository.Repository
	loans OpenLoanCounter
}

func New(repo repository.Repository, loans OpenLoanCounter) *Service {
	return &Service{repo: repo, loans: loans}
}

func (s *Service) Add(ctx context.Context, in ItemInput) (*models.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	it := &models.Item{
		ID:        ids.NewID(),
		Title:     strings.TrimSpace(in.Title),
		Author:    strings.TrimSpace(in.Author),
		Available: in.Available,
	}
	if err := s.repo.Save(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) List(ctx context.Context) ([]*models.Item, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Item, error) {
	it, err := s.repo.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return it, err
}

// Update rewrites the descriptive fields. Available is the shelf count the
// caller wants relative to the one it last read; the difference is applied as
// a delta so borrows and returns landing in between are kept.
func (s *Service) Update(ctx context.Context, id string, in ItemInput) (*models.Item, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	it, err := s.repo.UpdateDetails(ctx, id, strings.TrimSpace(in.Title), strings.TrimSpace(in.Author))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	delta := in.Available - current.Available
	if delta == 0 {
		return it, nil
	}
	it, err = s.repo.Adjust(ctx, id, delta)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, repository.ErrOutOfStock):
		return nil, ErrStockConflict
	}
	return it, err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	// a borrow can still slip in between the count and the delete; such a
	// loan is closed later without a restock
	n, err := s.loans.CountOpenByItem(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrItemOnLoan
	}
	err = s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
