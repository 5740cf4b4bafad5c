// Package repository persists inventory items and their available counts.
package repository

import (
	"context"
	"errors"

	"github.com/lendinghub/lending-service/internal/models"
)

var (
	ErrNotFound = errors.New("item not found")
	// ErrOutOfStock is returned by Adjust when a decrement would take the
	// available count below zero.
	ErrOutOfStock = errors.New("item out of stock")
)

// Repository is implemented by MemoryRepo and MongoRepo.
type Repository interface {
	Get(ctx context.Context, id string) (*models.Item, error)
	List(ctx context.Context) ([]*models.Item, error)
	Save(ctx context.Context, item *models.Item) error
	// UpdateDetails rewrites title and author only; the available count is
	// left to Adjust.
	UpdateDetails(ctx context.Context, id, title, author string) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	// Adjust atomically adds delta to the available count and returns the
	// updated item. Negative deltas never take the count below zero.
	Adjust(ctx context.Context, id string, delta int) (*models.Item, error)
}
