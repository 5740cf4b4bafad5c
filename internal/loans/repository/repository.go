// Package repository persists loans. Both implementations make Close a
// conditional transition so that only one of several concurrent closers of
// the same loan observes closed=true.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lendinghub/lending-service/internal/models"
)

var (
	ErrNotFound = errors.New("loan not found")
	// ErrOpenLoanExists is returned by Create when the holder already has an
	// open loan for the item.
	ErrOpenLoanExists = errors.New("open loan already exists for holder and item")
)

type Repository interface {
	Create(ctx context.Context, loan *models.Loan) error
	Get(ctx context.Context, id string) (*models.Loan, error)
	// FindOpenByHolderAndItem returns (nil, nil) when there is no open loan.
	FindOpenByHolderAndItem(ctx context.Context, holderID, itemID string) (*models.Loan, error)
	// FindByHolder returns open and closed loans, newest first.
	FindByHolder(ctx context.Context, holderID string) ([]*models.Loan, error)
	FindOpenWithDeadlineBefore(ctx context.Context, t time.Time) ([]*models.Loan, error)
	FindOpenWithPolicyCutoffBefore(ctx context.Context, t time.Time) ([]*models.Loan, error)
	CountOpenByItem(ctx context.Context, itemID string) (int64, error)
	// Close flips an open loan to closed. closed is false when the loan was
	// already closed; the returned loan then reflects the earlier close.
	Close(ctx context.Context, id string, at time.Time, by models.Actor) (loan *models.Loan, closed bool, err error)
}
