// Package lending implements the borrow and return transitions and the close
// transition shared with the reconciliation sweep.
package lending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lendinghub/lending-service/internal/ids"
	invrepo "github.com/lendinghub/lending-service/internal/inventory/repository"
	loanrepo "github.com/lendinghub/lending-service/internal/loans/repository"
	"github.com/lendinghub/lending-service/internal/models"
	"github.com/lendinghub/lending-service/pkg/logger"
	"github.com/lendinghub/lending-service/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// HolderDirectory resolves holder ids. GetByID returns (nil, nil) for an
// unknown holder.
type HolderDirectory interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Engine enforces the lending invariants over the inventory and loan stores.
type Engine struct {
	items   invrepo.Repository
	loans   loanrepo.Repository
	holders HolderDirectory
	policy  Policy
	now     func() time.Time
	tracer  trace.Tracer
	log     *logger.Entry
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithHolders enables holder validation on borrow.
func WithHolders(h HolderDirectory) Option {
	return func(e *Engine) { e.holders = h }
}

// WithTracerProvider sends the engine's spans to tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) { e.tracer = tp.Tracer("lending/engine") }
}

func NewEngine(items invrepo.Repository, loans loanrepo.Repository, policy Policy, opts ...Option) *Engine {
	e := &Engine{
		items:  items,
		loans:  loans,
		policy: policy,
		now:    time.Now,
		tracer: otel.Tracer("lending/engine"),
		log:    logger.Component("lending"),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Now returns the engine clock, shared with the sweep.
func (e *Engine) Now() time.Time { return e.now() }

// BorrowItem opens a loan of itemID for holderID and takes one copy off the shelf.
func (e *Engine) BorrowItem(ctx context.Context, holderID, itemID string) (*models.Loan, error) {
	ctx, span := e.tracer.Start(ctx, "lending.borrow", trace.WithAttributes(
		attribute.String("holder.id", holderID),
		attribute.String("item.id", itemID),
	))
	defer span.End()

	loan, err := e.borrow(ctx, holderID, itemID)
	if err != nil {
		e.reject(span, "borrow", err)
		return nil, err
	}
	metrics.LoansOpened.Inc()
	span.SetAttributes(attribute.String("loan.id", loan.ID))
	fields := logger.Fields{"holder": holderID, "item": itemID, "loan": loan.ID}
	if due := loan.NextDeadline(); due != nil {
		fields["due"] = due.Format(time.RFC3339)
	}
	e.log.With(fields).Infof("loan opened")
	return loan, nil
}

func (e *Engine) borrow(ctx context.Context, holderID, itemID string) (*models.Loan, error) {
	if e.holders != nil {
		h, err := e.holders.GetByID(ctx, holderID)
		if err != nil {
			return nil, fmt.Errorf("lookup holder: %w", err)
		}
		if h == nil {
			return nil, fmt.Errorf("%w: holder %s", ErrNotFound, holderID)
		}
	}

	item, err := e.items.Get(ctx, itemID)
	if errors.Is(err, invrepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup item: %w", err)
	}
	if item.Available <= 0 {
		return nil, fmt.Errorf("%w: item %s", ErrUnavailable, itemID)
	}

	existing, err := e.loans.FindOpenByHolderAndItem(ctx, holderID, itemID)
	if err != nil {
		return nil, fmt.Errorf("lookup open loan: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: loan %s", ErrAlreadyHeld, existing.ID)
	}

	// The conditional decrement settles races for the last copy; the unique
	// open-loan constraint settles races between two borrows by one holder.
	if _, err := e.items.Adjust(ctx, itemID, -1); err != nil {
		switch {
		case errors.Is(err, invrepo.ErrOutOfStock):
			return nil, fmt.Errorf("%w: item %s", ErrUnavailable, itemID)
		case errors.Is(err, invrepo.ErrNotFound):
			return nil, fmt.Errorf("%w: item %s", ErrNotFound, itemID)
		}
		return nil, fmt.Errorf("take stock: %w", err)
	}

	now := e.now().UTC()
	hard, policy := e.policy.Deadlines(now)
	loan := &models.Loan{
		ID:             ids.NewLoanID(now),
		HolderID:       holderID,
		ItemID:         itemID,
		BorrowedAt:     now,
		HardExpiresAt:  hard,
		PolicyReturnAt: policy,
		Open:           true,
	}
	if err := e.loans.Create(ctx, loan); err != nil {
		e.restock(ctx, itemID, "borrow compensation")
		if errors.Is(err, loanrepo.ErrOpenLoanExists) {
			return nil, fmt.Errorf("%w: item %s", ErrAlreadyHeld, itemID)
		}
		return nil, fmt.Errorf("create loan: %w", err)
	}
	return loan, nil
}

// ReturnItem closes the holder's open loan of itemID.
func (e *Engine) ReturnItem(ctx context.Context, holderID, itemID string) (*models.Loan, error) {
	ctx, span := e.tracer.Start(ctx, "lending.return", trace.WithAttributes(
		attribute.String("holder.id", holderID),
		attribute.String("item.id", itemID),
	))
	defer span.End()

	open, err := e.loans.FindOpenByHolderAndItem(ctx, holderID, itemID)
	if err != nil {
		err = fmt.Errorf("lookup open loan: %w", err)
		e.reject(span, "return", err)
		return nil, err
	}
	if open == nil {
		err = fmt.Errorf("%w: holder %s item %s", ErrNotHeld, holderID, itemID)
		e.reject(span, "return", err)
		return nil, err
	}

	// A sweep closing the loan between the lookup and the close leaves
	// closed=false; the loan is returned either way and stock moved once.
	loan, closed, err := e.CloseLoan(ctx, open.ID, models.ActorUser)
	if err != nil {
		e.reject(span, "return", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("loan.id", loan.ID), attribute.Bool("loan.duplicate_close", !closed))
	return loan, nil
}

// ListOpenLoans returns every loan of the holder, open and closed, newest first.
func (e *Engine) ListOpenLoans(ctx context.Context, holderID string) ([]*models.Loan, error) {
	return e.loans.FindByHolder(ctx, holderID)
}

// CloseLoan performs the close transition for loanID on behalf of actor and
// restocks the item exactly when this call is the one that closed the loan.
// closed is false when another closer got there first; that is not an error.
func (e *Engine) CloseLoan(ctx context.Context, loanID string, actor models.Actor) (loan *models.Loan, closed bool, err error) {
	loan, closed, err = e.loans.Close(ctx, loanID, e.now().UTC(), actor)
	if err != nil {
		if errors.Is(err, loanrepo.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: loan %s", ErrNotFound, loanID)
		}
		return nil, false, fmt.Errorf("close loan %s: %w", loanID, err)
	}
	log := e.log.With(logger.Fields{"loan": loan.ID, "item": loan.ItemID, "actor": string(actor)})
	if !closed {
		metrics.DuplicateCloses.WithLabelValues(string(actor)).Inc()
		log.Debugf("loan already closed by %s", loan.ClosedBy)
		return loan, false, nil
	}
	if _, err := e.items.Adjust(ctx, loan.ItemID, 1); err != nil {
		if errors.Is(err, invrepo.ErrNotFound) {
			log.Warnf("closed loan references a deleted item; nothing to restock")
		} else {
			log.Errorf("loan closed but restock failed: %v", err)
			return loan, true, fmt.Errorf("restock item %s: %w", loan.ItemID, err)
		}
	}
	metrics.LoansClosed.WithLabelValues(string(actor)).Inc()
	log.Infof("loan closed")
	return loan, true, nil
}

func (e *Engine) restock(ctx context.Context, itemID, why string) {
	if _, err := e.items.Adjust(ctx, itemID, 1); err != nil {
		e.log.With(logger.Fields{"item": itemID}).Errorf("%s: restock failed: %v", why, err)
	}
}

func (e *Engine) reject(span trace.Span, op string, err error) {
	r := reason(err)
	metrics.LendingRejections.WithLabelValues(op, r).Inc()
	span.SetAttributes(attribute.String("rejection.reason", r))
	if r == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.log.Errorf("%s failed: %v", op, err)
		return
	}
	e.log.Debugf("%s rejected: %v", op, err)
}
