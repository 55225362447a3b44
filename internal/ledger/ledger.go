// Package ledger owns expense records. Every operation is scoped to the
// caller's user id; an expense owned by someone else is reported exactly like
// one that does not exist.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

var ErrStoreRequired = errors.New("ledger: expense store required")

// Store is the persistence the ledger needs. Lists are ordered by expense
// date descending, then id descending. Find returns (nil, nil) when no
// expense matches the id and owner.
type Store interface {
	InsertExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error)
	UpdateExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error)
	FindExpense(ctx context.Context, id, userID int64) (*models.Expense, error)
	ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error)
	ListExpensesBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Expense, error)
	ExpenseExists(ctx context.Context, id, userID int64) (bool, error)
	DeleteExpense(ctx context.Context, id, userID int64) error
}

type Ledger struct {
	store Store
	now   func() time.Time
}

type Option func(*Ledger)

// WithClock overrides the time source for timestamps and relative filters.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func New(store Store, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	l := &Ledger{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Ledger) Create(ctx context.Context, userID int64, in ExpenseInput) (*models.Expense, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	now := l.now().UTC()
	expense, err := l.store.InsertExpense(ctx, &models.Expense{
		UserID:      userID,
		Description: in.Description,
		Amount:      in.Amount.Decimal,
		Category:    in.Category,
		ExpenseDate: in.ExpenseDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, failure.Storage("insert expense", err)
	}
	return expense, nil
}

// List returns the user's expenses matching f, newest expense date first.
// Relative filters are evaluated against the current day on every call.
func (l *Ledger) List(ctx context.Context, userID int64, f Filter) ([]models.Expense, error) {
	from, to, bounded, err := f.Range(models.DateOf(l.now()))
	if err != nil {
		return nil, err
	}

	var expenses []models.Expense
	if bounded {
		expenses, err = l.store.ListExpensesBetween(ctx, userID, from, to)
	} else {
		expenses, err = l.store.ListExpenses(ctx, userID)
	}
	if err != nil {
		return nil, failure.Storage("list expenses", err)
	}
	if expenses == nil {
		expenses = []models.Expense{}
	}
	return expenses, nil
}

func (l *Ledger) Get(ctx context.Context, userID, expenseID int64) (*models.Expense, error) {
	expense, err := l.store.FindExpense(ctx, expenseID, userID)
	if err != nil {
		return nil, failure.Storage("find expense", err)
	}
	return expense, nil
}

// Update overwrites the editable fields of an owned expense. The owner and
// creation time never change.
func (l *Ledger) Update(ctx context.Context, userID, expenseID int64, in ExpenseInput) (*models.Expense, error) {
	existing, err := l.store.FindExpense(ctx, expenseID, userID)
	if err != nil {
		return nil, failure.Storage("find expense", err)
	}
	if existing == nil {
		return nil, errExpenseNotFound()
	}

	in, err = in.normalize()
	if err != nil {
		return nil, err
	}

	existing.Description = in.Description
	existing.Amount = in.Amount.Decimal
	existing.Category = in.Category
	existing.ExpenseDate = in.ExpenseDate
	existing.UpdatedAt = l.now().UTC()

	updated, err := l.store.UpdateExpense(ctx, existing)
	if err != nil {
		return nil, failure.Storage("update expense", err)
	}
	if updated == nil {
		return nil, errExpenseNotFound()
	}
	return updated, nil
}

// Delete removes an owned expense. It reports false, not an error, when the
// user owns no expense with that id.
func (l *Ledger) Delete(ctx context.Context, userID, expenseID int64) (bool, error) {
	exists, err := l.store.ExpenseExists(ctx, expenseID, userID)
	if err != nil {
		return false, failure.Storage("check expense", err)
	}
	if !exists {
		return false, nil
	}

	if err := l.store.DeleteExpense(ctx, expenseID, userID); err != nil {
		return false, failure.Storage("delete expense", err)
	}
	return true, nil
}

func errExpenseNotFound() error {
	return failure.New(failure.NotFound, "expense not found")
}
