package ledger_test

import (
	"context"
	"sort"
	"sync"

	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	expenses map[int64]models.Expense
	err      error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{expenses: make(map[int64]models.Expense)}
}

func (m *memoryStore) InsertExpense(_ context.Context, e *models.Expense) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.nextID++
	stored := *e
	stored.ID = m.nextID
	m.expenses[stored.ID] = stored
	return &stored, nil
}

func (m *memoryStore) UpdateExpense(_ context.Context, e *models.Expense) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	current, ok := m.expenses[e.ID]
	if !ok || current.UserID != e.UserID {
		return nil, nil
	}
	current.Description = e.Description
	current.Amount = e.Amount
	current.Category = e.Category
	current.ExpenseDate = e.ExpenseDate
	current.UpdatedAt = e.UpdatedAt
	m.expenses[e.ID] = current
	return &current, nil
}

func (m *memoryStore) FindExpense(_ context.Context, id, userID int64) (*models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.expenses[id]
	if !ok || e.UserID != userID {
		return nil, nil
	}
	return &e, nil
}

func (m *memoryStore) list(userID int64, keep func(models.Expense) bool) ([]models.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []models.Expense
	for _, e := range m.expenses {
		if e.UserID == userID && keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExpenseDate.Equal(out[j].ExpenseDate) {
			return out[i].ExpenseDate.After(out[j].ExpenseDate)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memoryStore) ListExpenses(_ context.Context, userID int64) ([]models.Expense, error) {
	return m.list(userID, func(models.Expense) bool { return true })
}

func (m *memoryStore) ListExpensesBetween(_ context.Context, userID int64, from, to models.Date) ([]models.Expense, error) {
	return m.list(userID, func(e models.Expense) bool {
		return !e.ExpenseDate.Before(from) && !e.ExpenseDate.After(to)
	})
}

func (m *memoryStore) ExpenseExists(ctx context.Context, id, userID int64) (bool, error) {
	e, err := m.FindExpense(ctx, id, userID)
	return e != nil, err
}

func (m *memoryStore) DeleteExpense(_ context.Context, id, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if e, ok := m.expenses[id]; ok && e.UserID == userID {
		delete(m.expenses, id)
	}
	return nil
}
