package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a single spending entry owned by one user.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"-"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	ExpenseDate Date            `json:"expense_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
