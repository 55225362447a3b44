// Package db holds the persistence backends. Each backend implements both
// the account store and the expense store.
package db

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wuwenbin0122/expense-ledger/internal/auth"
	"github.com/wuwenbin0122/expense-ledger/internal/ledger"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
	"github.com/wuwenbin0122/expense-ledger/internal/utils"
)

type Store interface {
	auth.UserStore
	ledger.Store
	Close(ctx context.Context) error
}

var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Mongo)(nil)
	_ Store = (*SQLite)(nil)
)

// Open connects to the backend selected by cfg.Storage.Driver and makes sure
// its schema exists.
func Open(ctx context.Context, cfg *utils.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case utils.DriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close(ctx)
			return nil, fmt.Errorf("postgres: ping: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close(ctx)
			return nil, err
		}
		return pg, nil
	case utils.DriverMongo:
		m, err := NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureCollections(ctx); err != nil {
			m.Close(ctx)
			return nil, err
		}
		return m, nil
	case utils.DriverSQLite, "":
		return NewSQLite(ctx, cfg.Storage.SQLitePath)
	default:
		return nil, fmt.Errorf("db: unknown storage driver %q", cfg.Storage.Driver)
	}
}

// decodeExpense fills the columns every backend stores as text.
func decodeExpense(e *models.Expense, amount, category string, date models.Date) error {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return fmt.Errorf("decode amount %q: %w", amount, err)
	}
	c, err := models.ParseCategory(category)
	if err != nil {
		return err
	}
	e.Amount = value
	e.Category = c
	e.ExpenseDate = date
	return nil
}
