package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

const pgUniqueViolation = "23505"

const expenseColumns = "id, user_id, description, amount::text, category, expense_date, created_at, updated_at"

const userColumns = "id, username, email, password_hash, created_at"

func (p *Postgres) InsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	row := p.Pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)

	stored, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, duplicateUser(pgErr.ConstraintName)
		}
		return nil, fmt.Errorf("postgres: insert user: %w", err)
	}
	return stored, nil
}

func (p *Postgres) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.findUser(ctx, "email", email)
}

func (p *Postgres) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.findUser(ctx, "username", username)
}

func (p *Postgres) findUser(ctx context.Context, column, value string) (*models.User, error) {
	row := p.Pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+column+" = $1", value)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find user by %s: %w", column, err)
	}
	return user, nil
}

func (p *Postgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return p.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email)
}

func (p *Postgres) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return p.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)", username)
}

func (p *Postgres) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := p.Pool.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: exists: %w", err)
	}
	return exists, nil
}

func (p *Postgres) InsertExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	row := p.Pool.QueryRow(ctx,
		`INSERT INTO expenses (user_id, description, amount, category, expense_date, created_at, updated_at)
		 VALUES ($1, $2, $3::numeric, $4, $5, $6, $7)
		 RETURNING `+expenseColumns,
		e.UserID, e.Description, e.Amount.StringFixed(2), e.Category.DisplayName(), e.ExpenseDate.Time(), e.CreatedAt, e.UpdatedAt,
	)

	stored, err := scanExpense(row)
	if err != nil {
		return nil, fmt.Errorf("postgres: insert expense: %w", err)
	}
	return stored, nil
}

func (p *Postgres) UpdateExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	row := p.Pool.QueryRow(ctx,
		`UPDATE expenses
		 SET description = $1, amount = $2::numeric, category = $3, expense_date = $4, updated_at = $5
		 WHERE id = $6 AND user_id = $7
		 RETURNING `+expenseColumns,
		e.Description, e.Amount.StringFixed(2), e.Category.DisplayName(), e.ExpenseDate.Time(), e.UpdatedAt, e.ID, e.UserID,
	)

	stored, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: update expense: %w", err)
	}
	return stored, nil
}

func (p *Postgres) FindExpense(ctx context.Context, id, userID int64) (*models.Expense, error) {
	row := p.Pool.QueryRow(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE id = $1 AND user_id = $2",
		id, userID,
	)

	e, err := scanExpense(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find expense: %w", err)
	}
	return e, nil
}

func (p *Postgres) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	return p.listExpenses(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE user_id = $1 ORDER BY expense_date DESC, id DESC",
		userID,
	)
}

func (p *Postgres) ListExpensesBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Expense, error) {
	return p.listExpenses(ctx,
		`SELECT `+expenseColumns+` FROM expenses
		 WHERE user_id = $1 AND expense_date BETWEEN $2 AND $3
		 ORDER BY expense_date DESC, id DESC`,
		userID, from.Time(), to.Time(),
	)
}

func (p *Postgres) listExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := p.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}

func (p *Postgres) ExpenseExists(ctx context.Context, id, userID int64) (bool, error) {
	return p.exists(ctx, "SELECT EXISTS (SELECT 1 FROM expenses WHERE id = $1 AND user_id = $2)", id, userID)
}

func (p *Postgres) DeleteExpense(ctx context.Context, id, userID int64) error {
	if _, err := p.Pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1 AND user_id = $2", id, userID); err != nil {
		return fmt.Errorf("postgres: delete expense: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var (
		e        models.Expense
		amount   string
		category string
		date     time.Time
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Description, &amount, &category, &date, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeExpense(&e, amount, category, models.DateOf(date)); err != nil {
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}

func duplicateUser(constraint string) error {
	switch {
	case strings.Contains(constraint, "email"):
		return failure.New(failure.DuplicateIdentity, "email already exists")
	case strings.Contains(constraint, "username"):
		return failure.New(failure.DuplicateIdentity, "username already exists")
	default:
		return failure.New(failure.DuplicateIdentity, "user already exists")
	}
}
