package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

const sqliteTimeLayout = time.RFC3339Nano

// SQLite is the single-file backend used for local runs and tests.
type SQLite struct {
	conn *sql.DB
}

// NewSQLite opens path (or ":memory:") and runs migrations.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	// every connection to :memory: is a separate database
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	s := &SQLite{conn: conn}
	if err := s.EnsureSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLite) EnsureSchema(ctx context.Context) error {
	migrations := []string{
		`PRAGMA foreign_keys = ON`,
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL REFERENCES users(id),
			description TEXT NOT NULL,
			amount TEXT NOT NULL,
			category TEXT NOT NULL,
			expense_date TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS expenses_user_date_idx ON expenses (user_id, expense_date DESC, id DESC)`,
	}

	for _, m := range migrations {
		if _, err := s.conn.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Close(context.Context) error {
	return s.conn.Close()
}

func (s *SQLite) InsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	result, err := s.conn.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		user.Username, user.Email, user.PasswordHash, formatTime(user.CreatedAt),
	)
	if err != nil {
		var sqliteErr *sqlite.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return nil, duplicateUser(sqliteErr.Error())
		}
		return nil, fmt.Errorf("sqlite: insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert user: %w", err)
	}

	stored := *user
	stored.ID = id
	stored.CreatedAt = parseTime(formatTime(user.CreatedAt))
	return &stored, nil
}

func (s *SQLite) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email", email)
}

func (s *SQLite) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findUser(ctx, "username", username)
}

func (s *SQLite) findUser(ctx context.Context, column, value string) (*models.User, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE "+column+" = ?",
		value,
	)

	var (
		u       models.User
		created string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: find user by %s: %w", column, err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

func (s *SQLite) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE email = ?)", email)
}

func (s *SQLite) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE username = ?)", username)
}

func (s *SQLite) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var exists bool
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlite: exists: %w", err)
	}
	return exists, nil
}

func (s *SQLite) InsertExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO expenses (user_id, description, amount, category, expense_date, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Description, e.Amount.StringFixed(2), e.Category.DisplayName(), e.ExpenseDate.String(),
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlite: insert expense: %w", err)
	}
	return s.FindExpense(ctx, id, e.UserID)
}

func (s *SQLite) UpdateExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE expenses
		 SET description = ?, amount = ?, category = ?, expense_date = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		e.Description, e.Amount.StringFixed(2), e.Category.DisplayName(), e.ExpenseDate.String(),
		formatTime(e.UpdatedAt), e.ID, e.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: update expense: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: update expense: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}
	return s.FindExpense(ctx, e.ID, e.UserID)
}

const sqliteExpenseColumns = "id, user_id, description, amount, category, expense_date, created_at, updated_at"

func (s *SQLite) FindExpense(ctx context.Context, id, userID int64) (*models.Expense, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT "+sqliteExpenseColumns+" FROM expenses WHERE id = ? AND user_id = ?",
		id, userID,
	)

	e, err := scanSQLiteExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find expense: %w", err)
	}
	return e, nil
}

func (s *SQLite) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	return s.listExpenses(ctx,
		"SELECT "+sqliteExpenseColumns+" FROM expenses WHERE user_id = ? ORDER BY expense_date DESC, id DESC",
		userID,
	)
}

func (s *SQLite) ListExpensesBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Expense, error) {
	return s.listExpenses(ctx,
		`SELECT `+sqliteExpenseColumns+` FROM expenses
		 WHERE user_id = ? AND expense_date >= ? AND expense_date <= ?
		 ORDER BY expense_date DESC, id DESC`,
		userID, from.String(), to.String(),
	)
}

func (s *SQLite) listExpenses(ctx context.Context, query string, args ...any) ([]models.Expense, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		e, err := scanSQLiteExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan expense: %w", err)
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

func (s *SQLite) ExpenseExists(ctx context.Context, id, userID int64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS (SELECT 1 FROM expenses WHERE id = ? AND user_id = ?)", id, userID)
}

func (s *SQLite) DeleteExpense(ctx context.Context, id, userID int64) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("sqlite: delete expense: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteExpense(row rowScanner) (*models.Expense, error) {
	var (
		e                      models.Expense
		amount, category, date string
		createdAt, updatedAt   string
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Description, &amount, &category, &date, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	d, err := models.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("decode expense date %q: %w", date, err)
	}
	if err := decodeExpense(&e, amount, category, d); err != nil {
		return nil, err
	}
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
