package db_test

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/wuwenbin0122/expense-ledger/internal/db"
	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

// storeSuite runs the same behavioural checks against every backend.
type storeSuite struct {
	suite.Suite
	open  func() db.Store
	store db.Store
	ctx   context.Context
}

func (s *storeSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.open()
}

func (s *storeSuite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close(s.ctx))
	}
}

func (s *storeSuite) newUser() *models.User {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	user, err := s.store.InsertUser(s.ctx, &models.User{
		Username:     "user_" + suffix,
		Email:        suffix + "@example.com",
		PasswordHash: "hash",
		CreatedAt:    time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.Require().NotZero(user.ID)
	return user
}

func (s *storeSuite) addExpense(userID int64, description, amount string, date models.Date) *models.Expense {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	e, err := s.store.InsertExpense(s.ctx, &models.Expense{
		UserID:      userID,
		Description: description,
		Amount:      decimal.RequireFromString(amount),
		Category:    models.CategoryGroceries,
		ExpenseDate: date,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	s.Require().NoError(err)
	return e
}

func (s *storeSuite) TestUserLookups() {
	user := s.newUser()

	byEmail, err := s.store.FindUserByEmail(s.ctx, user.Email)
	s.Require().NoError(err)
	s.Require().NotNil(byEmail)
	s.Equal(user.ID, byEmail.ID)
	s.Equal("hash", byEmail.PasswordHash)

	byName, err := s.store.FindUserByUsername(s.ctx, user.Username)
	s.Require().NoError(err)
	s.Require().NotNil(byName)
	s.Equal(user.Email, byName.Email)

	missing, err := s.store.FindUserByEmail(s.ctx, "nobody@example.com")
	s.NoError(err)
	s.Nil(missing)

	exists, err := s.store.ExistsByEmail(s.ctx, user.Email)
	s.NoError(err)
	s.True(exists)
	exists, err = s.store.ExistsByUsername(s.ctx, "nobody")
	s.NoError(err)
	s.False(exists)
}

func (s *storeSuite) TestDuplicateUserIsTyped() {
	user := s.newUser()

	_, err := s.store.InsertUser(s.ctx, &models.User{
		Username:     "other_" + user.Username,
		Email:        user.Email,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	})
	s.Require().Error(err)
	s.ErrorIs(err, failure.ErrDuplicateIdentity)
	s.Equal("email already exists", failure.ReasonOf(err))

	_, err = s.store.InsertUser(s.ctx, &models.User{
		Username:     user.Username,
		Email:        "other." + user.Email,
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	})
	s.Require().Error(err)
	s.Equal("username already exists", failure.ReasonOf(err))
}

func (s *storeSuite) TestExpenseRoundTrip() {
	user := s.newUser()
	created := s.addExpense(user.ID, "Milk", "2.50", models.NewDate(2024, 3, 15))

	found, err := s.store.FindExpense(s.ctx, created.ID, user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("Milk", found.Description)
	s.Equal("2.50", found.Amount.StringFixed(2))
	s.Equal(models.CategoryGroceries, found.Category)
	s.Equal("2024-03-15", found.ExpenseDate.String())
	s.Equal(user.ID, found.UserID)
}

func (s *storeSuite) TestOrderingAndRange() {
	user := s.newUser()
	first := s.addExpense(user.ID, "a", "1.00", models.NewDate(2024, 3, 10))
	second := s.addExpense(user.ID, "b", "2.00", models.NewDate(2024, 3, 10))
	latest := s.addExpense(user.ID, "c", "3.00", models.NewDate(2024, 3, 20))
	s.addExpense(user.ID, "d", "4.00", models.NewDate(2024, 2, 1))

	all, err := s.store.ListExpenses(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal(latest.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID, "same-day entries fall back to id descending")
	s.Equal(first.ID, all[2].ID)

	ranged, err := s.store.ListExpensesBetween(s.ctx, user.ID, models.NewDate(2024, 3, 10), models.NewDate(2024, 3, 20))
	s.Require().NoError(err)
	s.Len(ranged, 3, "both bounds are inclusive")

	empty, err := s.store.ListExpensesBetween(s.ctx, user.ID, models.NewDate(2024, 3, 21), models.NewDate(2024, 3, 1))
	s.Require().NoError(err)
	s.NotNil(empty)
	s.Empty(empty)
}

func (s *storeSuite) TestOwnershipIsEnforced() {
	owner := s.newUser()
	other := s.newUser()
	e := s.addExpense(owner.ID, "Rent", "900.00", models.NewDate(2024, 3, 1))

	found, err := s.store.FindExpense(s.ctx, e.ID, other.ID)
	s.NoError(err)
	s.Nil(found)

	exists, err := s.store.ExpenseExists(s.ctx, e.ID, other.ID)
	s.NoError(err)
	s.False(exists)

	list, err := s.store.ListExpenses(s.ctx, other.ID)
	s.NoError(err)
	s.Empty(list)

	s.Require().NoError(s.store.DeleteExpense(s.ctx, e.ID, other.ID))
	exists, err = s.store.ExpenseExists(s.ctx, e.ID, owner.ID)
	s.NoError(err)
	s.True(exists, "another user's delete must not remove the row")

	hijack := *e
	hijack.UserID = other.ID
	updated, err := s.store.UpdateExpense(s.ctx, &hijack)
	s.NoError(err)
	s.Nil(updated)
}

func (s *storeSuite) TestUpdateAndDelete() {
	user := s.newUser()
	e := s.addExpense(user.ID, "Milk", "2.50", models.NewDate(2024, 3, 15))

	e.Description = "Oat milk"
	e.Amount = decimal.RequireFromString("3.10")
	e.Category = models.CategoryHealth
	e.ExpenseDate = models.NewDate(2024, 3, 16)
	e.UpdatedAt = time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	updated, err := s.store.UpdateExpense(s.ctx, e)
	s.Require().NoError(err)
	s.Require().NotNil(updated)
	s.Equal("Oat milk", updated.Description)
	s.Equal("3.10", updated.Amount.StringFixed(2))
	s.Equal(models.CategoryHealth, updated.Category)
	s.Equal("2024-03-16", updated.ExpenseDate.String())
	s.True(updated.UpdatedAt.Equal(e.UpdatedAt))

	s.Require().NoError(s.store.DeleteExpense(s.ctx, e.ID, user.ID))
	exists, err := s.store.ExpenseExists(s.ctx, e.ID, user.ID)
	s.NoError(err)
	s.False(exists)
}
