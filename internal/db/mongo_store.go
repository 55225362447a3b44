package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

type mongoUser struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

type mongoExpense struct {
	ID          int64                `bson:"_id"`
	UserID      int64                `bson:"user_id"`
	Description string               `bson:"description"`
	Amount      primitive.Decimal128 `bson:"amount"`
	Category    string               `bson:"category"`
	ExpenseDate time.Time            `bson:"expense_date"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

func (u mongoUser) model() *models.User {
	return &models.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC(),
	}
}

func (d mongoExpense) model() (*models.Expense, error) {
	e := &models.Expense{
		ID:          d.ID,
		UserID:      d.UserID,
		Description: d.Description,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
	if err := decodeExpense(e, d.Amount.String(), d.Category, models.DateOf(d.ExpenseDate)); err != nil {
		return nil, err
	}
	return e, nil
}

func toMongoExpense(e *models.Expense) (mongoExpense, error) {
	amount, err := primitive.ParseDecimal128(e.Amount.StringFixed(2))
	if err != nil {
		return mongoExpense{}, fmt.Errorf("mongo: encode amount: %w", err)
	}
	return mongoExpense{
		ID:          e.ID,
		UserID:      e.UserID,
		Description: e.Description,
		Amount:      amount,
		Category:    e.Category.DisplayName(),
		ExpenseDate: e.ExpenseDate.Time(),
		CreatedAt:   e.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:   e.UpdatedAt.UTC().Truncate(time.Millisecond),
	}, nil
}

func (m *Mongo) InsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	id, err := m.nextID(ctx, "users")
	if err != nil {
		return nil, err
	}

	doc := mongoUser{
		ID:           id,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt.UTC().Truncate(time.Millisecond),
	}
	if _, err := m.Users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, duplicateUser(err.Error())
		}
		return nil, fmt.Errorf("mongo: insert user: %w", err)
	}
	return doc.model(), nil
}

func (m *Mongo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email})
}

func (m *Mongo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"username": username})
}

func (m *Mongo) findUser(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc mongoUser
	if err := m.Users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: find user: %w", err)
	}
	return doc.model(), nil
}

func (m *Mongo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return m.exists(ctx, m.Users, bson.M{"email": email})
}

func (m *Mongo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return m.exists(ctx, m.Users, bson.M{"username": username})
}

func (m *Mongo) exists(ctx context.Context, coll *mongo.Collection, filter bson.M) (bool, error) {
	n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("mongo: count %s: %w", coll.Name(), err)
	}
	return n > 0, nil
}

func (m *Mongo) InsertExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	id, err := m.nextID(ctx, "expenses")
	if err != nil {
		return nil, err
	}

	stored := *e
	stored.ID = id
	doc, err := toMongoExpense(&stored)
	if err != nil {
		return nil, err
	}
	if _, err := m.Expenses.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongo: insert expense: %w", err)
	}
	return doc.model()
}

func (m *Mongo) UpdateExpense(ctx context.Context, e *models.Expense) (*models.Expense, error) {
	doc, err := toMongoExpense(e)
	if err != nil {
		return nil, err
	}

	var updated mongoExpense
	err = m.Expenses.FindOneAndUpdate(ctx,
		bson.M{"_id": e.ID, "user_id": e.UserID},
		bson.M{"$set": bson.M{
			"description":  doc.Description,
			"amount":       doc.Amount,
			"category":     doc.Category,
			"expense_date": doc.ExpenseDate,
			"updated_at":   doc.UpdatedAt,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: update expense: %w", err)
	}
	return updated.model()
}

func (m *Mongo) FindExpense(ctx context.Context, id, userID int64) (*models.Expense, error) {
	var doc mongoExpense
	if err := m.Expenses.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongo: find expense: %w", err)
	}
	return doc.model()
}

func (m *Mongo) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	return m.listExpenses(ctx, bson.M{"user_id": userID})
}

func (m *Mongo) ListExpensesBetween(ctx context.Context, userID int64, from, to models.Date) ([]models.Expense, error) {
	return m.listExpenses(ctx, bson.M{
		"user_id":      userID,
		"expense_date": bson.M{"$gte": from.Time(), "$lte": to.Time()},
	})
}

func (m *Mongo) listExpenses(ctx context.Context, filter bson.M) ([]models.Expense, error) {
	opts := options.Find().SetSort(bson.D{{Key: "expense_date", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := m.Expenses.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: list expenses: %w", err)
	}
	defer cursor.Close(ctx)

	expenses := []models.Expense{}
	for cursor.Next(ctx) {
		var doc mongoExpense
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: decode expense: %w", err)
		}
		e, err := doc.model()
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongo: iterate expenses: %w", err)
	}
	return expenses, nil
}

func (m *Mongo) ExpenseExists(ctx context.Context, id, userID int64) (bool, error) {
	return m.exists(ctx, m.Expenses, bson.M{"_id": id, "user_id": userID})
}

func (m *Mongo) DeleteExpense(ctx context.Context, id, userID int64) error {
	if _, err := m.Expenses.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID}); err != nil {
		return fmt.Errorf("mongo: delete expense: %w", err)
	}
	return nil
}
