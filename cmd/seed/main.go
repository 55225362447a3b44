package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/expense-ledger/internal/auth"
	"github.com/wuwenbin0122/expense-ledger/internal/db"
	"github.com/wuwenbin0122/expense-ledger/internal/ledger"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
	"github.com/wuwenbin0122/expense-ledger/internal/utils"
)

type seedExpense struct {
	description string
	amount      string
	category    models.Category
	daysAgo     int
}

// Spread across the week, month and three-month windows so every list
// filter returns something different.
var demoExpenses = []seedExpense{
	{"Weekly groceries", "64.20", models.CategoryGroceries, 0},
	{"Cinema tickets", "24.00", models.CategoryLeisure, 2},
	{"Pharmacy", "12.75", models.CategoryHealth, 6},
	{"Electricity bill", "89.90", models.CategoryUtilities, 12},
	{"Running shoes", "110.00", models.CategoryClothing, 20},
	{"USB-C hub", "39.99", models.CategoryElectronics, 45},
	{"Internet", "35.00", models.CategoryUtilities, 70},
	{"Gift", "50.00", models.CategoryOthers, 120},
}

type options struct {
	username string
	email    string
	password string
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("config: no .env file loaded: %v", err)
	}

	var opts options
	flag.StringVar(&opts.username, "user", "demo", "Username of the demo account")
	flag.StringVar(&opts.email, "email", "demo@example.com", "Email of the demo account")
	flag.StringVar(&opts.password, "password", "demo1234", "Password of the demo account")
	flag.Parse()

	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := utils.MustNewLogger(cfg.Logging)
	defer logger.Sync()

	ctx := context.Background()

	store, err := db.Open(ctx, cfg)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer store.Close(ctx)

	if err := seed(ctx, store, opts, time.Now, os.Stdout); err != nil {
		logger.Fatal("seed failed", zap.Error(err))
	}
}

func seed(ctx context.Context, store db.Store, opts options, now func() time.Time, out io.Writer) error {
	directory, err := auth.NewDirectory(store, auth.BcryptHasher{}, nil, auth.WithDirectoryClock(now))
	if err != nil {
		return err
	}
	expenses, err := ledger.New(store, ledger.WithClock(now))
	if err != nil {
		return err
	}

	user, err := directory.Lookup(ctx, opts.username)
	if err != nil {
		return err
	}
	if user != nil {
		fmt.Fprintf(out, "user %s already exists, skipping\n", user.Username)
		return nil
	}

	user, err = directory.Register(ctx, opts.username, opts.email, opts.password)
	if err != nil {
		return fmt.Errorf("register %s: %w", opts.username, err)
	}

	logger := utils.Logger().With(zap.String("user", user.Username), zap.Int64("user_id", user.ID))

	today := models.DateOf(now())
	for _, e := range demoExpenses {
		created, err := expenses.Create(ctx, user.ID, ledger.ExpenseInput{
			Description: e.description,
			Amount:      decimal.NewNullDecimal(decimal.RequireFromString(e.amount)),
			Category:    e.category,
			ExpenseDate: today.AddDays(-e.daysAgo),
		})
		if err != nil {
			return fmt.Errorf("create %q: %w", e.description, err)
		}
		logger.Debug("seeded expense",
			zap.Int64("id", created.ID),
			zap.String("description", created.Description),
			zap.String("expense_date", created.ExpenseDate.String()),
		)
	}
	logger.Info("seeded demo account", zap.Int("expenses", len(demoExpenses)))

	fmt.Fprintf(out, "seeded user %s (id %d) with %d expenses\n", user.Username, user.ID, len(demoExpenses))
	return nil
}
