package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

// maxAmount matches a NUMERIC(10,2) column.
var maxAmount = decimal.RequireFromString("99999999.99")

const maxIntegerDigits = 8

// ExpenseInput holds the user-editable fields of an expense.
type ExpenseInput struct {
	Description string
	Amount      decimal.NullDecimal
	Category    models.Category
	ExpenseDate models.Date
}

// ParseInput converts raw request values into an ExpenseInput, checking the
// fields in the same order as validation: description, amount, category, date.
func ParseInput(description, amount, category, expenseDate string) (ExpenseInput, error) {
	in := ExpenseInput{Description: description}
	if strings.TrimSpace(description) == "" {
		return in, failure.Invalid("description is required")
	}

	amount = strings.TrimSpace(amount)
	if amount == "" {
		return in, failure.Invalid("amount is required")
	}
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return in, failure.Invalid("invalid amount format")
	}
	in.Amount = decimal.NewNullDecimal(value)
	if err := checkAmount(in.Amount); err != nil {
		return in, err
	}

	if strings.TrimSpace(category) == "" {
		return in, failure.Invalid("category is required")
	}
	c, err := models.ParseCategory(category)
	if err != nil {
		return in, invalidCategory()
	}
	in.Category = c

	if strings.TrimSpace(expenseDate) == "" {
		return in, failure.Invalid("expense date is required")
	}
	d, err := models.ParseDate(expenseDate)
	if err != nil {
		return in, failure.Invalid("invalid date format, use YYYY-MM-DD")
	}
	in.ExpenseDate = d

	return in, nil
}

// normalize validates the input and returns it with a trimmed description and
// an amount rounded to cents.
func (in ExpenseInput) normalize() (ExpenseInput, error) {
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return in, failure.Invalid("description is required")
	}
	in.Description = description

	if err := checkAmount(in.Amount); err != nil {
		return in, err
	}
	in.Amount = decimal.NewNullDecimal(in.Amount.Decimal.Round(2))

	if in.Category == "" {
		return in, failure.Invalid("category is required")
	}
	if !in.Category.Valid() {
		return in, invalidCategory()
	}

	if in.ExpenseDate.IsZero() {
		return in, failure.Invalid("expense date is required")
	}

	return in, nil
}

func checkAmount(amount decimal.NullDecimal) error {
	if !amount.Valid {
		return failure.Invalid("amount is required")
	}
	d := amount.Decimal
	if d.Sign() <= 0 {
		return failure.Invalid("amount must be positive")
	}

	// Round and Cmp rescale to a common exponent, so an amount like 1e2000000000
	// must be rejected from its digit count before either runs.
	magnitude := len(d.Coefficient().String()) + int(d.Exponent())
	switch {
	case magnitude > maxIntegerDigits:
		return failure.Invalid("amount is too large")
	case magnitude < -2:
		// below 0.001, rounds to zero
		return failure.Invalid("amount must be positive")
	}

	rounded := d.Round(2)
	if !rounded.IsPositive() {
		return failure.Invalid("amount must be positive")
	}
	if rounded.GreaterThan(maxAmount) {
		return failure.Invalid("amount is too large")
	}
	return nil
}

func invalidCategory() error {
	return failure.Invalid("invalid category, valid categories: " + models.CategoryCodes())
}
