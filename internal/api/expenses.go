package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/ledger"
	"github.com/wuwenbin0122/expense-ledger/internal/models"
)

const timeLayout = time.RFC3339

type expenseRequest struct {
	Description string          `json:"description"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	ExpenseDate string          `json:"expense_date"`
}

// input accepts the amount either as a JSON number or as a string.
func (r expenseRequest) input() (ledger.ExpenseInput, error) {
	return ledger.ParseInput(r.Description, amountText(r.Amount), r.Category, r.ExpenseDate)
}

func amountText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return string(raw)
		}
		return s
	}
	return string(raw)
}

type expenseView struct {
	ID           int64           `json:"id"`
	Description  string          `json:"description"`
	Amount       json.Number     `json:"amount"`
	Category     models.Category `json:"category"`
	CategoryCode string          `json:"category_code"`
	ExpenseDate  models.Date     `json:"expense_date"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
}

func newExpenseView(e models.Expense) expenseView {
	return expenseView{
		ID:           e.ID,
		Description:  e.Description,
		Amount:       json.Number(e.Amount.StringFixed(2)),
		Category:     e.Category,
		CategoryCode: string(e.Category),
		ExpenseDate:  e.ExpenseDate,
		CreatedAt:    e.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:    e.UpdatedAt.UTC().Format(timeLayout),
	}
}

func (h *Handler) handleListExpenses(c *gin.Context) {
	filter, err := ledger.ParseFilter(c.Query("filter"), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	expenses, err := h.ledger.List(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	views := make([]expenseView, 0, len(expenses))
	for _, e := range expenses {
		views = append(views, newExpenseView(e))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "Expenses retrieved successfully",
		"count":    len(views),
		"expenses": views,
	})
}

func (h *Handler) handleGetExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	expense, err := h.ledger.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if expense == nil {
		writeMessage(c, http.StatusNotFound, "Expense not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"expense": newExpenseView(*expense),
	})
}

func (h *Handler) handleCreateExpense(c *gin.Context) {
	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	in, err := req.input()
	if err != nil {
		h.writeError(c, err)
		return
	}

	expense, err := h.ledger.Create(c.Request.Context(), currentUser(c), in)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Expense created successfully",
		"expense": newExpenseView(*expense),
	})
}

func (h *Handler) handleUpdateExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	var req expenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	// a missing or foreign id is a 404 even when the body is invalid
	in, parseErr := req.input()
	if parseErr != nil {
		existing, err := h.ledger.Get(c.Request.Context(), currentUser(c), id)
		switch {
		case err != nil:
			h.writeError(c, err)
		case existing == nil:
			writeMessage(c, http.StatusNotFound, "Expense not found")
		default:
			h.writeError(c, parseErr)
		}
		return
	}

	expense, err := h.ledger.Update(c.Request.Context(), currentUser(c), id, in)
	if err != nil {
		if errors.Is(err, failure.ErrNotFound) {
			writeMessage(c, http.StatusNotFound, "Expense not found")
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Expense updated successfully",
		"expense": newExpenseView(*expense),
	})
}

func (h *Handler) handleDeleteExpense(c *gin.Context) {
	id, ok := expenseID(c)
	if !ok {
		return
	}

	deleted, err := h.ledger.Delete(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"deleted": false,
			"message": "Expense not found",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"deleted": true,
		"message": "Expense deleted successfully",
	})
}

type categoryView struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) handleCategories(c *gin.Context) {
	categories := models.Categories()
	views := make([]categoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, categoryView{Code: string(category), Name: category.DisplayName()})
	}
	c.JSON(http.StatusOK, views)
}

func expenseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(c, http.StatusBadRequest, "invalid expense id")
		return 0, false
	}
	return id, true
}
