package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/expense-ledger/internal/auth"
	"github.com/wuwenbin0122/expense-ledger/internal/failure"
	"github.com/wuwenbin0122/expense-ledger/internal/ledger"
	"github.com/wuwenbin0122/expense-ledger/internal/utils"
)

const invalidCredentialsMessage = "Invalid email or password"

type Handler struct {
	directory *auth.Directory
	ledger    *ledger.Ledger
	tokens    auth.Verifier
	logger    *zap.Logger
}

func NewHandler(directory *auth.Directory, expenses *ledger.Ledger, tokens auth.Verifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = utils.Logger()
	}
	return &Handler{directory: directory, ledger: expenses, tokens: tokens, logger: logger}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	apiGroup := router.Group("/api")

	userGroup := apiGroup.Group("/users")
	userGroup.POST("/register", h.handleRegister)
	userGroup.POST("/login", h.handleLogin)

	apiGroup.GET("/categories", h.handleCategories)

	expenseGroup := apiGroup.Group("/expenses", RequireUser(h.tokens))
	expenseGroup.GET("", h.handleListExpenses)
	expenseGroup.POST("", h.handleCreateExpense)
	expenseGroup.GET("/:id", h.handleGetExpense)
	expenseGroup.PUT("/:id", h.handleUpdateExpense)
	expenseGroup.DELETE("/:id", h.handleDeleteExpense)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	user, err := h.directory.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    user,
	})
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeMessage(c, http.StatusBadRequest, "invalid payload")
		return
	}

	result, err := h.directory.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, failure.ErrUnauthorized) {
			writeMessage(c, http.StatusUnauthorized, invalidCredentialsMessage)
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Login successful",
		"token":     result.Token,
		"expiresAt": result.ExpiresAt.UTC().Format(timeLayout),
		"user":      result.User,
	})
}

// writeError maps typed failures to a status and a client-safe message.
// Anything that is not a caller mistake is logged and reported generically.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(failure.KindOf(err))
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err),
		)
		writeMessage(c, status, "internal server error")
		return
	}
	writeMessage(c, status, failure.ReasonOf(err))
}

func statusFor(kind failure.Kind) int {
	switch kind {
	case failure.Validation, failure.WeakCredential:
		return http.StatusBadRequest
	case failure.DuplicateIdentity:
		return http.StatusConflict
	case failure.Unauthorized:
		return http.StatusUnauthorized
	case failure.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}
