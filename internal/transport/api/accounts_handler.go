package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/money"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AccountsHandler struct {
	accountSvs AccountServicer
}

func NewAccountsHandler(accountSvs AccountServicer) *AccountsHandler {
	return &AccountsHandler{accountSvs: accountSvs}
}

type CreateAccountRequest struct {
	Currency string `json:"currency" binding:"required,currency"`
}

// AccountResponse Balance в минимальных единицах валюты, BalanceDecimal в основных, например "12.34".
type AccountResponse struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	Balance        int64     `json:"balance"`
	BalanceDecimal string    `json:"balance_decimal"`
	Currency       string    `json:"currency"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newAccountResponse(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		Balance:        a.Balance,
		BalanceDecimal: money.Format(a.Balance, a.Currency),
		Currency:       a.Currency,
		Status:         a.Status.String(),
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// Create POST RouteGroup + AccountsRoute.
func (h *AccountsHandler) Create(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	account, err := h.accountSvs.Create(reqCtx, caller, req.Currency)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, newAccountResponse(account))
}

// Index GET RouteGroup + AccountsRoute.
func (h *AccountsHandler) Index(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	accounts, err := h.accountSvs.List(reqCtx, caller)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var response = make([]AccountResponse, len(accounts))
	for i := range accounts {
		response[i] = newAccountResponse(&accounts[i])
	}
	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + AccountRoute.
func (h *AccountsHandler) Show(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}
	id, ok := bindID(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	account, err := h.accountSvs.Get(reqCtx, caller, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newAccountResponse(account))
}
