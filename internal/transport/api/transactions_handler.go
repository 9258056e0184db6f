package api

import (
	"context"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/money"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type TransactionsHandler struct {
	processor TransactionProcessor
	querier   TransactionQuerier
}

func NewTransactionsHandler(processor TransactionProcessor, querier TransactionQuerier) *TransactionsHandler {
	return &TransactionsHandler{
		processor: processor,
		querier:   querier,
	}
}

// CreateTransactionRequest amount в минимальных единицах валюты. Нераспознанный transaction_type
// обрабатывается как transfer. Лимит description согласован с размером колонки transactions.description.
type CreateTransactionRequest struct {
	SourceAccountID      *uuid.UUID `json:"source_account_id"`
	DestinationAccountID *uuid.UUID `json:"destination_account_id"`
	Amount               int64      `json:"amount" binding:"gt=0"`
	Currency             string     `json:"currency" binding:"required,currency"`
	TransactionType      string     `json:"transaction_type"`
	Description          *string    `json:"description" binding:"omitempty,max_bytes=500"`
}

type ListTransactionsQuery struct {
	Page     uint `form:"page,default=1" binding:"gte=1"`
	PageSize uint `form:"page_size,default=10" binding:"gte=1,lte=100"`
}

type TransactionResponse struct {
	ID                   uuid.UUID  `json:"id"`
	SourceAccountID      *uuid.UUID `json:"source_account_id"`
	DestinationAccountID *uuid.UUID `json:"destination_account_id"`
	Amount               int64      `json:"amount"`
	AmountDecimal        string     `json:"amount_decimal"`
	Currency             string     `json:"currency"`
	Status               string     `json:"status"`
	TransactionType      string     `json:"transaction_type"`
	Description          *string    `json:"description"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type TransactionListResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	Total        int64                 `json:"total"`
	Page         uint                  `json:"page"`
	PageSize     uint                  `json:"page_size"`
}

type TransactionEventResponse struct {
	ID             uuid.UUID           `json:"id"`
	TransactionID  uuid.UUID           `json:"transaction_id"`
	PreviousStatus *string             `json:"previous_status"`
	NewStatus      string              `json:"new_status"`
	EventData      domain.EventPayload `json:"event_data"`
	CreatedAt      time.Time           `json:"created_at"`
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		AmountDecimal:        money.Format(t.Amount, t.Currency),
		Currency:             t.Currency,
		Status:               t.Status.String(),
		TransactionType:      t.Type.String(),
		Description:          t.Description,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}

func newTransactionEventResponse(e *domain.TransactionEvent) TransactionEventResponse {
	var prev *string
	if e.PreviousStatus != nil {
		s := e.PreviousStatus.String()
		prev = &s
	}
	return TransactionEventResponse{
		ID:             e.ID,
		TransactionID:  e.TransactionID,
		PreviousStatus: prev,
		NewStatus:      e.NewStatus.String(),
		EventData:      e.Payload,
		CreatedAt:      e.CreatedAt,
	}
}

// Create POST RouteGroup + TransactionsRoute.
func (h *TransactionsHandler) Create(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	transaction, err := h.processor.Process(reqCtx, caller, service.ProcessTransactionArgs{
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		Currency:             req.Currency,
		Type:                 req.TransactionType,
		Description:          req.Description,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, newTransactionResponse(transaction))
}

// Index GET RouteGroup + TransactionsRoute?page=&page_size=.
func (h *TransactionsHandler) Index(c *gin.Context) {
	caller, ok := currentCaller(c)
	if !ok {
		return
	}

	var query ListTransactionsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	page, err := h.querier.ListTransactions(reqCtx, caller, query.Page, query.PageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response := TransactionListResponse{
		Transactions: make([]TransactionResponse, len(page.Items)),
		Total:        page.Total,
		Page:         page.Page,
		PageSize:     page.PageSize,
	}
	for i := range page.Items {
		response.Transactions[i] = newTransactionResponse(&page.Items[i])
	}
	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + TransactionRoute.
func (h *TransactionsHandler) Show(c *gin.Context) {
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

	transaction, err := h.querier.GetTransaction(reqCtx, caller, id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newTransactionResponse(transaction))
}

// Events GET RouteGroup + TransactionEventsRoute.
func (h *TransactionsHandler) Events(c *gin.Context) {
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

	events, err := h.querier.GetTransactionEvents(reqCtx, caller, id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var response = make([]TransactionEventResponse, len(events))
	for i := range events {
		response[i] = newTransactionEventResponse(&events[i])
	}
	c.JSON(http.StatusOK, response)
}
