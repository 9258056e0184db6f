package domain

import (
	"time"

	"github.com/google/uuid"
)

// Caller проверенная идентичность инициатора запроса. Передается в сервисный слой явно, аргументом.
type Caller struct {
	UserID uuid.UUID
}

func NewCaller(userID uuid.UUID) Caller {
	return Caller{UserID: userID}
}

type Account struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	UserID    uuid.UUID
	// Balance сумма в минимальных единицах валюты (центы, копейки).
	Balance  int64
	Currency string
	Status   AccountStatus
}

type Transaction struct {
	ID                   uuid.UUID
	CreatedAt            time.Time
	UpdatedAt            time.Time
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	Amount               int64
	Currency             string
	Status               TransactionStatus
	Type                 TransactionType
	Description          *string
}

type EventAction string

const (
	EventActionCreated   EventAction = "created"
	EventActionProcessed EventAction = "processed"
)

// EventPayload произвольные данные события аудита. Хранится в jsonb.
type EventPayload struct {
	UserID string      `json:"user_id"`
	Action EventAction `json:"action"`
}

type TransactionEvent struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	TransactionID  uuid.UUID
	PreviousStatus *TransactionStatus
	NewStatus      TransactionStatus
	Payload        EventPayload
}
