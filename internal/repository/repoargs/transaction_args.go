package repoargs

import (
	"errors"
	"math"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/google/uuid"
)

// TransactionCreate черновик транзакции. Статус при вставке всегда pending.
type TransactionCreate struct {
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	Amount               int64
	Currency             string
	Type                 domain.TransactionType
	Description          *string
}

type TransactionEventCreate struct {
	TransactionID  uuid.UUID
	PreviousStatus *domain.TransactionStatus
	NewStatus      domain.TransactionStatus
	Payload        domain.EventPayload
}

type ListForUser struct {
	UserID   uuid.UUID
	Page     uint
	PageSize uint
}

// ErrOffsetOverflow смещение страницы не помещается в int64.
var ErrOffsetOverflow = errors.New("page offset overflows int64")

// Offset смещение выборки для 1-индексированной страницы.
func (l ListForUser) Offset() (int64, error) {
	if l.Page <= 1 || l.PageSize == 0 {
		return 0, nil
	}
	if l.Page-1 > uint(math.MaxInt64)/l.PageSize {
		return 0, ErrOffsetOverflow
	}
	return int64((l.Page - 1) * l.PageSize), nil //nolint:gosec // переполнение проверено выше
}
