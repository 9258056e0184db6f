package service

import (
	"context"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/google/uuid"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type AccountRepository interface {
	CreateAccount(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	LockForUpdate(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error)
	ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta int64) (*domain.Account, error)
}

type TransactionRepository interface {
	Insert(ctx context.Context, draft repoargs.TransactionCreate) (*domain.Transaction, error)
	InsertEvent(ctx context.Context, event repoargs.TransactionEventCreate) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TransactionStatus) (*domain.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListForUser(ctx context.Context, args repoargs.ListForUser) ([]domain.Transaction, int64, error)
	UserCanAccess(ctx context.Context, userID, transactionID uuid.UUID) (bool, error)
	ListEvents(ctx context.Context, transactionID uuid.UUID) ([]domain.TransactionEvent, error)
}

// MetricsRecorder фиксирует исход обработки транзакции.
type MetricsRecorder interface {
	ObserveTransaction(txType domain.TransactionType, outcome string, d time.Duration)
}
