package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/google/uuid"
)

type AccountServicer interface {
	Create(ctx context.Context, caller domain.Caller, currency string) (*domain.Account, error)
	Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Account, error)
	List(ctx context.Context, caller domain.Caller) ([]domain.Account, error)
}

type TransactionProcessor interface {
	Process(ctx context.Context, caller domain.Caller, args service.ProcessTransactionArgs) (*domain.Transaction, error)
}

type TransactionQuerier interface {
	GetTransaction(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, caller domain.Caller, page, pageSize uint) (*service.TransactionsPage, error)
	GetTransactionEvents(ctx context.Context, caller domain.Caller, id uuid.UUID) ([]domain.TransactionEvent, error)
}

// HealthChecker проверка доступности хранилища. В приложении это *pgxpool.Pool.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
