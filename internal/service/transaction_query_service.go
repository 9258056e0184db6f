package service

import (
	"context"
	"fmt"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/google/uuid"
)

const (
	DefaultPage     uint = 1
	DefaultPageSize uint = 10
	MaxPageSize     uint = 100
)

// TransactionQueryService чтение транзакций с проверкой доступа. Транзакция доступна юзеру, если ему
// принадлежит хотя бы один из ее счетов.
type TransactionQueryService struct {
	txRepo TransactionRepository
}

func NewTransactionQueryService(u uow.UOW) (*TransactionQueryService, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &TransactionQueryService{txRepo: txRepo}, nil
}

// GetTransaction возвращает транзакцию. Для чужой и для несуществующей транзакции возвращает
// domain.ErrForbidden, существование чужих транзакций не раскрывается.
func (q *TransactionQueryService) GetTransaction(
	ctx context.Context,
	caller domain.Caller,
	id uuid.UUID,
) (*domain.Transaction, error) {
	if err := q.checkAccess(ctx, caller, id); err != nil {
		return nil, err
	}
	transaction, err := q.txRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting transaction %s: %w", id, err)
	}
	return transaction, nil
}

type TransactionsPage struct {
	Items    []domain.Transaction
	Total    int64
	Page     uint
	PageSize uint
}

// ListTransactions возвращает страницу истории транзакций юзера, новые первыми. page начинается с 1.
func (q *TransactionQueryService) ListTransactions(
	ctx context.Context,
	caller domain.Caller,
	page, pageSize uint,
) (*TransactionsPage, error) {
	if page < 1 {
		return nil, domain.NewValidationError(FieldPage, domain.ErrInvalidPage, "Page must be greater than zero")
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, domain.NewValidationError(FieldPageSize, domain.ErrInvalidPage,
			"Page size must be between 1 and %d", MaxPageSize)
	}

	args := repoargs.ListForUser{
		UserID:   caller.UserID,
		Page:     page,
		PageSize: pageSize,
	}
	if _, err := args.Offset(); err != nil {
		return nil, domain.NewValidationError(FieldPage, domain.ErrInvalidPage, "Page is too large")
	}

	items, total, err := q.txRepo.ListForUser(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("listing transactions of user %s: %w", caller.UserID, err)
	}
	return &TransactionsPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetTransactionEvents возвращает журнал аудита транзакции. Правило доступа то же, что у GetTransaction.
func (q *TransactionQueryService) GetTransactionEvents(
	ctx context.Context,
	caller domain.Caller,
	id uuid.UUID,
) ([]domain.TransactionEvent, error) {
	if err := q.checkAccess(ctx, caller, id); err != nil {
		return nil, err
	}
	events, err := q.txRepo.ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing events of transaction %s: %w", id, err)
	}
	return events, nil
}

func (q *TransactionQueryService) checkAccess(ctx context.Context, caller domain.Caller, id uuid.UUID) error {
	ok, err := q.txRepo.UserCanAccess(ctx, caller.UserID, id)
	if err != nil {
		return fmt.Errorf("checking access to transaction %s: %w", id, err)
	}
	if !ok {
		return domain.NewForbiddenError("You do not have permission to access this transaction")
	}
	return nil
}
