package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/google/uuid"
)

type AccountService struct {
	accountRepo AccountRepository
}

func NewAccountService(u uow.UOW) (*AccountService, error) {
	accountRepo, err := uow.GetRepositoryAs[AccountRepository](u, uow.RepositoryName(repoargs.AccountRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &AccountService{accountRepo: accountRepo}, nil
}

// Create открывает счет юзеру в валюте currency (приводится к верхнему регистру). Второй счет в той же
// валюте вернет domain.ErrDuplicateKey.
func (a *AccountService) Create(ctx context.Context, caller domain.Caller, currency string) (*domain.Account, error) {
	account, err := a.accountRepo.CreateAccount(ctx, repoargs.CreateAccount{
		UserID:   caller.UserID,
		Currency: strings.ToUpper(strings.TrimSpace(currency)),
	})
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return account, nil
}

// Get возвращает счет, если он принадлежит caller, иначе domain.ErrForbidden.
func (a *AccountService) Get(ctx context.Context, caller domain.Caller, id uuid.UUID) (*domain.Account, error) {
	account, err := a.accountRepo.GetAccount(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting account %s: %w", id, err)
	}
	if account.UserID != caller.UserID {
		return nil, domain.NewForbiddenError("You do not have permission to access this account")
	}
	return account, nil
}

func (a *AccountService) List(ctx context.Context, caller domain.Caller) ([]domain.Account, error) {
	accounts, err := a.accountRepo.ListByUserID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accounts, nil
}
