package pgrepo

import (
	"fmt"

	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
)

// Register регистрирует postgres репозитории в unit of work под именами из repoargs.
func Register(u uow.UOW) error {
	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.AccountRepoName: func(db uow.DBTX) uow.Repository {
			return NewAccountRepository(db)
		},
		repoargs.TransactionRepoName: func(db uow.DBTX) uow.Repository {
			return NewTransactionRepository(db)
		},
	}
	for name, factory := range factories {
		if err := u.Register(uow.RepositoryName(name), factory); err != nil {
			return fmt.Errorf("registering %s repository: %w", name, err)
		}
	}
	return nil
}
