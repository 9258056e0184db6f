package pgrepo

import "github.com/fsdevblog/groph-ledger/pkg/uow"

// DBTX то, через что ходят репозитории: пул или открытая транзакция unit of work.
type DBTX = uow.DBTX

// rowScanner общий интерфейс pgx.Row и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}
