package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/google/uuid"
)

const accountColumns = `id, user_id, balance, currency, status, created_at, updated_at`

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

// CreateAccount создает счет с нулевым балансом в статусе active. Если у юзера уже есть счет в этой валюте
// (уникальный индекс user_id + currency), возвращает ошибку domain.ErrDuplicateKey.
func (a *AccountRepository) CreateAccount(ctx context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	const query = `
		INSERT INTO accounts (user_id, currency, balance, status)
		VALUES ($1, $2, 0, $3)
		RETURNING ` + accountColumns

	account, err := scanAccount(a.db.QueryRow(ctx, query, args.UserID, args.Currency, string(domain.AccountStatusActive)))
	if err != nil {
		return nil, convertErr(err, "creating %s account for user %s", args.Currency, args.UserID)
	}
	return account, nil
}

// GetAccount возвращает счет по id или ошибку domain.ErrRecordNotFound.
func (a *AccountRepository) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(a.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, convertErr(err, "getting account %s", id)
	}
	return account, nil
}

// ListByUserID возвращает счета юзера в порядке создания.
func (a *AccountRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 ORDER BY created_at, id`

	accounts, err := a.queryAccounts(ctx, query, userID)
	if err != nil {
		return nil, convertErr(err, "listing accounts of user %s", userID)
	}
	return accounts, nil
}

// LockForUpdate блокирует строки счетов до конца текущей транзакции и возвращает их актуальное состояние.
// Строки блокируются в порядке возрастания id, поэтому встречные переводы не приводят к дедлоку.
// Несуществующие id в результат не попадают. Вызов имеет смысл только внутри транзакции.
func (a *AccountRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	accounts, err := a.queryAccounts(ctx, query, ids)
	if err != nil {
		return nil, convertErr(err, "locking accounts %v", ids)
	}
	return accounts, nil
}

// ApplyBalanceDelta атомарно прибавляет delta к балансу одним UPDATE. Возвращает обновленный счет или
// domain.ErrRecordNotFound.
func (a *AccountRepository) ApplyBalanceDelta(ctx context.Context, id uuid.UUID, delta int64) (*domain.Account, error) {
	const query = `
		UPDATE accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING ` + accountColumns

	account, err := scanAccount(a.db.QueryRow(ctx, query, delta, id))
	if err != nil {
		return nil, convertErr(err, "applying delta %d to account %s", delta, id)
	}
	return account, nil
}

func (a *AccountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := a.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	defer rows.Close()

	var accounts = make([]domain.Account, 0)
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		accounts = append(accounts, *account)
	}
	return accounts, rows.Err() //nolint:wrapcheck
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var account domain.Account
	var status string
	if err := row.Scan(
		&account.ID,
		&account.UserID,
		&account.Balance,
		&account.Currency,
		&status,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	account.Status = domain.ParseAccountStatus(status)
	return &account, nil
}
