package pgrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const transactionColumns = `id, source_account_id, destination_account_id, amount, currency, status,
	transaction_type, description, created_at, updated_at`

// userOwnsTransaction условие "транзакция относится к юзеру": хотя бы один из счетов транзакции принадлежит ему.
// EXISTS вместо JOIN, чтобы перевод между двумя счетами одного юзера не считался дважды.
const userOwnsTransaction = `EXISTS (
	SELECT 1 FROM accounts a
	WHERE a.user_id = $1 AND a.id IN (t.source_account_id, t.destination_account_id)
)`

type TransactionRepository struct {
	db DBTX
}

func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Insert создает транзакцию. Статус всегда pending, независимо от черновика.
func (t *TransactionRepository) Insert(
	ctx context.Context,
	draft repoargs.TransactionCreate,
) (*domain.Transaction, error) {
	const query = `
		INSERT INTO transactions
			(source_account_id, destination_account_id, amount, currency, status, transaction_type, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + transactionColumns

	transaction, err := scanTransaction(t.db.QueryRow(ctx, query,
		draft.SourceAccountID,
		draft.DestinationAccountID,
		draft.Amount,
		draft.Currency,
		string(domain.TransactionStatusPending),
		string(draft.Type),
		draft.Description,
	))
	if err != nil {
		return nil, convertErr(err, "inserting %s transaction", draft.Type)
	}
	return transaction, nil
}

// InsertEvent добавляет запись в журнал аудита транзакции. Журнал только пополняется.
func (t *TransactionRepository) InsertEvent(ctx context.Context, event repoargs.TransactionEventCreate) error {
	const query = `
		INSERT INTO transaction_events (transaction_id, previous_status, new_status, event_data)
		VALUES ($1, $2, $3, $4)`

	var previous *string
	if event.PreviousStatus != nil {
		s := string(*event.PreviousStatus)
		previous = &s
	}

	if _, err := t.db.Exec(ctx, query,
		event.TransactionID,
		previous,
		string(event.NewStatus),
		event.Payload,
	); err != nil {
		return convertErr(err, "inserting event %s for transaction %s", event.NewStatus, event.TransactionID)
	}
	return nil
}

// UpdateStatus переводит транзакцию из pending в конечный статус. Если транзакция не найдена или уже находится
// в конечном статусе, возвращает domain.ErrIllegalStatusTransition.
func (t *TransactionRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.TransactionStatus,
) (*domain.Transaction, error) {
	if !domain.CanTransition(domain.TransactionStatusPending, status) {
		return nil, fmt.Errorf("[repository/updating transaction %s] %w: to %s",
			id, domain.ErrIllegalStatusTransition, status)
	}

	const query = `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + transactionColumns

	transaction, err := scanTransaction(t.db.QueryRow(ctx, query,
		string(status),
		id,
		string(domain.TransactionStatusPending),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("[repository/updating transaction %s] %w: not pending",
				id, domain.ErrIllegalStatusTransition)
		}
		return nil, convertErr(err, "updating transaction %s status to %s", id, status)
	}
	return transaction, nil
}

// GetByID возвращает транзакцию или domain.ErrRecordNotFound.
func (t *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	transaction, err := scanTransaction(t.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, convertErr(err, "getting transaction %s", id)
	}
	return transaction, nil
}

// ListForUser возвращает страницу транзакций юзера (новые первыми) и общее их количество.
func (t *TransactionRepository) ListForUser(
	ctx context.Context,
	args repoargs.ListForUser,
) ([]domain.Transaction, int64, error) {
	limit, limitErr := safeConvertUintToInt64(args.PageSize)
	if limitErr != nil {
		return nil, 0, convertErr(limitErr, "converting page size")
	}
	offset, offsetErr := args.Offset()
	if offsetErr != nil {
		return nil, 0, convertErr(offsetErr, "converting offset")
	}

	const countQuery = `SELECT COUNT(*) FROM transactions t WHERE ` + userOwnsTransaction

	var total int64
	if err := t.db.QueryRow(ctx, countQuery, args.UserID).Scan(&total); err != nil {
		return nil, 0, convertErr(err, "counting transactions of user %s", args.UserID)
	}

	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE ` + userOwnsTransaction + `
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2 OFFSET $3`

	rows, err := t.db.Query(ctx, query, args.UserID, limit, offset)
	if err != nil {
		return nil, 0, convertErr(err, "listing transactions of user %s", args.UserID)
	}
	defer rows.Close()

	var transactions = make([]domain.Transaction, 0, args.PageSize)
	for rows.Next() {
		transaction, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, 0, convertErr(scanErr, "scanning transaction of user %s", args.UserID)
		}
		transactions = append(transactions, *transaction)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, 0, convertErr(rowsErr, "listing transactions of user %s", args.UserID)
	}
	return transactions, total, nil
}

// UserCanAccess true, если хотя бы один из счетов транзакции принадлежит юзеру. Для несуществующей транзакции
// вернет false.
func (t *TransactionRepository) UserCanAccess(ctx context.Context, userID, transactionID uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM transactions t WHERE t.id = $2 AND ` + userOwnsTransaction + `)`

	var exists bool
	if err := t.db.QueryRow(ctx, query, userID, transactionID).Scan(&exists); err != nil {
		return false, convertErr(err, "checking access of user %s to transaction %s", userID, transactionID)
	}
	return exists, nil
}

// ListEvents возвращает журнал аудита транзакции в порядке добавления.
func (t *TransactionRepository) ListEvents(
	ctx context.Context,
	transactionID uuid.UUID,
) ([]domain.TransactionEvent, error) {
	const query = `
		SELECT id, transaction_id, previous_status, new_status, event_data, created_at
		FROM transaction_events
		WHERE transaction_id = $1
		ORDER BY seq`

	rows, err := t.db.Query(ctx, query, transactionID)
	if err != nil {
		return nil, convertErr(err, "listing events of transaction %s", transactionID)
	}
	defer rows.Close()

	var events = make([]domain.TransactionEvent, 0, 2) //nolint:mnd
	for rows.Next() {
		var event domain.TransactionEvent
		var previous *string
		var status string
		if scanErr := rows.Scan(
			&event.ID,
			&event.TransactionID,
			&previous,
			&status,
			&event.Payload,
			&event.CreatedAt,
		); scanErr != nil {
			return nil, convertErr(scanErr, "scanning event of transaction %s", transactionID)
		}
		if previous != nil {
			st := domain.ParseTransactionStatus(*previous)
			event.PreviousStatus = &st
		}
		event.NewStatus = domain.ParseTransactionStatus(status)
		events = append(events, event)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, convertErr(rowsErr, "listing events of transaction %s", transactionID)
	}
	return events, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var transaction domain.Transaction
	var status, txType string
	if err := row.Scan(
		&transaction.ID,
		&transaction.SourceAccountID,
		&transaction.DestinationAccountID,
		&transaction.Amount,
		&transaction.Currency,
		&status,
		&txType,
		&transaction.Description,
		&transaction.CreatedAt,
		&transaction.UpdatedAt,
	); err != nil {
		return nil, err //nolint:wrapcheck
	}
	transaction.Status = domain.ParseTransactionStatus(status)
	transaction.Type = domain.ParseTransactionType(txType)
	return &transaction, nil
}
