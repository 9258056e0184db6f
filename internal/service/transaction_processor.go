package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/metrics"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Имена полей запроса, на которые ссылаются ошибки валидации.
const (
	FieldAmount               = "amount"
	FieldSourceAccountID      = "source_account_id"
	FieldDestinationAccountID = "destination_account_id"
	FieldCurrency             = "currency"
	FieldPage                 = "page"
	FieldPageSize             = "page_size"
)

// ProcessTransactionArgs запрос на проведение операции. Type строковое представление типа, нераспознанное
// значение трактуется как перевод.
type ProcessTransactionArgs struct {
	SourceAccountID      *uuid.UUID
	DestinationAccountID *uuid.UUID
	Amount               int64
	Currency             string
	Type                 string
	Description          *string
}

type TransactionProcessor struct {
	uow     uow.UOW
	txRepo  TransactionRepository
	metrics MetricsRecorder
	logger  *logrus.Logger
}

func NewTransactionProcessor(u uow.UOW, m MetricsRecorder, l *logrus.Logger) (*TransactionProcessor, error) {
	txRepo, err := uow.GetRepositoryAs[TransactionRepository](u, uow.RepositoryName(repoargs.TransactionRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return &TransactionProcessor{
		uow:     u,
		txRepo:  txRepo,
		metrics: m,
		logger:  l,
	}, nil
}

// Process проверяет и проводит денежную операцию от имени caller.
//
// Алгоритм работы:
//  1. Нормализует запрос (валюта в верхний регистр, тип в нижний) и проверяет сумму и обязательные счета.
//  2. В одной транзакции БД блокирует участвующие счета (FOR UPDATE, по возрастанию id), проверяет владельца,
//     валюту и достаточность средств.
//  3. Создает транзакцию в статусе pending и событие создания, применяет изменения балансов (сначала источник,
//     потом получатель), переводит транзакцию в completed и пишет событие завершения.
//  4. После коммита перечитывает транзакцию по id.
//
// Любая ошибка на шаге 2-3 откатывает все изменения целиком.
func (p *TransactionProcessor) Process(
	ctx context.Context,
	caller domain.Caller,
	args ProcessTransactionArgs,
) (*domain.Transaction, error) {
	start := time.Now()

	draft, validateErr := normalizeTransactionArgs(args)
	if validateErr != nil {
		p.observe(draft.Type, start, validateErr)
		return nil, validateErr
	}

	var transactionID uuid.UUID
	txErr := p.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		id, err := p.processInTx(c, tx, caller, draft)
		if err != nil {
			return err
		}
		transactionID = id
		return nil
	})

	p.observe(draft.Type, start, txErr)

	if txErr != nil {
		p.logger.WithError(txErr).WithFields(logrus.Fields{
			"user_id": caller.UserID,
			"type":    draft.Type,
			"amount":  draft.Amount,
		}).Debug("transaction rejected")
		return nil, fmt.Errorf("processing %s transaction: %w", draft.Type, txErr)
	}

	p.logger.WithFields(logrus.Fields{
		"user_id":        caller.UserID,
		"transaction_id": transactionID,
		"type":           draft.Type,
		"amount":         draft.Amount,
		"currency":       draft.Currency,
	}).Info("transaction completed")

	transaction, err := p.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("reading processed transaction %s: %w", transactionID, err)
	}
	return transaction, nil
}

func (p *TransactionProcessor) processInTx(
	ctx context.Context,
	tx uow.TX,
	caller domain.Caller,
	draft repoargs.TransactionCreate,
) (uuid.UUID, error) {
	accountRepo, accRepoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
	if accRepoErr != nil {
		return uuid.Nil, accRepoErr //nolint:wrapcheck
	}
	txRepo, txRepoErr := uow.GetAs[TransactionRepository](tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if txRepoErr != nil {
		return uuid.Nil, txRepoErr //nolint:wrapcheck
	}

	locked, lockErr := accountRepo.LockForUpdate(ctx, draftAccountIDs(draft))
	if lockErr != nil {
		return uuid.Nil, lockErr //nolint:wrapcheck
	}
	if err := checkAccounts(caller, draft, indexAccounts(locked)); err != nil {
		return uuid.Nil, err
	}

	created, insertErr := txRepo.Insert(ctx, draft)
	if insertErr != nil {
		return uuid.Nil, insertErr //nolint:wrapcheck
	}

	payload := domain.EventPayload{UserID: caller.UserID.String(), Action: domain.EventActionCreated}
	if err := txRepo.InsertEvent(ctx, repoargs.TransactionEventCreate{
		TransactionID: created.ID,
		NewStatus:     domain.TransactionStatusPending,
		Payload:       payload,
	}); err != nil {
		return uuid.Nil, err //nolint:wrapcheck
	}

	if err := applyDeltas(ctx, accountRepo, draft); err != nil {
		return uuid.Nil, err
	}

	if _, err := txRepo.UpdateStatus(ctx, created.ID, domain.TransactionStatusCompleted); err != nil {
		return uuid.Nil, err //nolint:wrapcheck
	}

	pending := domain.TransactionStatusPending
	payload.Action = domain.EventActionProcessed
	if err := txRepo.InsertEvent(ctx, repoargs.TransactionEventCreate{
		TransactionID:  created.ID,
		PreviousStatus: &pending,
		NewStatus:      domain.TransactionStatusCompleted,
		Payload:        payload,
	}); err != nil {
		return uuid.Nil, err //nolint:wrapcheck
	}

	return created.ID, nil
}

func (p *TransactionProcessor) observe(txType domain.TransactionType, start time.Time, err error) {
	if p.metrics == nil {
		return
	}
	p.metrics.ObserveTransaction(txType, outcomeOf(err), time.Since(start))
}

// outcomeOf разделяет отказы по вине клиента и сбои.
func outcomeOf(err error) string {
	if err == nil {
		return metrics.OutcomeCompleted
	}
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrRecordNotFound) {
		return metrics.OutcomeRejected
	}
	return metrics.OutcomeFailed
}

// normalizeTransactionArgs проверяет запрос без обращения к хранилищу. Тип в результате заполнен всегда,
// даже при ошибке, чтобы по нему можно было разметить метрику.
func normalizeTransactionArgs(args ProcessTransactionArgs) (repoargs.TransactionCreate, error) {
	draft := repoargs.TransactionCreate{
		SourceAccountID:      args.SourceAccountID,
		DestinationAccountID: args.DestinationAccountID,
		Amount:               args.Amount,
		Currency:             strings.ToUpper(strings.TrimSpace(args.Currency)),
		Type:                 domain.ParseTransactionType(strings.TrimSpace(args.Type)),
		Description:          args.Description,
	}

	if draft.Amount <= 0 {
		return draft, domain.NewValidationError(FieldAmount, domain.ErrInvalidAmount,
			"Amount must be greater than zero")
	}

	switch draft.Type {
	case domain.TransactionTypeDeposit:
		if draft.DestinationAccountID == nil {
			return draft, domain.NewValidationError(FieldDestinationAccountID, domain.ErrAccountRequired,
				"Destination account is required for deposits")
		}
	case domain.TransactionTypeWithdrawal:
		if draft.SourceAccountID == nil {
			return draft, domain.NewValidationError(FieldSourceAccountID, domain.ErrAccountRequired,
				"Source account is required for withdrawals")
		}
	case domain.TransactionTypeTransfer:
		if draft.SourceAccountID == nil {
			return draft, domain.NewValidationError(FieldSourceAccountID, domain.ErrAccountRequired,
				"Both source and destination accounts are required for transfers")
		}
		if draft.DestinationAccountID == nil {
			return draft, domain.NewValidationError(FieldDestinationAccountID, domain.ErrAccountRequired,
				"Both source and destination accounts are required for transfers")
		}
	}

	// для депозита источник и для вывода получатель не используются
	if !draft.Type.RequiresSource() {
		draft.SourceAccountID = nil
	}
	if !draft.Type.RequiresDestination() {
		draft.DestinationAccountID = nil
	}
	return draft, nil
}

func draftAccountIDs(draft repoargs.TransactionCreate) []uuid.UUID {
	ids := make([]uuid.UUID, 0, 2) //nolint:mnd
	if draft.SourceAccountID != nil {
		ids = append(ids, *draft.SourceAccountID)
	}
	if draft.DestinationAccountID != nil && (draft.SourceAccountID == nil ||
		*draft.DestinationAccountID != *draft.SourceAccountID) {
		ids = append(ids, *draft.DestinationAccountID)
	}
	return ids
}

func indexAccounts(accounts []domain.Account) map[uuid.UUID]*domain.Account {
	res := make(map[uuid.UUID]*domain.Account, len(accounts))
	for i := range accounts {
		res[accounts[i].ID] = &accounts[i]
	}
	return res
}

// checkAccounts проверяет заблокированные счета в порядке: существование и владелец источника, существование
// и владелец получателя (владелец получателя проверяется только для депозита), валюта источника, валюта
// получателя, достаточность средств.
func checkAccounts(caller domain.Caller, draft repoargs.TransactionCreate, accounts map[uuid.UUID]*domain.Account) error {
	var source, destination *domain.Account

	if draft.SourceAccountID != nil {
		source = accounts[*draft.SourceAccountID]
		if source == nil {
			return fmt.Errorf("source account %s: %w", *draft.SourceAccountID, domain.ErrRecordNotFound)
		}
		if source.UserID != caller.UserID {
			return domain.NewForbiddenError(forbiddenSourceMessage(draft.Type))
		}
	}

	if draft.DestinationAccountID != nil {
		destination = accounts[*draft.DestinationAccountID]
		if destination == nil {
			return fmt.Errorf("destination account %s: %w", *draft.DestinationAccountID, domain.ErrRecordNotFound)
		}
		if draft.Type == domain.TransactionTypeDeposit && destination.UserID != caller.UserID {
			return domain.NewForbiddenError("You do not have permission to deposit to this account")
		}
	}

	if source != nil && source.Currency != draft.Currency {
		return domain.NewValidationError(FieldCurrency, domain.ErrCurrencyMismatch,
			"Currency mismatch: transaction is in %s, but %s is in %s",
			draft.Currency, accountRole(draft.Type, "source account"), source.Currency)
	}
	if destination != nil && destination.Currency != draft.Currency {
		return domain.NewValidationError(FieldCurrency, domain.ErrCurrencyMismatch,
			"Currency mismatch: transaction is in %s, but %s is in %s",
			draft.Currency, accountRole(draft.Type, "destination account"), destination.Currency)
	}

	if source != nil && source.Balance < draft.Amount {
		return domain.NewValidationError(FieldAmount, domain.ErrInsufficientFunds,
			"Insufficient funds: balance is %d, but %s amount is %d",
			source.Balance, draft.Type, draft.Amount)
	}
	return nil
}

func forbiddenSourceMessage(t domain.TransactionType) string {
	if t == domain.TransactionTypeWithdrawal {
		return "You do not have permission to withdraw from this account"
	}
	return "You do not have permission to transfer from this account"
}

// accountRole для операций с одним счетом роль не уточняется.
func accountRole(t domain.TransactionType, role string) string {
	if t == domain.TransactionTypeTransfer {
		return role
	}
	return "account"
}

func applyDeltas(ctx context.Context, repo AccountRepository, draft repoargs.TransactionCreate) error {
	if draft.SourceAccountID != nil {
		if _, err := repo.ApplyBalanceDelta(ctx, *draft.SourceAccountID, -draft.Amount); err != nil {
			return err //nolint:wrapcheck
		}
	}
	if draft.DestinationAccountID != nil {
		if _, err := repo.ApplyBalanceDelta(ctx, *draft.DestinationAccountID, draft.Amount); err != nil {
			return err //nolint:wrapcheck
		}
	}
	return nil
}
