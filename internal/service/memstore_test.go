package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/google/uuid"
)

// memStore хранилище в памяти с семантикой транзакций: Do выполняется строго по одному и при ошибке
// восстанавливает снимок состояния. Этого достаточно, чтобы проверять инварианты процессора без postgres.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	accounts     map[uuid.UUID]domain.Account
	transactions map[uuid.UUID]domain.Transaction
	events       []domain.TransactionEvent
	clock        time.Time

	// failOn имя операции, на которой ApplyBalanceDelta/UpdateStatus вернут ошибку. Для проверки отката.
	failOn string
}

var errInjected = errors.New("injected failure")

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[uuid.UUID]domain.Account),
		transactions: make(map[uuid.UUID]domain.Transaction),
		clock:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

type memSnapshot struct {
	accounts     map[uuid.UUID]domain.Account
	transactions map[uuid.UUID]domain.Transaction
	events       []domain.TransactionEvent
}

func (m *memStore) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	accounts := make(map[uuid.UUID]domain.Account, len(m.accounts))
	for k, v := range m.accounts {
		accounts[k] = v
	}
	transactions := make(map[uuid.UUID]domain.Transaction, len(m.transactions))
	for k, v := range m.transactions {
		transactions[k] = v
	}
	return memSnapshot{
		accounts:     accounts,
		transactions: transactions,
		events:       slices.Clone(m.events),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts = s.accounts
	m.transactions = s.transactions
	m.events = s.events
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Millisecond)
	return m.clock
}

func (m *memStore) seedAccount(userID uuid.UUID, currency string, balance int64) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	account := domain.Account{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		UserID:    userID,
		Balance:   balance,
		Currency:  currency,
		Status:    domain.AccountStatusActive,
	}
	m.accounts[account.ID] = account
	return account
}

func (m *memStore) balance(id uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[id].Balance
}

func (m *memStore) totalBalance() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, a := range m.accounts {
		total += a.Balance
	}
	return total
}

func (m *memStore) transactionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.transactions)
}

func (m *memStore) eventsOf(id uuid.UUID) []domain.TransactionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.TransactionEvent
	for _, e := range m.events {
		if e.TransactionID == id {
			res = append(res, e)
		}
	}
	return res
}

// memUOW реализация uow.UOW поверх memStore.
type memUOW struct {
	store *memStore
}

func (u *memUOW) Register(uow.RepositoryName, uow.RepositoryFactory) error {
	return nil
}

func (u *memUOW) Do(ctx context.Context, fn func(context.Context, uow.TX) error) error {
	u.store.txMu.Lock()
	defer u.store.txMu.Unlock()

	snap := u.store.snapshot()
	if err := fn(ctx, memTX{store: u.store}); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

func (u *memUOW) GetRepository(name uow.RepositoryName) (uow.Repository, error) {
	return memTX{store: u.store}.Get(name)
}

type memTX struct {
	store *memStore
}

func (t memTX) Get(name uow.RepositoryName) (uow.Repository, error) {
	switch repoargs.RepositoryName(name) {
	case repoargs.AccountRepoName:
		return &memAccountRepo{store: t.store}, nil
	case repoargs.TransactionRepoName:
		return &memTransactionRepo{store: t.store}, nil
	default:
		return nil, uow.ErrRepositoryNotRegistered
	}
}

type memAccountRepo struct {
	store *memStore
}

func (r *memAccountRepo) CreateAccount(_ context.Context, args repoargs.CreateAccount) (*domain.Account, error) {
	r.store.mu.Lock()
	for _, a := range r.store.accounts {
		if a.UserID == args.UserID && a.Currency == args.Currency {
			r.store.mu.Unlock()
			return nil, fmt.Errorf("[repository/creating account] %w", domain.ErrDuplicateKey)
		}
	}
	r.store.mu.Unlock()
	account := r.store.seedAccount(args.UserID, args.Currency, 0)
	return &account, nil
}

func (r *memAccountRepo) GetAccount(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("[repository/getting account] %w", domain.ErrRecordNotFound)
	}
	return &a, nil
}

func (r *memAccountRepo) ListByUserID(_ context.Context, userID uuid.UUID) ([]domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res := make([]domain.Account, 0)
	for _, a := range r.store.accounts {
		if a.UserID == userID {
			res = append(res, a)
		}
	}
	slices.SortFunc(res, func(a, b domain.Account) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return res, nil
}

func (r *memAccountRepo) LockForUpdate(_ context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		if a, ok := r.store.accounts[id]; ok {
			res = append(res, a)
		}
	}
	slices.SortFunc(res, func(a, b domain.Account) int { return slices.Compare(a.ID[:], b.ID[:]) })
	return res, nil
}

func (r *memAccountRepo) ApplyBalanceDelta(_ context.Context, id uuid.UUID, delta int64) (*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failOn == "ApplyBalanceDelta" && delta > 0 {
		return nil, errInjected
	}
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, fmt.Errorf("[repository/applying delta] %w", domain.ErrRecordNotFound)
	}
	a.Balance += delta
	a.UpdatedAt = r.store.tick()
	r.store.accounts[id] = a
	return &a, nil
}

type memTransactionRepo struct {
	store *memStore
}

func (r *memTransactionRepo) Insert(_ context.Context, draft repoargs.TransactionCreate) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	now := r.store.tick()
	t := domain.Transaction{
		ID:                   uuid.New(),
		CreatedAt:            now,
		UpdatedAt:            now,
		SourceAccountID:      draft.SourceAccountID,
		DestinationAccountID: draft.DestinationAccountID,
		Amount:               draft.Amount,
		Currency:             draft.Currency,
		Status:               domain.TransactionStatusPending,
		Type:                 draft.Type,
		Description:          draft.Description,
	}
	r.store.transactions[t.ID] = t
	return &t, nil
}

func (r *memTransactionRepo) InsertEvent(_ context.Context, event repoargs.TransactionEventCreate) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.events = append(r.store.events, domain.TransactionEvent{
		ID:             uuid.New(),
		CreatedAt:      r.store.tick(),
		TransactionID:  event.TransactionID,
		PreviousStatus: event.PreviousStatus,
		NewStatus:      event.NewStatus,
		Payload:        event.Payload,
	})
	return nil
}

func (r *memTransactionRepo) UpdateStatus(
	_ context.Context,
	id uuid.UUID,
	status domain.TransactionStatus,
) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.failOn == "UpdateStatus" {
		return nil, errInjected
	}
	t, ok := r.store.transactions[id]
	if !ok || !domain.CanTransition(t.Status, status) {
		return nil, domain.ErrIllegalStatusTransition
	}
	t.Status = status
	t.UpdatedAt = r.store.tick()
	r.store.transactions[id] = t
	return &t, nil
}

func (r *memTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[id]
	if !ok {
		return nil, fmt.Errorf("[repository/getting transaction] %w", domain.ErrRecordNotFound)
	}
	return &t, nil
}

func (r *memTransactionRepo) ListForUser(
	_ context.Context,
	args repoargs.ListForUser,
) ([]domain.Transaction, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []domain.Transaction
	for _, t := range r.store.transactions {
		if r.ownsLocked(args.UserID, t) {
			all = append(all, t)
		}
	}
	slices.SortFunc(all, func(a, b domain.Transaction) int { return b.CreatedAt.Compare(a.CreatedAt) })

	offset, err := args.Offset()
	if err != nil {
		return nil, 0, err
	}
	from := int(min(offset, int64(len(all))))
	to := min(from+int(args.PageSize), len(all))
	return slices.Clone(all[from:to]), int64(len(all)), nil
}

func (r *memTransactionRepo) UserCanAccess(_ context.Context, userID, transactionID uuid.UUID) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	t, ok := r.store.transactions[transactionID]
	return ok && r.ownsLocked(userID, t), nil
}

func (r *memTransactionRepo) ListEvents(_ context.Context, transactionID uuid.UUID) ([]domain.TransactionEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res := make([]domain.TransactionEvent, 0, 2) //nolint:mnd
	for _, e := range r.store.events {
		if e.TransactionID == transactionID {
			res = append(res, e)
		}
	}
	return res, nil
}

func (r *memTransactionRepo) ownsLocked(userID uuid.UUID, t domain.Transaction) bool {
	for _, id := range []*uuid.UUID{t.SourceAccountID, t.DestinationAccountID} {
		if id == nil {
			continue
		}
		if a, ok := r.store.accounts[*id]; ok && a.UserID == userID {
			return true
		}
	}
	return false
}
