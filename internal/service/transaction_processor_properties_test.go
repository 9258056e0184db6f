package service

import (
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// LedgerPropertiesTestSuite проверяет инварианты обработки на хранилище в памяти.
type LedgerPropertiesTestSuite struct {
	suite.Suite
	store     *memStore
	processor *TransactionProcessor
	queries   *TransactionQueryService
}

func TestLedgerPropertiesSuite(t *testing.T) {
	suite.Run(t, new(LedgerPropertiesTestSuite))
}

func (s *LedgerPropertiesTestSuite) SetupTest() {
	s.store = newMemStore()
	u := &memUOW{store: s.store}

	l := logrus.New()
	l.SetOutput(io.Discard)

	var err error
	s.processor, err = NewTransactionProcessor(u, metrics.New(prometheus.NewRegistry()), l)
	s.Require().NoError(err)
	s.queries, err = NewTransactionQueryService(u)
	s.Require().NoError(err)
}

func (s *LedgerPropertiesTestSuite) deposit(caller domain.Caller, account uuid.UUID, amount int64) (*domain.Transaction, error) {
	return s.processor.Process(s.T().Context(), caller, ProcessTransactionArgs{
		DestinationAccountID: &account,
		Amount:               amount,
		Currency:             "USD",
		Type:                 "deposit",
	})
}

func (s *LedgerPropertiesTestSuite) withdraw(caller domain.Caller, account uuid.UUID, amount int64) (*domain.Transaction, error) {
	return s.processor.Process(s.T().Context(), caller, ProcessTransactionArgs{
		SourceAccountID: &account,
		Amount:          amount,
		Currency:        "USD",
		Type:            "withdrawal",
	})
}

func (s *LedgerPropertiesTestSuite) transfer(caller domain.Caller, from, to uuid.UUID, amount int64) (*domain.Transaction, error) {
	return s.processor.Process(s.T().Context(), caller, ProcessTransactionArgs{
		SourceAccountID:      &from,
		DestinationAccountID: &to,
		Amount:               amount,
		Currency:             "USD",
		Type:                 "transfer",
	})
}

// Сценарий: депозит 5000 на пустой счет.
func (s *LedgerPropertiesTestSuite) TestScenario_DepositToEmptyAccount() {
	alice := domain.NewCaller(uuid.New())
	account := s.store.seedAccount(alice.UserID, "USD", 0)

	transaction, err := s.deposit(alice, account.ID, 5000)
	s.Require().NoError(err)

	s.Equal(int64(5000), s.store.balance(account.ID))
	s.Equal(domain.TransactionStatusCompleted, transaction.Status)

	events := s.store.eventsOf(transaction.ID)
	s.Require().Len(events, 2)
	s.Nil(events[0].PreviousStatus)
	s.Equal(domain.TransactionStatusPending, events[0].NewStatus)
	s.Require().NotNil(events[1].PreviousStatus)
	s.Equal(domain.TransactionStatusPending, *events[1].PreviousStatus)
	s.Equal(domain.TransactionStatusCompleted, events[1].NewStatus)
}

// Сценарий: перевод 4000 при балансе 3000 отклоняется и ничего не меняет.
func (s *LedgerPropertiesTestSuite) TestScenario_TransferInsufficientFunds() {
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "USD", 3000)
	b := s.store.seedAccount(uuid.New(), "USD", 0)

	_, err := s.transfer(alice, a.ID, b.ID, 4000)
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)

	s.Equal(int64(3000), s.store.balance(a.ID))
	s.Equal(int64(0), s.store.balance(b.ID))
	s.Zero(s.store.transactionCount())
}

// Сценарий: вывод в чужой валюте отклоняется с указанием обеих валют.
func (s *LedgerPropertiesTestSuite) TestScenario_CurrencyMismatch() {
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "EUR", 1000)

	_, err := s.withdraw(alice, a.ID, 100)

	var validationErr *domain.ValidationError
	s.Require().ErrorAs(err, &validationErr)
	s.Require().ErrorIs(err, domain.ErrCurrencyMismatch)
	s.Contains(validationErr.Msg, "USD")
	s.Contains(validationErr.Msg, "EUR")
	s.Equal(int64(1000), s.store.balance(a.ID))
	s.Zero(s.store.transactionCount())
}

func (s *LedgerPropertiesTestSuite) TestTransferConservesValue() {
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "USD", 10_000)
	b := s.store.seedAccount(uuid.New(), "USD", 500)
	before := s.store.totalBalance()

	for i := 0; i < 20; i++ {
		amount := int64(gofakeit.IntRange(1, 300))
		_, err := s.transfer(alice, a.ID, b.ID, amount)
		s.Require().NoError(err)
	}

	s.Equal(before, s.store.totalBalance())
}

func (s *LedgerPropertiesTestSuite) TestDepositsCommute() {
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "USD", 0)
	amounts := []int64{700, 20, 3}

	for _, amount := range amounts {
		_, err := s.deposit(alice, a.ID, amount)
		s.Require().NoError(err)
	}
	forward := s.store.balance(a.ID)

	b := s.store.seedAccount(alice.UserID, "GBP", 0)
	for i := len(amounts) - 1; i >= 0; i-- {
		_, err := s.processor.Process(s.T().Context(), alice, ProcessTransactionArgs{
			DestinationAccountID: &b.ID,
			Amount:               amounts[i],
			Currency:             "gbp",
			Type:                 "deposit",
		})
		s.Require().NoError(err)
	}

	s.Equal(int64(723), forward)
	s.Equal(forward, s.store.balance(b.ID))
}

func (s *LedgerPropertiesTestSuite) TestFailureRollsBackEverything() {
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "USD", 1000)
	b := s.store.seedAccount(alice.UserID, "EUR", 0)
	c := s.store.seedAccount(uuid.New(), "USD", 0)

	for _, failOn := range []string{"ApplyBalanceDelta", "UpdateStatus"} {
		s.Run(failOn, func() {
			s.store.failOn = failOn
			defer func() { s.store.failOn = "" }()

			_, err := s.transfer(alice, a.ID, c.ID, 100)
			s.Require().ErrorIs(err, errInjected)

			s.Equal(int64(1000), s.store.balance(a.ID))
			s.Equal(int64(0), s.store.balance(c.ID))
			s.Zero(s.store.transactionCount())
			s.Empty(s.store.events)
		})
	}

	// отказ в доступе тоже ничего не меняет
	bob := domain.NewCaller(uuid.New())
	_, err := s.withdraw(bob, a.ID, 1)
	s.Require().ErrorIs(err, domain.ErrForbidden)
	s.Equal(int64(1000), s.store.balance(a.ID))
	s.Equal(int64(0), s.store.balance(b.ID))
}

func (s *LedgerPropertiesTestSuite) TestConcurrentWithdrawalsNeverOverdraw() {
	const (
		balance = 1000
		amount  = 150
		workers = 20
	)
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "USD", balance)
	ctx := s.T().Context()

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		succeeded    int
		insufficient int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.processor.Process(ctx, alice, ProcessTransactionArgs{
				SourceAccountID: &a.ID,
				Amount:          amount,
				Currency:        "USD",
				Type:            "withdrawal",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				insufficient++
			}
		}()
	}
	wg.Wait()

	s.Equal(balance/amount, succeeded)
	s.Equal(workers-balance/amount, insufficient)
	s.Equal(int64(balance-amount*(balance/amount)), s.store.balance(a.ID))
	s.GreaterOrEqual(s.store.balance(a.ID), int64(0))
}

func (s *LedgerPropertiesTestSuite) TestPagination() {
	alice := domain.NewCaller(uuid.New())
	a := s.store.seedAccount(alice.UserID, "USD", 0)
	for i := 0; i < 25; i++ {
		_, err := s.deposit(alice, a.ID, int64(i+1))
		s.Require().NoError(err)
	}

	page, err := s.queries.ListTransactions(s.T().Context(), alice, 3, 10)
	s.Require().NoError(err)
	s.Len(page.Items, 5)
	s.Equal(int64(25), page.Total)

	first, err := s.queries.ListTransactions(s.T().Context(), alice, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(first.Items, 10)
	// новые первыми
	s.Equal(int64(25), first.Items[0].Amount)

	other := domain.NewCaller(uuid.New())
	empty, err := s.queries.ListTransactions(s.T().Context(), other, 1, 10)
	s.Require().NoError(err)
	s.Empty(empty.Items)
	s.Zero(empty.Total)

	_, err = s.queries.GetTransaction(s.T().Context(), other, first.Items[0].ID)
	s.Require().ErrorIs(err, domain.ErrForbidden)
}
