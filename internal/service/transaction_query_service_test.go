package service

import (
	"testing"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/fsdevblog/groph-ledger/internal/repository/repoargs"
	"github.com/fsdevblog/groph-ledger/internal/service/mocks"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	uowmocks "github.com/fsdevblog/groph-ledger/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type TransactionQueryServiceTestSuite struct {
	suite.Suite
	mockCtrl   *gomock.Controller
	mockUOW    *uowmocks.MockUOW
	mockTxRepo *mocks.MockTransactionRepository
	service    *TransactionQueryService
	caller     domain.Caller
}

func TestTransactionQueryServiceSuite(t *testing.T) {
	suite.Run(t, new(TransactionQueryServiceTestSuite))
}

func (s *TransactionQueryServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTxRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.caller = domain.NewCaller(uuid.New())

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTxRepo, nil).AnyTimes()

	var err error
	s.service, err = NewTransactionQueryService(s.mockUOW)
	s.Require().NoError(err)
}

func (s *TransactionQueryServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *TransactionQueryServiceTestSuite) TestGetTransaction() {
	transaction := &domain.Transaction{ID: uuid.New(), Status: domain.TransactionStatusCompleted}

	s.mockTxRepo.EXPECT().UserCanAccess(gomock.Any(), s.caller.UserID, transaction.ID).Return(true, nil)
	s.mockTxRepo.EXPECT().GetByID(gomock.Any(), transaction.ID).Return(transaction, nil)

	got, err := s.service.GetTransaction(s.T().Context(), s.caller, transaction.ID)
	s.Require().NoError(err)
	s.Equal(transaction, got)
}

func (s *TransactionQueryServiceTestSuite) TestGetTransaction_Forbidden() {
	id := uuid.New()
	// GetByID не должен вызываться
	s.mockTxRepo.EXPECT().UserCanAccess(gomock.Any(), s.caller.UserID, id).Return(false, nil)

	_, err := s.service.GetTransaction(s.T().Context(), s.caller, id)
	s.Require().ErrorIs(err, domain.ErrForbidden)
}

func (s *TransactionQueryServiceTestSuite) TestGetTransactionEvents() {
	id := uuid.New()
	events := []domain.TransactionEvent{{TransactionID: id, NewStatus: domain.TransactionStatusPending}}

	s.mockTxRepo.EXPECT().UserCanAccess(gomock.Any(), s.caller.UserID, id).Return(true, nil)
	s.mockTxRepo.EXPECT().ListEvents(gomock.Any(), id).Return(events, nil)

	got, err := s.service.GetTransactionEvents(s.T().Context(), s.caller, id)
	s.Require().NoError(err)
	s.Equal(events, got)

	other := uuid.New()
	s.mockTxRepo.EXPECT().UserCanAccess(gomock.Any(), s.caller.UserID, other).Return(false, nil)
	_, err = s.service.GetTransactionEvents(s.T().Context(), s.caller, other)
	s.Require().ErrorIs(err, domain.ErrForbidden)
}

func (s *TransactionQueryServiceTestSuite) TestListTransactions() {
	items := []domain.Transaction{{ID: uuid.New()}}
	s.mockTxRepo.EXPECT().ListForUser(gomock.Any(), repoargs.ListForUser{
		UserID:   s.caller.UserID,
		Page:     2,
		PageSize: 10,
	}).Return(items, int64(11), nil)

	page, err := s.service.ListTransactions(s.T().Context(), s.caller, 2, 10)
	s.Require().NoError(err)
	s.Equal(items, page.Items)
	s.Equal(int64(11), page.Total)
	s.Equal(uint(2), page.Page)
}

func (s *TransactionQueryServiceTestSuite) TestListTransactions_InvalidPage() {
	cases := []struct {
		name      string
		page      uint
		pageSize  uint
		wantField string
	}{
		{name: "zero page", page: 0, pageSize: 10, wantField: FieldPage},
		{name: "zero page size", page: 1, pageSize: 0, wantField: FieldPageSize},
		{name: "page size too big", page: 1, pageSize: MaxPageSize + 1, wantField: FieldPageSize},
		{name: "offset overflows", page: 1<<62 + 1, pageSize: 4, wantField: FieldPage},
	}
	for _, tt := range cases {
		s.Run(tt.name, func() {
			_, err := s.service.ListTransactions(s.T().Context(), s.caller, tt.page, tt.pageSize)
			s.Require().ErrorIs(err, domain.ErrInvalidPage)

			var validationErr *domain.ValidationError
			s.Require().ErrorAs(err, &validationErr)
			s.Equal(tt.wantField, validationErr.Field)
		})
	}
}
