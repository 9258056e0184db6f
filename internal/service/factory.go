package service

import (
	"fmt"

	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/sirupsen/logrus"
)

type AppServices struct {
	AccountService *AccountService
	Processor      *TransactionProcessor
	QueryService   *TransactionQueryService
}

func Factory(unitOfWork uow.UOW, m MetricsRecorder, l *logrus.Logger) (*AppServices, error) {
	accountService, accountServiceErr := NewAccountService(unitOfWork)
	if accountServiceErr != nil {
		return nil, fmt.Errorf("service factory: %w", accountServiceErr)
	}

	processor, processorErr := NewTransactionProcessor(unitOfWork, m, l)
	if processorErr != nil {
		return nil, fmt.Errorf("service factory: %w", processorErr)
	}

	queryService, queryServiceErr := NewTransactionQueryService(unitOfWork)
	if queryServiceErr != nil {
		return nil, fmt.Errorf("service factory: %w", queryServiceErr)
	}

	return &AppServices{
		AccountService: accountService,
		Processor:      processor,
		QueryService:   queryService,
	}, nil
}
