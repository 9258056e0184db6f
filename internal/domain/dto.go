package domain

import "strings"

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
)

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
)

// Таблицы соответствия строкового представления в БД и типов. Любое новое значение добавляется сюда.
var (
	transactionStatuses = map[string]TransactionStatus{
		"pending":   TransactionStatusPending,
		"completed": TransactionStatusCompleted,
		"failed":    TransactionStatusFailed,
		"cancelled": TransactionStatusCancelled,
	}
	transactionTypes = map[string]TransactionType{
		"deposit":    TransactionTypeDeposit,
		"withdrawal": TransactionTypeWithdrawal,
		"transfer":   TransactionTypeTransfer,
	}
	accountStatuses = map[string]AccountStatus{
		"active":    AccountStatusActive,
		"suspended": AccountStatusSuspended,
		"closed":    AccountStatusClosed,
	}
)

// ParseTransactionType без учета регистра. Нераспознанная строка трактуется как TransactionTypeTransfer.
// Такое поведение унаследовано от существующих клиентов и, скорее всего, является ошибкой: опечатка в типе
// превращается в перевод.
func ParseTransactionType(s string) TransactionType {
	if t, ok := transactionTypes[strings.ToLower(s)]; ok {
		return t
	}
	return TransactionTypeTransfer
}

// ParseTransactionStatus без учета регистра. Нераспознанная строка трактуется как TransactionStatusPending.
func ParseTransactionStatus(s string) TransactionStatus {
	if st, ok := transactionStatuses[strings.ToLower(s)]; ok {
		return st
	}
	return TransactionStatusPending
}

// ParseAccountStatus без учета регистра. Нераспознанная строка трактуется как AccountStatusActive.
func ParseAccountStatus(s string) AccountStatus {
	if st, ok := accountStatuses[strings.ToLower(s)]; ok {
		return st
	}
	return AccountStatusActive
}

func (s TransactionStatus) String() string { return string(s) }
func (t TransactionType) String() string   { return string(t) }
func (s AccountStatus) String() string     { return string(s) }

// IsTerminal сообщает, является ли статус конечным. Из конечного статуса переходов нет.
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

// CanTransition проверяет допустимость перехода статуса транзакции: только из pending и только в конечный статус.
func CanTransition(from, to TransactionStatus) bool {
	return from == TransactionStatusPending && to.IsTerminal()
}

// RequiresSource тип транзакции списывает средства со счета-источника.
func (t TransactionType) RequiresSource() bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeTransfer
}

// RequiresDestination тип транзакции зачисляет средства на счет-получатель.
func (t TransactionType) RequiresDestination() bool {
	return t == TransactionTypeDeposit || t == TransactionTypeTransfer
}
