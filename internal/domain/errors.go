package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")
	ErrForbidden      = errors.New("forbidden")

	ErrIllegalStatusTransition = errors.New("illegal transaction status transition")
)

// Причины ошибок валидации. Оборачиваются в ValidationError.
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidPage       = errors.New("invalid page")
	ErrAccountRequired   = errors.New("account required")
	ErrCurrencyMismatch  = errors.New("currency mismatch")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// ValidationError запрос некорректен или противоречив. Field указывает на поле запроса, к которому относится ошибка.
type ValidationError struct {
	Field string
	Err   error
	Msg   string
}

func NewValidationError(field string, err error, format string, args ...any) error {
	return &ValidationError{
		Field: field,
		Err:   err,
		Msg:   fmt.Sprintf(format, args...),
	}
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ForbiddenError у вызывающего нет прав на ресурс. errors.Is(err, ErrForbidden) == true.
type ForbiddenError struct {
	Msg string
}

func NewForbiddenError(msg string) error {
	return &ForbiddenError{Msg: msg}
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrForbidden.Error(), e.Msg)
}

func (e *ForbiddenError) Unwrap() error {
	return ErrForbidden
}
