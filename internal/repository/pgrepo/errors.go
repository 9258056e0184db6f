package pgrepo

import (
	"errors"
	"fmt"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Коды ошибок postgres (SQLSTATE), которые имеют смысл для слоя сервисов.
const (
	uniqueViolationCode     = "23505"
	foreignKeyViolationCode = "23503"
)

// convertErr приводит ошибку pgx к ошибке слоя репозитория с сообщением контекста format.
//   - pgx.ErrNoRows и нарушение внешнего ключа (ссылка на несуществующий счет) -> domain.ErrRecordNotFound.
//   - нарушение уникальности (второй счет юзера в той же валюте) -> domain.ErrDuplicateKey.
//   - все остальное -> domain.ErrUnknown с оригинальным сообщением. Детали не уходят клиенту, только в лог.
func convertErr(err error, format string, formatArgs ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, formatArgs...)

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("[repository/%s] %w", msg, domain.ErrRecordNotFound)
	}

	errType := domain.ErrUnknown
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			errType = domain.ErrDuplicateKey
		case foreignKeyViolationCode:
			errType = domain.ErrRecordNotFound
		}
	}

	return fmt.Errorf("[repository/%s] %w: %s", msg, errType, err.Error())
}
