package uow

import "errors"

var (
	ErrRepositoryNotRegistered     = errors.New("[uow] repository not registered")
	ErrRepositoryAlreadyRegistered = errors.New("[uow] repository already registered")
	ErrInvalidRepositoryType       = errors.New("[uow] invalid repository type")
	ErrNilFactory                  = errors.New("[uow] repository factory is nil")
	// ErrUnsupportedIsoLevel уровень изоляции из конфигурации не поддерживается.
	ErrUnsupportedIsoLevel = errors.New("[uow] unsupported isolation level")
)
