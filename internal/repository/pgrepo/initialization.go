package pgrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	connectMaxAttempts   = 30
	connectInitialDelay  = 500 * time.Millisecond
	connectMaxRetryDelay = 5 * time.Second
)

// Connect открывает пул соединений к postgres, повторяя попытки с экспоненциальной задержкой, пока база
// не станет доступна или не отменится ctx. После подключения накатывает миграции из migrationsDir.
func Connect(ctx context.Context, migrationsDir, dsn string, l *logrus.Logger) (*pgxpool.Pool, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = connectInitialDelay
	expBackoff.MaxInterval = connectMaxRetryDelay
	expBackoff.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, connectMaxAttempts), ctx)

	var attempt int
	pool, err := backoff.RetryNotifyWithData(
		func() (*pgxpool.Pool, error) {
			attempt++
			return newPostgresConnection(ctx, dsn)
		},
		policy,
		func(connErr error, next time.Duration) {
			l.WithError(connErr).
				WithField("CurrentAttempt", fmt.Sprintf("#%d / %d", attempt, connectMaxAttempts)).
				Warnf("init postgres connection error, retrying in %s", next)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("init postgres connection after %d attempts: %w", attempt, err)
	}

	if migrateErr := postgresMigrate(migrationsDir, dsn); migrateErr != nil {
		pool.Close()
		return nil, migrateErr
	}
	return pool, nil
}

func newPostgresConnection(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, confErr := pgxpool.ParseConfig(dsn)
	if confErr != nil {
		// кривой DSN повторять бессмысленно
		return nil, backoff.Permanent(fmt.Errorf("parse postgres config: %w", confErr))
	}
	pool, poolErr := pgxpool.NewWithConfig(ctx, poolConfig)
	if poolErr != nil {
		return nil, fmt.Errorf("failed to create pool: %w", poolErr)
	}

	// Проверяем, что соединение работает (Ping)
	if pingErr := pool.Ping(ctx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", pingErr)
	}

	return pool, nil
}

func postgresMigrate(dir string, dsn string) error {
	m, mErr := migrate.New("file://"+dir, dsn)
	if mErr != nil {
		return fmt.Errorf("failed to create migrate instance: %w", mErr)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
