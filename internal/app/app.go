package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/cache"
	"github.com/fsdevblog/groph-ledger/internal/config"
	"github.com/fsdevblog/groph-ledger/internal/metrics"
	"github.com/fsdevblog/groph-ledger/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-ledger/internal/service"
	"github.com/fsdevblog/groph-ledger/internal/transport/api"
	"github.com/fsdevblog/groph-ledger/pkg/uow"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
)

const shutdownTimeout = 10 * time.Second

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app with config: %s", a.Config)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("app run: %w", connErr)
	}
	defer conn.Close()

	isoLevel, isoErr := uow.ParseIsoLevel(a.Config.TxIsolation)
	if isoErr != nil {
		return fmt.Errorf("app run: %w", isoErr)
	}
	unitOfWork := uow.NewUnitOfWork(conn, uow.WithIsoLevel(isoLevel))
	if regErr := pgrepo.Register(unitOfWork); regErr != nil {
		return fmt.Errorf("app run: %w", regErr)
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	services, sErr := service.Factory(unitOfWork, m, a.Logger)
	if sErr != nil {
		return fmt.Errorf("app run: %w", sErr)
	}

	redisClient, redisErr := a.connectRedis(notifyCtx)
	if redisErr != nil {
		return fmt.Errorf("app run: %w", redisErr)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	router, routerErr := api.New(api.RouterArgs{
		Logger:             a.Logger,
		AccountService:     services.AccountService,
		Processor:          services.Processor,
		Querier:            services.QueryService,
		Health:             conn,
		JWTSecretKey:       []byte(a.Config.JWTSecret),
		Cache:              redisClient,
		RateLimitPerMinute: a.Config.RateLimitPerMinute,
		IdempotencyTTL:     a.Config.IdempotencyTTL,
		HTTPMetrics:        m,
		Gatherer:           prometheus.DefaultGatherer,
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %w", routerErr)
	}

	srv := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second, //nolint:mnd
	}

	errChan := make(chan error, 1)
	go func() {
		if runErr := srv.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("http server shutdown")
		}
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// connectRedis возвращает nil без ошибки, если REDIS_URL не задан.
func (a *App) connectRedis(ctx context.Context) (*redis.Client, error) {
	if a.Config.RedisURL == "" {
		a.Logger.Warn("REDIS_URL is not set: idempotency keys are ignored, rate limit is per process")
		return nil, nil //nolint:nilnil
	}
	client, err := cache.NewRedisClient(ctx, a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}
