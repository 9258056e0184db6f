package api

import (
	"fmt"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
)

const (
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"

	RouteGroup             = "/api"
	AccountsRoute          = "/accounts"
	AccountRoute           = "/accounts/:id"
	TransactionsRoute      = "/transactions"
	TransactionRoute       = "/transactions/:id"
	TransactionEventsRoute = "/transactions/:id/events"
)

type RouterArgs struct {
	Logger         *logrus.Logger
	AccountService AccountServicer
	Processor      TransactionProcessor
	Querier        TransactionQuerier
	Health         HealthChecker
	JWTSecretKey   []byte

	// Cache redis для idempotency и rate limit. Может быть nil: idempotency отключается,
	// rate limit работает в памяти процесса.
	Cache              *redis.Client
	RateLimitPerMinute int
	IdempotencyTTL     time.Duration

	// HTTPMetrics и Gatherer опциональны. Без Gatherer роут MetricsRoute не регистрируется.
	HTTPMetrics middlewares.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	l := args.Logger
	if l == nil {
		l = logrus.StandardLogger()
	}
	idempotencyTTL := args.IdempotencyTTL
	if idempotencyTTL <= 0 {
		idempotencyTTL = DefaultIdempotencyTTL
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.HTTPMetrics != nil {
		r.Use(middlewares.Metrics(args.HTTPMetrics))
	}
	r.Use(middlewares.Logger(l))
	r.Use(middlewares.Errors())

	healthHandler := NewHealthHandler(args.Health)
	accountsHandler := NewAccountsHandler(args.AccountService)
	transactionsHandler := NewTransactionsHandler(args.Processor, args.Querier)

	r.GET(HealthRoute, healthHandler.Show)
	if args.Gatherer != nil {
		r.GET(MetricsRoute, gin.WrapH(promhttp.HandlerFor(args.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group(RouteGroup)
	// все роуты группы требуют авторизованного пользователя, лимит считается на юзера.
	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	api.Use(middlewares.RateLimit(args.Cache, args.RateLimitPerMinute, l))

	api.POST(AccountsRoute, accountsHandler.Create)
	api.GET(AccountsRoute, accountsHandler.Index)
	api.GET(AccountRoute, accountsHandler.Show)

	api.POST(TransactionsRoute, middlewares.Idempotency(args.Cache, idempotencyTTL, l), transactionsHandler.Create)
	api.GET(TransactionsRoute, transactionsHandler.Index)
	api.GET(TransactionRoute, transactionsHandler.Show)
	api.GET(TransactionEventsRoute, transactionsHandler.Events)
	return r, nil
}
