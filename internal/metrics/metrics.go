// Package metrics описывает prometheus метрики сервиса.
package metrics

import (
	"strconv"
	"time"

	"github.com/fsdevblog/groph-ledger/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ledger"

// Исходы обработки транзакции. Используются как значение метки outcome.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	transactionsTotal   *prometheus.CounterVec
	processDuration     *prometheus.HistogramVec
}

// New регистрирует метрики в reg. В приложении передается prometheus.DefaultRegisterer,
// в тестах отдельный prometheus.NewRegistry(), чтобы не ловить повторную регистрацию.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		transactionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_processed_total",
				Help:      "Processed transaction requests by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		processDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_process_duration_seconds",
				Help:      "Duration of the transaction unit of work",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"type"},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequestDuration.WithLabelValues(method, path, code).Observe(d.Seconds())
	m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
}

func (m *Metrics) ObserveTransaction(txType domain.TransactionType, outcome string, d time.Duration) {
	m.transactionsTotal.WithLabelValues(txType.String(), outcome).Inc()
	m.processDuration.WithLabelValues(txType.String()).Observe(d.Seconds())
}
