package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"PaymentReminderBot/pkg/apperrors"
	"PaymentReminderBot/pkg/resilience"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Исходы команды для метрик
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

var (
	// commandDuration измеряет длительность обработки команд бота
	commandDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command", "status"},
	)

	// commandsTotal подсчитывает общее количество команд бота
	commandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands",
		},
		[]string{"command", "status"},
	)

	// grpcRequestsTotal подсчитывает запросы к служебному gRPC серверу
	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	// dbOperationDuration измеряет длительность сессий хранилища
	dbOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// dbOperationsTotal подсчитывает общее количество сессий хранилища
	dbOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_operations_total",
			Help: "Total number of database operations",
		},
		[]string{"operation", "status"},
	)

	// cacheOperationDuration измеряет длительность операций с кэшем
	cacheOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Duration of cache operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "status"},
	)

	// cacheOperationsTotal подсчитывает общее количество операций с кэшем
	cacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total number of cache operations",
		},
		[]string{"operation", "status"},
	)

	// circuitBreakerState отслеживает состояние circuit breaker
	circuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "State of circuit breaker (0: closed, 1: half-open, 2: open)",
		},
		[]string{"name"},
	)
)

// MetricsServer запускает HTTP сервер для Prometheus
func MetricsServer(port int, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: LoggingMiddleware(logger, mux),
	}

	go func() {
		logger.Info("Starting metrics server", zap.Int("port", port))
		// Недоступные метрики не должны останавливать бота
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}

// CommandStatus относит ошибку команды к одному из исходов.
// Отказ по бизнес-правилам (не найдено, неверный формат) не считается сбоем
func CommandStatus(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case apperrors.IsIgnored(err):
		return StatusRejected
	default:
		return StatusError
	}
}

// RecordCommand записывает метрики обработанной команды
func RecordCommand(command string, duration time.Duration, err error) {
	status := CommandStatus(err)

	commandDuration.WithLabelValues(command, status).Observe(duration.Seconds())
	commandsTotal.WithLabelValues(command, status).Inc()
}

// MetricsUnaryInterceptor создает gRPC перехватчик для подсчета запросов к служебному серверу
func MetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		grpcRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// RecordDBOperation записывает метрики операции с базой данных
func RecordDBOperation(operation string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}

	dbOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	dbOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCacheOperation записывает метрики операции с кэшем
func RecordCacheOperation(operation string, duration time.Duration, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}

	cacheOperationDuration.WithLabelValues(operation, status).Observe(duration.Seconds())
	cacheOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordCircuitBreakerStateChange записывает изменение состояния circuit breaker.
// Подходит как resilience.StateListener
func RecordCircuitBreakerStateChange(name string, state resilience.CircuitState) {
	circuitBreakerState.WithLabelValues(name).Set(float64(state))
}
