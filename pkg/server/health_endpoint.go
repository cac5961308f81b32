package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Статусы зависимостей
const (
	statusUp       = "up"
	statusDown     = "down"
	statusDegraded = "degraded"
	statusDisabled = "disabled"
	statusUnknown  = "unknown"
)

// HealthCheckerInterface определяет интерфейс для проверки здоровья зависимостей бота
type HealthCheckerInterface interface {
	// IsDatabaseHealthy проверяет здоровье хранилища платежей
	IsDatabaseHealthy(ctx context.Context) bool

	// IsRedisHealthy проверяет здоровье кэша
	IsRedisHealthy(ctx context.Context) bool

	// RedisEnabled сообщает, подключен ли кэш
	RedisEnabled() bool
}

// ReadinessListener получает результат каждой периодической проверки
type ReadinessListener func(ready bool)

// HealthCheck представляет сервис проверки здоровья
type HealthCheck struct {
	checker       HealthCheckerInterface
	logger        *zap.Logger
	server        *http.Server
	interval      time.Duration
	listener      ReadinessListener
	stop          chan struct{}
	stopOnce      sync.Once
	statusMutex   sync.RWMutex
	serviceStatus map[string]string
}

// HealthResponse представляет ответ эндпоинта проверки здоровья
type HealthResponse struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
}

// NewHealthCheck создает новый сервис проверки здоровья
func NewHealthCheck(checker HealthCheckerInterface, logger *zap.Logger, version string) *HealthCheck {
	health := &HealthCheck{
		checker:       checker,
		logger:        logger,
		interval:      10 * time.Second,
		stop:          make(chan struct{}),
		serviceStatus: make(map[string]string),
	}

	health.serviceStatus["service"] = statusUp
	health.serviceStatus["storage"] = statusUnknown
	health.serviceStatus["redis"] = statusUnknown
	if !checker.RedisEnabled() {
		health.serviceStatus["redis"] = statusDisabled
	}
	health.serviceStatus["version"] = version

	return health
}

// OnReadinessChange подписывает listener на результаты проверок.
// Используется для синхронизации статуса gRPC health
func (h *HealthCheck) OnReadinessChange(listener ReadinessListener) {
	h.listener = listener
}

// StartServer запускает HTTP сервер для проверки здоровья
func (h *HealthCheck) StartServer(port int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", h.livenessHandler)
	mux.HandleFunc("/health/ready", h.readinessHandler)
	mux.HandleFunc("/health", h.healthHandler)

	h.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: LoggingMiddleware(h.logger, mux),
	}

	go func() {
		h.logger.Info("Starting health check server", zap.Int("port", port))
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("Health check server failed", zap.Error(err))
		}
	}()

	// Первая проверка сразу, дальше по таймеру
	go func() {
		h.checkServicesHealth()
		h.monitorHealth()
	}()
}

// Stop останавливает фоновую проверку и HTTP сервер
func (h *HealthCheck) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() { close(h.stop) })

	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// livenessHandler обрабатывает запросы проверки жизнеспособности
func (h *HealthCheck) livenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

// readinessHandler обрабатывает запросы проверки готовности
func (h *HealthCheck) readinessHandler(w http.ResponseWriter, r *http.Request) {
	h.statusMutex.RLock()
	storageStatus := h.serviceStatus["storage"]
	h.statusMutex.RUnlock()

	// Без хранилища бот не может выполнить ни одной команды
	if storageStatus != statusUp {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  statusDown,
			"message": "Storage is not available",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": statusUp})
}

// healthHandler обрабатывает запросы полной информации о здоровье
func (h *HealthCheck) healthHandler(w http.ResponseWriter, r *http.Request) {
	h.statusMutex.RLock()
	services := make(map[string]string, len(h.serviceStatus))
	for k, v := range h.serviceStatus {
		services[k] = v
	}
	h.statusMutex.RUnlock()

	status := statusUp
	code := http.StatusOK
	if services["storage"] != statusUp {
		status = statusDown
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{
		Status:    status,
		Services:  services,
		Timestamp: time.Now(),
		Version:   services["version"],
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// monitorHealth регулярно проверяет состояние зависимостей до вызова Stop
func (h *HealthCheck) monitorHealth() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.checkServicesHealth()
		case <-h.stop:
			return
		}
	}
}

// checkServicesHealth проверяет здоровье всех зависимостей
func (h *HealthCheck) checkServicesHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	storageStatus := statusUp
	if !h.checker.IsDatabaseHealthy(ctx) {
		storageStatus = statusDown
		h.logger.Warn("Storage health check failed")
	}

	// Кэш не критичен: без него бот работает медленнее, но корректно
	redisStatus := statusDisabled
	if h.checker.RedisEnabled() {
		redisStatus = statusUp
		if !h.checker.IsRedisHealthy(ctx) {
			redisStatus = statusDegraded
			h.logger.Warn("Redis health check failed")
		}
	}

	h.statusMutex.Lock()
	h.serviceStatus["storage"] = storageStatus
	h.serviceStatus["redis"] = redisStatus
	h.statusMutex.Unlock()

	if h.listener != nil {
		h.listener(storageStatus == statusUp)
	}
}
