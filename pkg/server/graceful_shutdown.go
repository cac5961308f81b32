package server

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type shutdownStage struct {
	name string
	fn   func(context.Context) error
}

// GracefulShutdown обеспечивает корректное завершение работы бота:
// прекращение приема обновлений, ожидание команд в работе, закрытие серверов и соединений
type GracefulShutdown struct {
	logger         *zap.Logger
	timeout        time.Duration
	mu             sync.Mutex
	stages         []shutdownStage
	shutdownSignal chan os.Signal
	done           chan struct{}
	once           sync.Once
}

// NewGracefulShutdown создает новый экземпляр GracefulShutdown
func NewGracefulShutdown(logger *zap.Logger, timeout time.Duration) *GracefulShutdown {
	gs := &GracefulShutdown{
		logger:         logger,
		timeout:        timeout,
		shutdownSignal: make(chan os.Signal, 1),
		done:           make(chan struct{}),
	}

	signal.Notify(gs.shutdownSignal, syscall.SIGINT, syscall.SIGTERM)

	return gs
}

// AddShutdownFunc добавляет именованный этап завершения.
// Этапы выполняются в обратном порядке добавления
func (gs *GracefulShutdown) AddShutdownFunc(name string, f func(context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	gs.stages = append(gs.stages, shutdownStage{name: name, fn: f})
}

// Wait блокирует выполнение до получения сигнала завершения или отмены ctx,
// затем выполняет все этапы завершения
func (gs *GracefulShutdown) Wait(ctx context.Context) {
	select {
	case sig := <-gs.shutdownSignal:
		gs.logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case <-ctx.Done():
		gs.logger.Info("Context cancelled, initiating shutdown")
	}

	gs.run()
}

// Trigger инициирует завершение так же, как SIGTERM. Не блокирует
func (gs *GracefulShutdown) Trigger() {
	select {
	case gs.shutdownSignal <- syscall.SIGTERM:
	default:
	}
}

// Done возвращает канал, который закрывается после завершения всех этапов
func (gs *GracefulShutdown) Done() <-chan struct{} {
	return gs.done
}

func (gs *GracefulShutdown) run() {
	gs.once.Do(func() {
		signal.Stop(gs.shutdownSignal)
		gs.shutdown()
		close(gs.done)
	})
}

// shutdown выполняет этапы в обратном порядке (LIFO) с общим таймаутом
func (gs *GracefulShutdown) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	gs.mu.Lock()
	stages := make([]shutdownStage, len(gs.stages))
	copy(stages, gs.stages)
	gs.mu.Unlock()

	for i := len(stages) - 1; i >= 0; i-- {
		stage := stages[i]
		if err := stage.fn(ctx); err != nil {
			gs.logger.Error("Error during shutdown", zap.String("stage", stage.name), zap.Error(err))
			continue
		}
		gs.logger.Debug("Shutdown stage completed", zap.String("stage", stage.name))
	}

	gs.logger.Info("Graceful shutdown completed")
}
