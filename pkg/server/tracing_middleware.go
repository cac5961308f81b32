package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type contextKey string

const (
	// RequestIDKey ключ для request ID в контексте
	RequestIDKey contextKey = "request_id"

	// StartTimeKey ключ для времени начала запроса в контексте
	StartTimeKey contextKey = "start_time"
)

// TraceCommand выполняет команду бота с request ID в контексте, логирует ее
// начало и завершение и записывает метрики. Ошибка fn возвращается без изменений
func TraceCommand(ctx context.Context, logger *zap.Logger, command string, fn func(ctx context.Context) error) error {
	requestID := GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.New().String()
		ctx = context.WithValue(ctx, RequestIDKey, requestID)
	}

	startTime := time.Now()
	ctx = context.WithValue(ctx, StartTimeKey, startTime)

	logger.Debug("Start processing command",
		zap.String("command", command),
		zap.String("request_id", requestID))

	err := fn(ctx)

	duration := time.Since(startTime)
	RecordCommand(command, duration, err)

	switch CommandStatus(err) {
	case StatusError:
		logger.Error("Command failed",
			zap.String("command", command),
			zap.String("request_id", requestID),
			zap.Duration("duration", duration),
			zap.Error(err))
	case StatusRejected:
		logger.Info("Command rejected",
			zap.String("command", command),
			zap.String("request_id", requestID),
			zap.Duration("duration", duration),
			zap.Error(err))
	default:
		logger.Info("Command completed",
			zap.String("command", command),
			zap.String("request_id", requestID),
			zap.Duration("duration", duration))
	}

	return err
}

// TracingUnaryInterceptor создает перехватчик для трассировки запросов к служебному gRPC серверу
func TracingUnaryInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := getRequestIDFromMetadata(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = context.WithValue(ctx, RequestIDKey, requestID)

		startTime := time.Now()
		resp, err := handler(ctx, req)

		logger.Debug("gRPC request completed",
			zap.String("method", info.FullMethod),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(startTime)),
			zap.Error(err))

		return resp, err
	}
}

// LoggingMiddleware создает middleware для HTTP запросов служебных серверов
func LoggingMiddleware(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		startTime := time.Now()

		ww := &responseWriterWrapper{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(ww, r)

		logger.Debug("HTTP request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Int("status", ww.statusCode),
			zap.Duration("duration", time.Since(startTime)))
	})
}

// responseWriterWrapper обертка для http.ResponseWriter для отслеживания кода состояния
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader перехватывает WriteHeader для сохранения кода состояния
func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// getRequestIDFromMetadata извлекает request ID из metadata
func getRequestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get("x-request-id")
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// GetRequestID извлекает request ID из контекста
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID добавляет request ID в логгер
func WithRequestID(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if requestID := GetRequestID(ctx); requestID != "" {
		return logger.With(zap.String("request_id", requestID))
	}
	return logger
}
