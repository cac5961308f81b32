package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// GRPCHealthServer служебный gRPC сервер со стандартным протоколом grpc.health.v1.
// Бот не предоставляет собственного gRPC API, сервер нужен оркестратору
type GRPCHealthServer struct {
	server *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewGRPCHealthServer создает служебный gRPC сервер. До первой проверки статус NOT_SERVING
func NewGRPCHealthServer(logger *zap.Logger) *GRPCHealthServer {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			TracingUnaryInterceptor(logger),
			MetricsUnaryInterceptor(),
		),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(srv, healthServer)
	reflection.Register(srv)

	return &GRPCHealthServer{
		server: srv,
		health: healthServer,
		logger: logger,
	}
}

// SetServing обновляет общий статус сервиса. Подходит как ReadinessListener
func (g *GRPCHealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", status)
}

// Start начинает прием соединений на порту port
func (g *GRPCHealthServer) Start(port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	return g.Serve(lis)
}

// Serve начинает прием соединений на готовом listener
func (g *GRPCHealthServer) Serve(lis net.Listener) error {
	go func() {
		g.logger.Info("Starting gRPC health server", zap.String("addr", lis.Addr().String()))
		if err := g.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			g.logger.Error("gRPC health server failed", zap.Error(err))
		}
	}()

	return nil
}

// Stop переводит статус в NOT_SERVING и останавливает сервер. Если ctx истекает
// раньше GracefulStop, соединения закрываются принудительно
func (g *GRPCHealthServer) Stop(ctx context.Context) error {
	g.health.Shutdown()

	done := make(chan struct{})
	go func() {
		g.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		g.server.Stop()
		return ctx.Err()
	}
}
