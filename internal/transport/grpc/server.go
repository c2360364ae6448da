package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// NewServer builds a gRPC server that only exposes grpc.health.v1.Health.
func NewServer(log *zap.Logger, requestTimeout time.Duration) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RequestTimeoutInterceptor(requestTimeout),
			loggingInterceptor(log.With(zap.String("component", "grpc"))),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}

// RequestTimeoutInterceptor bounds calls that arrive without a deadline.
func RequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func loggingInterceptor(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("rpc failed", zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start)), zap.Error(err))
			return resp, err
		}
		log.Debug("rpc", zap.String("method", info.FullMethod), zap.Duration("duration", time.Since(start)))
		return resp, nil
	}
}

// Shutdown stops s gracefully, forcing it after timeout.
func Shutdown(log *zap.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", zap.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}
