package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthReporter probes backing services and publishes the result on a health server.
// The empty service name reports SERVING only while every checker passes.
type HealthReporter struct {
	srv      *health.Server
	checkers []Checker
	interval time.Duration
	timeout  time.Duration
	log      *zap.Logger
}

func NewHealthReporter(srv *health.Server, log *zap.Logger, interval time.Duration, checkers ...Checker) *HealthReporter {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	timeout := interval / 2
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	return &HealthReporter{
		srv:      srv,
		checkers: checkers,
		interval: interval,
		timeout:  timeout,
		log:      log.With(zap.String("component", "grpc.health")),
	}
}

// Probe runs every checker once and reports whether all of them passed.
func (r *HealthReporter) Probe(ctx context.Context) bool {
	healthy := true
	for _, c := range r.checkers {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		err := c.Check(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			healthy = false
			status = healthpb.HealthCheckResponse_NOT_SERVING
			r.log.Warn("health check failed", zap.String("check", c.Name()), zap.Error(err))
		}
		r.srv.SetServingStatus(c.Name(), status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.srv.SetServingStatus("", overall)
	return healthy
}

// Run probes on every interval until ctx is done, then marks everything NOT_SERVING.
func (r *HealthReporter) Run(ctx context.Context) error {
	r.Probe(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.srv.Shutdown()
			return nil
		case <-ticker.C:
			r.Probe(ctx)
		}
	}
}
