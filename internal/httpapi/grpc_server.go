package httpapi

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"tourney.org/internal/obs"
)

type readinessChecker interface {
	Check(ctx context.Context) error
}

// GRPCHealth exposes the standard grpc.health.v1 service backed by the
// same readiness probe as /readyz. Orchestrators that speak gRPC health
// checks get the same answer as HTTP ones.
type GRPCHealth struct {
	server    *health.Server
	readiness readinessChecker
}

func NewGRPCHealth(r readinessChecker) *GRPCHealth {
	return &GRPCHealth{
		server:    health.NewServer(),
		readiness: r,
	}
}

// Register attaches the health service to the given gRPC server.
func (h *GRPCHealth) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, h.server)
}

// Watch polls the readiness probe and keeps the advertised status in sync
// until ctx is cancelled.
func (h *GRPCHealth) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h.update(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.update(ctx)
		}
	}
}

func (h *GRPCHealth) update(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.readiness.Check(checkCtx); err != nil {
		obs.SetReady(false)
		h.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		h.server.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	obs.SetReady(true)
	h.server.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	h.server.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
}
