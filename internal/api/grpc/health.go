package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"rentaldesk-bff/internal/api/grpc/interceptor"
	"rentaldesk-bff/internal/logger"
)

// ServiceName is the health service name reported for the BFF itself.
const ServiceName = "rentaldesk.bff"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewServer builds the ops gRPC server: health checks and reflection only.
func NewServer(reporter *HealthReporter) *grpc.Server {
	s := grpc.NewServer(grpc.UnaryInterceptor(interceptor.Logging()))
	healthpb.RegisterHealthServer(s, reporter.health)
	reflection.Register(s)
	return s
}

// HealthReporter keeps the gRPC health status in step with the submission
// journal database.
type HealthReporter struct {
	health *health.Server
	db     Pinger
}

func NewHealthReporter(db Pinger) *HealthReporter {
	return &HealthReporter{health: health.NewServer(), db: db}
}

// Check pings the database once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := h.db.Ping(ctx); err != nil {
		logger.Warn("Health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(ServiceName, status)
	return status
}

// Run checks every interval until ctx is done.
func (h *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

// Shutdown reports NOT_SERVING for every service and ignores later updates.
func (h *HealthReporter) Shutdown() {
	h.health.Shutdown()
}
