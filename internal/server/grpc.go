package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"jobmate/recommendation-service/internal/logging"
)

// ServiceName is the gRPC health service name reported alongside "".
const ServiceName = "jobmate.recommendation.v1.RecommendationService"

// HealthReporter mirrors the dependency checks into the standard gRPC
// health service.
type HealthReporter struct {
	hs     *health.Server
	checks map[string]Check
	log    *logging.Logger
}

func NewHealthReporter(checks map[string]Check, log *logging.Logger) *HealthReporter {
	if log == nil {
		log = logging.NewNop()
	}
	return &HealthReporter{hs: health.NewServer(), checks: checks, log: log}
}

// Register mounts the health service on s.
func (r *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.hs)
}

// Refresh runs every check once and publishes SERVING or NOT_SERVING.
func (r *HealthReporter) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range r.checks {
		if err := check(ctx); err != nil {
			r.log.Warn("dependency unhealthy", "dependency", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	r.hs.SetServingStatus("", status)
	r.hs.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes on every tick until ctx ends, then marks the service as
// shutting down.
func (r *HealthReporter) Watch(ctx context.Context, every time.Duration) {
	r.Refresh(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.hs.Shutdown()
			return
		case <-t.C:
			r.Refresh(ctx)
		}
	}
}
