// Package grpc serves the standard gRPC health protocol for load balancers and
// orchestrators. Serving status follows the same dependency probes as the HTTP /ready
// endpoint.
package grpc

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/turtacn/shieldgate/pkg/constants"
	"github.com/turtacn/shieldgate/pkg/logger"
)

const (
	defaultProbeInterval = 10 * time.Second
	probeTimeout         = 2 * time.Second
)

// Probe checks one dependency.
type Probe interface {
	HealthCheck(ctx context.Context) (map[string]interface{}, error)
}

// HealthServer keeps the grpc health status of the service in step with its dependencies.
// HealthServer 根据依赖探测结果维护 gRPC 健康状态。
type HealthServer struct {
	*health.Server
	probes   map[string]Probe
	interval time.Duration
	log      logger.Logger
}

// NewHealthServer creates a HealthServer. It reports SERVING until the first probe says
// otherwise. Nil probes are skipped.
func NewHealthServer(probes map[string]Probe, interval time.Duration, log logger.Logger) *HealthServer {
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	active := make(map[string]Probe, len(probes))
	for name, p := range probes {
		if p != nil {
			active[name] = p
		}
	}
	hs := &HealthServer{
		Server:   health.NewServer(),
		probes:   active,
		interval: interval,
		log:      log.WithComponent("grpc_health"),
	}
	hs.setStatus(healthpb.HealthCheckResponse_SERVING)
	return hs
}

// Refresh probes every dependency once and updates the serving status.
func (hs *HealthServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	for name, p := range hs.probes {
		if _, err := p.HealthCheck(ctx); err != nil {
			hs.log.Warn(ctx, "Dependency probe failed", logger.String("dependency", name), logger.String("error", err.Error()))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	hs.setStatus(st)
	return st
}

// Run refreshes the status every interval until ctx ends, then marks the service as not
// serving so in-flight probes see the shutdown.
func (hs *HealthServer) Run(ctx context.Context) error {
	ticker := time.NewTicker(hs.interval)
	defer ticker.Stop()

	hs.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return nil
		case <-ticker.C:
			hs.Refresh(ctx)
		}
	}
}

func (hs *HealthServer) setStatus(st healthpb.HealthCheckResponse_ServingStatus) {
	hs.SetServingStatus("", st)
	hs.SetServingStatus(constants.ServiceName, st)
}

// NewServer creates the gRPC server with the interceptor chain and registers hs.
func NewServer(hs *HealthServer, chain *InterceptorChain, opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{chain.ChainUnaryInterceptors()}, opts...)
	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, hs)
	return server
}
