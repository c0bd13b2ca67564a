// Package probe serves the gRPC health protocol next to the REST API so
// orchestrators can check liveness without touching application routes.
package probe

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall status.
const ServiceName = "digistore"

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is a gRPC server carrying only health (and reflection in dev).
type Server struct {
	gs     *grpc.Server
	health *health.Server
	log    *zap.Logger
}

// New builds the probe server. It starts NOT_SERVING.
func New(log *zap.Logger, dev bool) *Server {
	gs := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoverUnary(log),
			LoggingUnary(log),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	if dev {
		reflection.Register(gs)
	}
	s := &Server{gs: gs, health: hs, log: log}
	s.SetServing(false)
	return s
}

// SetServing flips the reported status of the server and ServiceName.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Watch pings db every interval and mirrors the result until ctx is done.
func (s *Server) Watch(ctx context.Context, db Pinger, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	up := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		pctx, cancel := context.WithTimeout(ctx, every)
		err := db.Ping(pctx)
		cancel()
		if ctx.Err() != nil {
			return
		}
		if (err == nil) != up {
			up = err == nil
			if !up {
				s.log.Warn("storage unreachable", zap.Error(err))
			} else {
				s.log.Info("storage reachable again")
			}
			s.SetServing(up)
		}
	}
}

// Serve blocks serving lis.
func (s *Server) Serve(lis net.Listener) error { return s.gs.Serve(lis) }

// Stop reports NOT_SERVING and drains connections, forcing a stop when ctx ends.
func (s *Server) Stop(ctx context.Context) {
	s.health.Shutdown()
	done := make(chan struct{})
	go func() {
		s.gs.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.gs.Stop()
	}
}
