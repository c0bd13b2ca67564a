package probe

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1024 * 1024

func startBufProbe(t *testing.T, s *Server) healthpb.HealthClient {
	t.Helper()
	lis := bufconn.Listen(bufSize)
	go func() { _ = s.Serve(lis) }()
	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	//nolint:staticcheck // DialContext is supported through 1.x; migrate when grpc.NewClient is stable
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = cc.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
		_ = lis.Close()
	})
	return healthpb.NewHealthClient(cc)
}

func check(t *testing.T, c healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestProbe_ServingTransitions(t *testing.T) {
	t.Parallel()

	s := New(zaptest.NewLogger(t), true)
	c := startBufProbe(t, s)

	if st := check(t, c, ""); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("initial status = %v", st)
	}
	s.SetServing(true)
	if st := check(t, c, ServiceName); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status after SetServing(true) = %v", st)
	}
	s.SetServing(false)
	if st := check(t, c, ""); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status after SetServing(false) = %v", st)
	}
}

type flakyDB struct{ down atomic.Bool }

func (f *flakyDB) Ping(context.Context) error {
	if f.down.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestProbe_WatchMirrorsStorage(t *testing.T) {
	t.Parallel()

	s := New(zaptest.NewLogger(t), false)
	c := startBufProbe(t, s)
	s.SetServing(true)

	db := &flakyDB{}
	db.down.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Watch(ctx, db, 5*time.Millisecond)

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if check(t, c, ServiceName) == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("status never became %v", want)
	}

	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)
	db.down.Store(false)
	waitFor(healthpb.HealthCheckResponse_SERVING)
}
