// Command ds-server starts the digital store REST API and its health probe.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/digistore/internal/config"
	"github.com/and161185/digistore/internal/identity"
	"github.com/and161185/digistore/internal/limiter"
	"github.com/and161185/digistore/internal/migrate"
	"github.com/and161185/digistore/internal/payment"
	"github.com/and161185/digistore/internal/repository/postgres"
	httpserver "github.com/and161185/digistore/internal/server/http"
	"github.com/and161185/digistore/internal/server/probe"
	"github.com/and161185/digistore/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

const shutdownTimeout = 5 * time.Second

// main loads configuration, runs migrations and serves HTTP plus the gRPC probe.
func main() {
	config.Load()
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		// logger is not built yet
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(2)
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("probeAddr", cfg.ProbeAddr),
	)

	providers := payment.DefaultRegistry()
	checkoutProv, err := providers.Lookup(cfg.CheckoutProvider)
	if err != nil {
		logger.Fatal("checkout provider", zap.Error(err))
	}
	serviceProv, err := providers.Lookup(cfg.ServiceProvider)
	if err != nil {
		logger.Fatal("service provider", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN, logger); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("pgxpool.New", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	users := postgres.NewUserRepo(db)
	catalog := postgres.NewCatalogRepo(db)
	orders := postgres.NewOrderRepo(db)
	payments := postgres.NewPaymentRepo(db)
	delivery := postgres.NewDeliveryRepo(db)

	var lim limiter.Limiter = limiter.Nop{}
	if cfg.LoginMaxFails > 0 {
		lim = limiter.NewPG(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlock)
	}

	// Services
	issuer := identity.NewIssuer([]byte(cfg.JWTKey), cfg.TokenTTL)
	authSvc := service.NewAuthService(users, issuer, lim, cfg.AdminEmail)
	orderSvc := service.NewOrderService(catalog, orders, checkoutProv, serviceProv)
	paymentSvc := service.NewPaymentService(payments, providers)
	deliverySvc := service.NewDeliveryService(orders, delivery, cfg.PublicBaseURL, cfg.DownloadTTL)

	api := httpserver.New(authSvc, orderSvc, paymentSvc, deliverySvc, issuer, db, logger, httpserver.Options{
		CORSOrigins:  cfg.CORSOrigins,
		RateRPS:      cfg.RateLimitRPS,
		RateBurst:    cfg.RateLimitBurst,
		CookieSecure: cfg.CookieSecure,
	})
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	pr := probe.New(logger, cfg.Dev)
	plis, err := net.Listen("tcp", cfg.ProbeAddr)
	if err != nil {
		logger.Fatal("listen probe", zap.Error(err))
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		errCh <- pr.Serve(plis)
	}()
	pr.SetServing(true)
	go pr.Watch(ctx, db, 10*time.Second)

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		pr.SetServing(false)
		os.Exit(1)
	}

	// graceful shutdown
	pr.SetServing(false)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	pr.Stop(sctx)

	logger.Info("shutdown complete")
}
