// Package httpserver exposes the store's REST API over gin.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/digistore/internal/service"
)

// Pinger reports storage reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the transport.
type Options struct {
	CORSOrigins  []string
	RateRPS      float64 // 0 disables throttling
	RateBurst    int
	CookieSecure bool
}

// Server wires services into gin handlers.
type Server struct {
	auth     service.AuthService
	orders   service.OrderService
	payments service.PaymentService
	delivery service.DeliveryService
	tokens   TokenVerifier
	db       Pinger
	log      *zap.Logger
	opts     Options
	router   *gin.Engine
}

// New constructs the server and its routes.
func New(
	auth service.AuthService,
	orders service.OrderService,
	payments service.PaymentService,
	delivery service.DeliveryService,
	tokens TokenVerifier,
	db Pinger,
	log *zap.Logger,
	opts Options,
) *Server {
	s := &Server{
		auth:     auth,
		orders:   orders,
		payments: payments,
		delivery: delivery,
		tokens:   tokens,
		db:       db,
		log:      log,
		opts:     opts,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(Recover(s.log), Logging(s.log))
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     s.opts.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if s.opts.RateRPS > 0 {
		r.Use(NewRateLimiter(s.opts.RateRPS, s.opts.RateBurst).Middleware())
	}

	r.GET("/healthz", s.handleHealth)

	api := r.Group("/api", Authenticate(s.tokens))
	{
		api.POST("/auth/register", s.handleRegister)
		api.POST("/auth/login", s.handleLogin)
		api.POST("/auth/logout", s.handleLogout)
		api.GET("/auth/me", RequireUser(), s.handleMe)

		api.POST("/checkout", s.handleCheckout)
		api.POST("/checkout/cart", s.handleCheckoutCart)
		api.POST("/checkout/service", s.handleCheckoutService)

		user := api.Group("", RequireUser())
		user.GET("/orders", s.handleMyOrders)
		user.GET("/orders/:id", s.handleOrder)
		user.GET("/orders/:id/access", s.handleAccess)
		user.GET("/downloads/:token", s.handleRedeem)
	}

	admin := r.Group("/admin", Authenticate(s.tokens), AdminGate())
	{
		admin.GET("/orders", s.handleAdminOrders)
		admin.POST("/payments/:id/confirm", s.handleConfirm)
	}
	return r
}
