package httpserver

import (
	"net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/and161185/digistore/internal/identity"
)

// Cookie names. RoleCookie is a UI hint only and is never read by the server.
const (
	AuthCookie = "auth_token"
	RoleCookie = "user_role"
)

// LoginPath is where the admin gate sends anonymous callers.
const LoginPath = "/login"

// Logging logs request metadata, never bodies.
func Logging(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recover turns a handler panic into a 500.
func Recover(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.FullPath()),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}

type ipLimiter struct {
	lim  *rate.Limiter
	last time.Time
}

// RateLimiter throttles requests per client ip with a token bucket.
type RateLimiter struct {
	mu        sync.Mutex
	byIP      map[string]*ipLimiter
	rps       rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter returns a limiter allowing rps requests per second with burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		byIP:  make(map[string]*ipLimiter),
		rps:   rate.Limit(rps),
		burst: burst,
		idle:  30 * time.Minute,
		now:   time.Now,
	}
}

// Allow reports whether ip may make a request now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idle {
		for k, v := range rl.byIP {
			if now.Sub(v.last) > rl.idle {
				delete(rl.byIP, k)
			}
		}
		rl.lastSweep = now
	}

	l, ok := rl.byIP[ip]
	if !ok {
		l = &ipLimiter{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.byIP[ip] = l
	}
	l.last = now
	return l.lim.AllowN(now, 1)
}

// Middleware answers 429 once the caller's bucket is empty.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

// TokenVerifier validates identity assertions.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

func bearerToken(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return ""
}

// tokenFrom reads the assertion from the Authorization header, then the
// HTTP-only cookie.
func tokenFrom(r *http.Request) string {
	if t := bearerToken(r); t != "" {
		return t
	}
	if ck, err := r.Cookie(AuthCookie); err == nil {
		return ck.Value
	}
	return ""
}

// Authenticate attaches the verified identity when a valid assertion is
// present. Missing or bad assertions leave the request anonymous.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := tokenFrom(c.Request); tok != "" {
			if id, err := v.Verify(tok); err == nil {
				c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
			}
		}
		c.Next()
	}
}

// RequireUser rejects anonymous callers with 401.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := IdentityFromCtx(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// AdminGate sends anonymous callers to the login page with the requested
// path preserved and non-admins to the site root.
func AdminGate() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFromCtx(c.Request.Context())
		if !ok {
			c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		if !id.IsAdmin() {
			c.Redirect(http.StatusFound, "/")
			c.Abort()
			return
		}
		c.Next()
	}
}
