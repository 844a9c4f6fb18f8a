package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/routeworks/llm-router/config"
	"github.com/routeworks/llm-router/models"
	"github.com/routeworks/llm-router/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the limiter map; stale entries are swept once the
// map grows past it.
const maxTrackedClients = 10000

// ModeSource reports the current serving mode. Implemented by the admission
// service.
type ModeSource interface {
	CurrentMode() models.ServingMode
}

type limitSpec struct {
	window time.Duration
	max    int
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies per-client token buckets sized by the current serving
// mode. Full mode is limited far tighter than degraded mode because full-mode
// requests spend real money.
type RateLimiter struct {
	modes    ModeSource
	degraded limitSpec
	full     limitSpec
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// NewRateLimiter creates a rate limiter from the per-mode window/threshold
// configuration.
func NewRateLimiter(modes ModeSource, cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	return &RateLimiter{
		modes:    modes,
		degraded: limitSpec{window: cfg.DegradedWindow, max: cfg.DegradedMax},
		full:     limitSpec{window: cfg.FullWindow, max: cfg.FullMax},
		logger:   logger,
		clients:  make(map[string]*clientLimiter),
	}
}

// Limit is the middleware. Each client IP gets one token bucket per mode so a
// mode flip mid-day starts clients on the stricter budget immediately.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mode := rl.modes.CurrentMode()
		spec := rl.degraded
		if mode == models.ModeFull {
			spec = rl.full
		}

		key := string(mode) + "|" + clientIP(r)
		if !rl.limiterFor(key, spec).Allow() {
			rl.logger.Warn("rate limit exceeded",
				zap.String("client", clientIP(r)),
				zap.String("mode", string(mode)))
			_ = utils.WriteTooManyRequests(w, "", map[string]interface{}{
				"mode":           string(mode),
				"window_seconds": int(spec.window.Seconds()),
				"max_requests":   spec.max,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) limiterFor(key string, spec limitSpec) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cl, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			rl.sweepLocked()
		}
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Every(spec.window/time.Duration(spec.max)), spec.max),
		}
		rl.clients[key] = cl
	}
	cl.lastSeen = time.Now()
	return cl.limiter
}

// sweepLocked drops clients idle for more than ten minutes. Caller holds mu.
func (rl *RateLimiter) sweepLocked() {
	cutoff := time.Now().Add(-10 * time.Minute)
	for key, cl := range rl.clients {
		if cl.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
