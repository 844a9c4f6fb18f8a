package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/routeworks/llm-router/config"
	"github.com/routeworks/llm-router/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fixedMode struct {
	mode models.ServingMode
}

func (f *fixedMode) CurrentMode() models.ServingMode { return f.mode }

func newLimitedHandler(mode models.ServingMode, cfg config.RateLimitConfig) http.Handler {
	rl := NewRateLimiter(&fixedMode{mode: mode}, cfg, zap.NewNop())
	return rl.Limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func do(handler http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/complete", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_AllowsWithinBudget(t *testing.T) {
	handler := newLimitedHandler(models.ModeDegraded, config.RateLimitConfig{
		DegradedWindow: time.Minute, DegradedMax: 5,
		FullWindow: time.Hour, FullMax: 20,
	})

	for i := 0; i < 5; i++ {
		rec := do(handler, "10.0.0.1:1234")
		assert.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}
}

func TestRateLimiter_RejectsOverBudget(t *testing.T) {
	handler := newLimitedHandler(models.ModeDegraded, config.RateLimitConfig{
		DegradedWindow: time.Hour, DegradedMax: 2,
		FullWindow: time.Hour, FullMax: 20,
	})

	do(handler, "10.0.0.1:1234")
	do(handler, "10.0.0.1:1234")
	rec := do(handler, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	handler := newLimitedHandler(models.ModeDegraded, config.RateLimitConfig{
		DegradedWindow: time.Hour, DegradedMax: 1,
		FullWindow: time.Hour, FullMax: 20,
	})

	assert.Equal(t, http.StatusOK, do(handler, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(handler, "10.0.0.1:2").Code)

	// A different client has its own bucket.
	assert.Equal(t, http.StatusOK, do(handler, "10.0.0.2:1").Code)
}

func TestRateLimiter_FullModeUsesTighterBudget(t *testing.T) {
	handler := newLimitedHandler(models.ModeFull, config.RateLimitConfig{
		DegradedWindow: time.Hour, DegradedMax: 100,
		FullWindow: time.Hour, FullMax: 1,
	})

	assert.Equal(t, http.StatusOK, do(handler, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(handler, "10.0.0.1:1").Code)
}
