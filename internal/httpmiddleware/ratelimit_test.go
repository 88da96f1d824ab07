package httpmiddleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolportal/internal/metrics"
)

func TestTokenBucket(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow(ctx, "1.2.3.4")
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok)
	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "one token refilled after a second at 60/min")
}

func TestTokenBucketForgetsIdleKeys(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(2, 60)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		ok, _ := l.Allow(ctx, ip)
		require.True(t, ok)
	}
	now = now.Add(45 * time.Second)
	_, _ = l.Allow(ctx, "10.0.0.3")
	require.Len(t, l.state, 3)

	now = now.Add(20 * time.Second)
	_, _ = l.Allow(ctx, "10.0.0.4")
	assert.Len(t, l.state, 2, "idle full buckets are dropped")
	assert.Contains(t, l.state, "10.0.0.3")
	assert.Contains(t, l.state, "10.0.0.4")
}

func TestTokenBucketKeepsDrainedKeys(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	l := NewTokenBucket(5, 1)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow(ctx, "10.0.0.1")
		require.True(t, ok)
	}
	now = now.Add(61 * time.Second)
	_, _ = l.Allow(ctx, "10.0.0.2")
	assert.Contains(t, l.state, "10.0.0.1", "a bucket that is not yet full is kept")

	ok, _ := l.Allow(ctx, "10.0.0.1")
	assert.True(t, ok, "one token refilled")
	ok, _ = l.Allow(ctx, "10.0.0.1")
	assert.False(t, ok)
}

type stubLimiter struct {
	ok  bool
	err error
}

func (s stubLimiter) Allow(context.Context, string) (bool, error) { return s.ok, s.err }

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	serve := func(l Limiter) *httptest.ResponseRecorder {
		r := gin.New()
		r.Use(SecurityHeaders(), RateLimit(l))
		r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, serve(stubLimiter{ok: true}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(stubLimiter{ok: false}).Code)
	w := serve(stubLimiter{err: errors.New("redis down")})
	assert.Equal(t, http.StatusOK, w.Code, "limiter failures fail open")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestRedisWindowKey(t *testing.T) {
	l := NewRedisWindow(nil, 10)
	l.now = func() time.Time { return time.Unix(120, 0) }
	assert.Equal(t, "portal:ratelimit:1.2.3.4:2", l.key("1.2.3.4"))
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/api/things/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/things/7", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.RequestDuration), 1)
}
