package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lillith/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type memCounter struct {
	counts map[string]int64
	err    error
}

func (m *memCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	m.counts[key]++
	cmd.SetVal(m.counts[key])
	return cmd
}

func (m *memCounter) Expire(ctx context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	cmd.SetVal(true)
	return cmd
}

func newRouter(counter Counter, limit int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(RateLimitMiddleware(counter, &config.Config{RateLimitReqs: limit, RateLimitWindow: 60}))
	r.GET("/api/search", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	r := newRouter(&memCounter{counts: map[string]int64{}}, 2)

	assert.Equal(t, http.StatusOK, get(r, "/api/search", nil).Code)
	w := get(r, "/api/search", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "/api/search", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

func TestRateLimit_SkipsHealth(t *testing.T) {
	counter := &memCounter{counts: map[string]int64{}}
	r := newRouter(counter, 1)

	for range 3 {
		assert.Equal(t, http.StatusOK, get(r, "/health", nil).Code)
	}
	assert.Empty(t, counter.counts)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	r := newRouter(&memCounter{err: errors.New("connection refused")}, 1)

	for range 3 {
		assert.Equal(t, http.StatusOK, get(r, "/api/search", nil).Code)
	}
}

func TestRequestID(t *testing.T) {
	r := newRouter(&memCounter{counts: map[string]int64{}}, 10)

	w := get(r, "/api/search", http.Header{RequestIDHeader: []string{"req-42"}})
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-42", w.Body.String())

	w = get(r, "/api/search", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
}

func TestRequestSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestSizeLimit(16))
	r.POST("/api/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"q":"x"}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
