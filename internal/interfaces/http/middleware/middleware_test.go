package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/bad", func(c *gin.Context) { c.Status(http.StatusBadRequest) })
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func do(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func observed() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return logging.NewLoggerFromCore(core), logs
}

// ─────────────────────────────────────────────────────────────────────────────
// request id + logging
// ─────────────────────────────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID())

	w := do(r, http.MethodGet, "/ok", nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: "abc"})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestRequestLogging_Levels(t *testing.T) {
	logger, logs := observed()
	r := newEngine(RequestID(), RequestLogging(logger, DefaultLoggingConfig()))

	do(r, http.MethodGet, "/ok", map[string]string{RequestIDHeader: "r-1"})
	do(r, http.MethodGet, "/bad", nil)
	do(r, http.MethodGet, "/healthz", nil)

	entries := logs.All()
	require.Len(t, entries, 2, "health paths are skipped")
	assert.Equal(t, "HTTP request completed", entries[0].Message)
	assert.Equal(t, "r-1", entries[0].ContextMap()["request_id"])
	assert.EqualValues(t, 200, entries[0].ContextMap()["status"])
	assert.Equal(t, "HTTP request completed with client error", entries[1].Message)
}

func TestRecovery(t *testing.T) {
	logger, logs := observed()
	r := newEngine(RequestID(), Recovery(logger))

	w := do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

// ─────────────────────────────────────────────────────────────────────────────
// metrics
// ─────────────────────────────────────────────────────────────────────────────

type fakeHTTPRecorder struct {
	mu     sync.Mutex
	paths  []string
	codes  []int
	active int
}

func (f *fakeHTTPRecorder) RecordHTTPRequest(_, path string, statusCode int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, path)
	f.codes = append(f.codes, statusCode)
}

func (f *fakeHTTPRecorder) TrackActiveRequest(string) func() {
	f.mu.Lock()
	f.active++
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}
}

func TestMetrics_UsesRouteTemplate(t *testing.T) {
	rec := &fakeHTTPRecorder{}
	r := newEngine(Metrics(rec))

	do(r, http.MethodGet, "/items/42", nil)
	do(r, http.MethodGet, "/nowhere", nil)

	assert.Equal(t, []string{"/items/:id", "unmatched"}, rec.paths)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNotFound}, rec.codes)
	assert.Zero(t, rec.active)
}

// ─────────────────────────────────────────────────────────────────────────────
// rate limiting
// ─────────────────────────────────────────────────────────────────────────────

func TestRateLimit_RejectsOverBudget(t *testing.T) {
	cfg := DefaultRateLimitConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.BurstSize = 2
	r := newEngine(RateLimit(cfg))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", nil).Code)

	w := do(r, http.MethodGet, "/ok", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "COMMON_007")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", nil).Code, "health checks bypass the limiter")
}

func TestRateLimit_DisabledWhenRateIsZero(t *testing.T) {
	r := newEngine(RateLimit(RateLimitConfig{}))
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ok", nil).Code)
	}
}

func TestLimiter_EvictsIdleClients(t *testing.T) {
	l := NewLimiter(1, 1, time.Minute)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	ok, _ := l.Reserve("a")
	assert.True(t, ok)
	ok, wait := l.Reserve("a")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	now = now.Add(2 * time.Minute)
	l.Reserve("b")
	assert.Equal(t, 1, l.Clients())
}

// ─────────────────────────────────────────────────────────────────────────────
// cors
// ─────────────────────────────────────────────────────────────────────────────

func TestCORS(t *testing.T) {
	r := newEngine(CORS(DefaultCORSConfig("https://app.example.org", "*.lab.test")))
	r.OPTIONS("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://app.example.org"})
	assert.Equal(t, "https://app.example.org", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), RequestIDHeader)

	w = do(r, http.MethodOptions, "/ok", map[string]string{"Origin": "https://x.lab.test"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)

	w = do(r, http.MethodGet, "/ok", map[string]string{"Origin": "https://evil.test"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

//Personal.AI order the ending
