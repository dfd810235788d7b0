package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/corpus"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/handlers"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/middleware"
	"github.com/turtacn/ligandscreen/pkg/types/common"
	dto "github.com/turtacn/ligandscreen/pkg/types/screening"
)

func init() { gin.SetMode(gin.TestMode) }

type recordedRequest struct {
	method, path string
	status       int
}

type stubRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (s *stubRecorder) RecordHTTPRequest(method, path string, status int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, recordedRequest{method, path, status})
}

func (s *stubRecorder) TrackActiveRequest(string) func() { return func() {} }

func newScreenHandler(t *testing.T) *handlers.ScreenHandler {
	t.Helper()
	codec := molecule.DefaultCodec()
	rows := []corpus.RawRecord{
		{Identifier: "2ASP", Encoding: "CC(=O)Oc1ccccc1C(=O)O"},
		{Identifier: "4ETH", Encoding: "CCO"},
	}
	ix, err := corpus.Build(context.Background(), corpus.NewSliceSource("mem", rows), codec, corpus.BuildOptions{})
	require.NoError(t, err)
	resolver := annotation.NewResolver(annotation.NewCache(), nil, annotation.ResolverConfig{})
	engine, err := screening.NewEngine(ix, codec, resolver, screening.DefaultOptions())
	require.NoError(t, err)
	svc, err := screening.NewService(engine, 4)
	require.NoError(t, err)
	return handlers.NewScreenHandler(svc, resolver, handlers.ScreenHandlerConfig{MaxQueries: 5}, nil)
}

func serve(r http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestNewRouter_NilHandlers_NoPanic(t *testing.T) {
	r := NewRouter(RouterConfig{})
	w := serve(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "route not found", resp.Error.Message)
	assert.NotEmpty(t, resp.RequestID)
}

func TestNewRouter_ScreenRoundTrip(t *testing.T) {
	rec := &stubRecorder{}
	r := NewRouter(RouterConfig{
		ScreenHandler: newScreenHandler(t),
		HealthHandler: handlers.NewHealthHandler("test"),
		HTTPMetrics:   rec,
	})

	w := serve(r, http.MethodPost, "/api/v1/screen", `{"queries":[{"smiles":"CCO"}]}`,
		map[string]string{middleware.RequestIDHeader: "req-42"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-42", w.Header().Get(middleware.RequestIDHeader))

	var resp dto.ScreenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-42", resp.RequestID)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "4ETH", resp.Results[0].Matches[0].PDBID)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/readyz", "", nil).Code)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.requests, 3)
	assert.Equal(t, recordedRequest{http.MethodPost, "/api/v1/screen", http.StatusOK}, rec.requests[0])
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	r := NewRouter(RouterConfig{ScreenHandler: newScreenHandler(t)})
	w := serve(r, http.MethodDelete, "/api/v1/corpus", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestNewRouter_MetricsEndpoint(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	r := NewRouter(RouterConfig{MetricsHandler: metrics, MetricsPath: "/internal/metrics"})

	w := serve(r, http.MethodGet, "/internal/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "# metrics", w.Body.String())
}

func TestNewRouter_RateLimitAppliesToAPI(t *testing.T) {
	r := NewRouter(RouterConfig{
		ScreenHandler: newScreenHandler(t),
		HealthHandler: handlers.NewHealthHandler("test"),
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: 0.001,
			BurstSize:         1,
			SkipPaths:         []string{"/healthz"},
		},
	})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/v1/corpus", "", nil).Code)
	w := serve(r, http.MethodGet, "/api/v1/corpus", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/healthz", "", nil).Code)
	}
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	r := NewRouter(RouterConfig{
		ScreenHandler: newScreenHandler(t),
		CORS:          middleware.DefaultCORSConfig("https://lab.example.org"),
	})

	w := serve(r, http.MethodOptions, "/api/v1/screen", "", map[string]string{
		"Origin":                        "https://lab.example.org",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://lab.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_RecoversFromPanic(t *testing.T) {
	r := NewRouter(RouterConfig{})
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := serve(r, http.MethodGet, "/boom", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

//Personal.AI order the ending
