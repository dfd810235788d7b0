package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/handlers"
	"github.com/turtacn/ligandscreen/internal/interfaces/http/middleware"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// RouterConfig aggregates the handlers and middleware settings of the route
// tree.  Nil handlers leave their routes unregistered.
type RouterConfig struct {
	// Handlers
	ScreenHandler *handlers.ScreenHandler
	HealthHandler *handlers.HealthHandler

	// Middleware
	Logging   middleware.LoggingConfig
	RateLimit middleware.RateLimitConfig
	CORS      middleware.CORSConfig

	// Infrastructure
	Logger logging.Logger
	// HTTPMetrics records per-request metrics when set.
	HTTPMetrics middleware.HTTPRecorder
	// MetricsHandler is mounted at MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// NewRouter constructs the gin engine.  Middleware order is request id,
// recovery, CORS, logging, metrics, then rate limiting, so that rejected
// requests are still logged and counted.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// --- Global middleware (applied to every request) ---
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(middleware.CORS(cfg.CORS))
	}
	r.Use(middleware.RequestLogging(logger, cfg.Logging))
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}
	r.Use(middleware.RateLimit(cfg.RateLimit))

	r.NoRoute(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusNotFound, errors.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		middleware.AbortWithError(c, http.StatusMethodNotAllowed, errors.ErrCodeBadRequest, "method not allowed")
	})

	// --- Probes ---
	if cfg.HealthHandler != nil {
		cfg.HealthHandler.RegisterRoutes(r)
	}

	// --- Metrics endpoint ---
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	// --- API v1 ---
	api := r.Group("/api/v1")
	if cfg.ScreenHandler != nil {
		cfg.ScreenHandler.RegisterRoutes(api)
	}

	return r
}

//Personal.AI order the ending
