package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ligandscreen/pkg/types/common"
)

// HealthChecker is a dependency that can report its health.
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) error
}

// Name implements HealthChecker.
func (c CheckerFunc) Name() string { return c.ComponentName }

// Check implements HealthChecker.
func (c CheckerFunc) Check(ctx context.Context) error { return c.Fn(ctx) }

// HealthHandler serves the liveness and readiness checks.
type HealthHandler struct {
	checkers []HealthChecker
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(version string, checkers ...HealthChecker) *HealthHandler {
	return &HealthHandler{
		checkers: checkers,
		version:  version,
		startAt:  time.Now(),
		timeout:  5 * time.Second,
	}
}

// RegisterRoutes registers the health routes.
func (h *HealthHandler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/healthz/detail", h.Detailed)
}

// Liveness handles GET /healthz.  It never checks dependencies.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, common.HealthResponse{
		Status:    common.HealthUp,
		Version:   h.version,
		Uptime:    h.uptime(),
		Timestamp: common.NewTimestamp(),
	})
}

// Readiness handles GET /readyz: 200 when every checker passes, 503
// otherwise.
func (h *HealthHandler) Readiness(c *gin.Context) {
	components, healthy := h.checkAll(c.Request.Context())
	resp := common.HealthResponse{Status: common.HealthUp, Components: components, Timestamp: common.NewTimestamp()}
	status := http.StatusOK
	if !healthy {
		resp.Status = common.HealthDown
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Detailed handles GET /healthz/detail.  It reports the same checks as
// Readiness plus build and uptime information.
func (h *HealthHandler) Detailed(c *gin.Context) {
	components, healthy := h.checkAll(c.Request.Context())
	resp := common.HealthResponse{
		Status:     common.HealthUp,
		Version:    h.version,
		Uptime:     h.uptime(),
		Components: components,
		Timestamp:  common.NewTimestamp(),
	}
	status := http.StatusOK
	if !healthy {
		resp.Status = common.HealthDown
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startAt).Truncate(time.Second).String()
}

// checkAll runs every checker concurrently.
func (h *HealthHandler) checkAll(parent context.Context) (map[string]common.ComponentHealth, bool) {
	if len(h.checkers) == 0 {
		return nil, true
	}
	ctx, cancel := context.WithTimeout(parent, h.timeout)
	defer cancel()

	results := make(map[string]common.ComponentHealth, len(h.checkers))
	healthy := true
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, checker := range h.checkers {
		wg.Add(1)
		go func(hc HealthChecker) {
			defer wg.Done()
			start := time.Now()
			err := hc.Check(ctx)
			ch := common.ComponentHealth{
				Status:  common.HealthUp,
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				ch.Status = common.HealthDown
				ch.Message = err.Error()
			}

			mu.Lock()
			results[hc.Name()] = ch
			if err != nil {
				healthy = false
			}
			mu.Unlock()
		}(checker)
	}
	wg.Wait()
	return results, healthy
}

//Personal.AI order the ending
