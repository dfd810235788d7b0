package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained per-client rate.  Zero disables
	// limiting.
	RequestsPerSecond float64
	// BurstSize is the bucket depth.
	BurstSize int
	// KeyFunc extracts the client key; defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// SkipPaths bypass limiting.
	SkipPaths []string
	// IdleTimeout drops a client's bucket after this long without requests.
	IdleTimeout time.Duration
}

// DefaultRateLimitConfig returns the default per-client limits.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 5,
		BurstSize:         10,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		IdleTimeout:       10 * time.Minute,
	}
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps one token bucket per client key.
type Limiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*clientBucket
}

// NewLimiter creates a Limiter for the given rate and burst.
func NewLimiter(rps float64, burst int, idle time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*clientBucket),
	}
}

// Reserve takes a token for key.  When none is available it returns false
// and the wait until the next token.
func (l *Limiter) Reserve(key string) (bool, time.Duration) {
	now := l.now()

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.evictLocked(now)
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return false, d
	}
	return true, 0
}

// Clients is the number of tracked client keys.
func (l *Limiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) evictLocked(now time.Time) {
	if l.idle <= 0 {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.idle {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects clients over their budget with 429 and a Retry-After
// header in whole seconds.
func RateLimit(config RateLimitConfig) gin.HandlerFunc {
	if config.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewLimiter(config.RequestsPerSecond, config.BurstSize, config.IdleTimeout)
	return rateLimitWith(limiter, config)
}

func rateLimitWith(limiter *Limiter, config RateLimitConfig) gin.HandlerFunc {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		ok, wait := limiter.Reserve(keyFunc(c))
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.burst))
		if ok {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(wait.Seconds())))))
		AbortWithError(c, http.StatusTooManyRequests, errors.ErrCodeTooManyRequests, "rate limit exceeded, please retry later")
	}
}

//Personal.AI order the ending
