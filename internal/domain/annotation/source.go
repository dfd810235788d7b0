package annotation

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// BatchLookup is the primary source.  It returns the organism names found for
// each identifier present in the response; identifiers absent from the map
// are known to the call but carry no organism.  Any error means the whole
// batch failed and the secondary path takes over.
type BatchLookup interface {
	LookupBatch(ctx context.Context, ids []string) (map[string][]string, error)
}

// EntryLookup is the secondary source, queried one identifier at a time.
type EntryLookup interface {
	LookupEntry(ctx context.Context, id string) ([]string, error)
}

// Store is an optional shared tier consulted before any network lookup.
// Implementations must tolerate concurrent use.  Errors are logged by the
// resolver and otherwise ignored.
type Store interface {
	GetMany(ctx context.Context, ids []string) (map[string]Annotation, error)
	PutMany(ctx context.Context, anns map[string]Annotation) error
}

// Observer receives resolver events, typically for metrics.
type Observer interface {
	PrimaryCall(ok bool, elapsed time.Duration)
	SecondaryCall(ok bool, elapsed time.Duration)
	CacheHits(n int)
	StoreHits(n int)
}

type nopObserver struct{}

func (nopObserver) PrimaryCall(bool, time.Duration)   {}
func (nopObserver) SecondaryCall(bool, time.Duration) {}
func (nopObserver) CacheHits(int)                     {}
func (nopObserver) StoreHits(int)                     {}

// RatePolicy enforces a minimum interval between consecutive calls to one
// source.  It is shared by every goroutine issuing those calls.
type RatePolicy struct {
	limiter *rate.Limiter
}

// NewRatePolicy returns a policy with the given minimum interval.  A zero
// interval disables waiting.
func NewRatePolicy(interval time.Duration) *RatePolicy {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RatePolicy{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next call is allowed.  The wait is not cancellable.
func (p *RatePolicy) Wait(ctx context.Context) {
	_ = p.limiter.Wait(context.WithoutCancel(ctx))
}

//Personal.AI order the ending
