package annotation

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Defaults for ResolverConfig.
const (
	DefaultBatchSize         = 100
	DefaultPrimaryTimeout    = 30 * time.Second
	DefaultSecondaryTimeout  = 10 * time.Second
	DefaultPrimaryInterval   = 100 * time.Millisecond
	DefaultSecondaryInterval = 50 * time.Millisecond
)

// ResolverConfig tunes batching, timeouts and pacing.
type ResolverConfig struct {
	BatchSize         int
	PrimaryTimeout    time.Duration
	SecondaryTimeout  time.Duration
	PrimaryInterval   time.Duration
	SecondaryInterval time.Duration
}

// DefaultResolverConfig returns the production settings.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		BatchSize:         DefaultBatchSize,
		PrimaryTimeout:    DefaultPrimaryTimeout,
		SecondaryTimeout:  DefaultSecondaryTimeout,
		PrimaryInterval:   DefaultPrimaryInterval,
		SecondaryInterval: DefaultSecondaryInterval,
	}
}

// ResolverStats is a snapshot of resolver counters.
type ResolverStats struct {
	Requested         int64 `json:"requested"`
	CacheHits         int64 `json:"cache_hits"`
	StoreHits         int64 `json:"store_hits"`
	PrimaryCalls      int64 `json:"primary_calls"`
	PrimaryFailures   int64 `json:"primary_failures"`
	SecondaryCalls    int64 `json:"secondary_calls"`
	SecondaryFailures int64 `json:"secondary_failures"`
	Resolved          int64 `json:"resolved"`
	Unavailable       int64 `json:"unavailable"`
}

type resolverCounters struct {
	requested, cacheHits, storeHits   atomic.Int64
	primaryCalls, primaryFailures     atomic.Int64
	secondaryCalls, secondaryFailures atomic.Int64
	resolved, unavailable             atomic.Int64
}

// ResolverOption customises a Resolver.
type ResolverOption func(*Resolver)

// WithPrimary sets the batched source.
func WithPrimary(p BatchLookup) ResolverOption { return func(r *Resolver) { r.primary = p } }

// WithSecondary sets the per-identifier fallback source.
func WithSecondary(s EntryLookup) ResolverOption { return func(r *Resolver) { r.secondary = s } }

// WithStore sets the shared store tier.
func WithStore(s Store) ResolverOption { return func(r *Resolver) { r.store = s } }

// WithObserver sets the event observer.
func WithObserver(o Observer) ResolverOption {
	return func(r *Resolver) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// Resolver maps identifiers to annotations.  It is safe for concurrent use;
// all state shared across queries lives in the injected Cache.
type Resolver struct {
	cfg        ResolverConfig
	cache      *Cache
	classifier *Classifier
	primary    BatchLookup
	secondary  EntryLookup
	store      Store
	observer   Observer
	logger     logging.Logger

	primaryRate   *RatePolicy
	secondaryRate *RatePolicy
	counters      resolverCounters
}

// NewResolver wires a resolver around cache.  Without sources every
// identifier resolves to Unknown with OriginOffline.
func NewResolver(cache *Cache, classifier *Classifier, cfg ResolverConfig, opts ...ResolverOption) *Resolver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PrimaryTimeout <= 0 {
		cfg.PrimaryTimeout = DefaultPrimaryTimeout
	}
	if cfg.SecondaryTimeout <= 0 {
		cfg.SecondaryTimeout = DefaultSecondaryTimeout
	}
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	r := &Resolver{
		cfg:           cfg,
		cache:         cache,
		classifier:    classifier,
		observer:      nopObserver{},
		logger:        logging.NewNopLogger(),
		primaryRate:   NewRatePolicy(cfg.PrimaryInterval),
		secondaryRate: NewRatePolicy(cfg.SecondaryInterval),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// BatchSize is the number of identifiers per primary call.
func (r *Resolver) BatchSize() int { return r.cfg.BatchSize }

// Cache returns the backing cache.
func (r *Resolver) Cache() *Cache { return r.cache }

// Stats returns a snapshot of the counters.
func (r *Resolver) Stats() ResolverStats {
	c := &r.counters
	return ResolverStats{
		Requested:         c.requested.Load(),
		CacheHits:         c.cacheHits.Load(),
		StoreHits:         c.storeHits.Load(),
		PrimaryCalls:      c.primaryCalls.Load(),
		PrimaryFailures:   c.primaryFailures.Load(),
		SecondaryCalls:    c.secondaryCalls.Load(),
		SecondaryFailures: c.secondaryFailures.Load(),
		Resolved:          c.resolved.Load(),
		Unavailable:       c.unavailable.Load(),
	}
}

// Resolve returns an annotation for every id in ids.  Cached ids cost nothing,
// ids being resolved by a concurrent caller are awaited, and the rest are
// looked up here.  Resolve never fails; unresolvable ids map to Unknown.
func (r *Resolver) Resolve(ctx context.Context, ids []string) map[string]Annotation {
	uniq := make([]string, 0, len(ids))
	out := make(map[string]Annotation, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if id == "" {
			out[id] = Unknown(OriginDefault)
			continue
		}
		uniq = append(uniq, id)
	}
	r.counters.requested.Add(int64(len(uniq)))

	claim := r.cache.Claim(uniq)
	for id, ann := range claim.Cached {
		out[id] = ann
	}
	if n := len(claim.Cached); n > 0 {
		r.counters.cacheHits.Add(int64(n))
		r.observer.CacheHits(n)
	}

	if len(claim.Owned) > 0 {
		for id, ann := range r.resolveOwned(ctx, claim.Owned) {
			out[id] = ann
		}
	}
	if claim.Waiting() > 0 {
		for id, ann := range claim.Wait(ctx) {
			out[id] = ann
		}
	}

	for _, id := range uniq {
		if _, ok := out[id]; !ok {
			out[id] = Unknown(OriginDefault)
		}
	}
	return out
}

// resolveOwned looks up ids this caller claimed and completes every one of
// them in the cache, even if a lookup panics.  External calls run detached
// from ctx cancellation and are bounded by their own timeouts.
func (r *Resolver) resolveOwned(ctx context.Context, owned []string) map[string]Annotation {
	out := make(map[string]Annotation, len(owned))
	defer func() {
		for _, id := range owned {
			if _, ok := out[id]; !ok {
				r.cache.Complete(id, Unknown(OriginDefault))
			}
		}
	}()

	detached := context.WithoutCancel(ctx)
	complete := func(id string, ann Annotation) {
		out[id] = ann
		r.cache.Complete(id, ann)
		r.counters.resolved.Add(1)
	}

	pending := owned
	if r.store != nil {
		found, err := r.store.GetMany(detached, pending)
		if err != nil {
			r.logger.Warn("annotation store read failed", logging.Int("ids", len(pending)), logging.Err(err))
		}
		if len(found) > 0 {
			rest := make([]string, 0, len(pending))
			for _, id := range pending {
				if ann, ok := found[id]; ok {
					complete(id, r.classifier.Annotate(ann.Organisms, OriginStore))
				} else {
					rest = append(rest, id)
				}
			}
			r.counters.storeHits.Add(int64(len(pending) - len(rest)))
			r.observer.StoreHits(len(pending) - len(rest))
			pending = rest
		}
	}

	fresh := make(map[string]Annotation, len(pending))
	for start := 0; start < len(pending); start += r.cfg.BatchSize {
		end := start + r.cfg.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		for id, ann := range r.resolveBatch(detached, pending[start:end]) {
			complete(id, ann)
			// Failed secondary lookups are not worth sharing across runs.
			if ann.Origin == OriginPrimary || (ann.Origin == OriginSecondary && !ann.IsUnknown()) {
				fresh[id] = ann
			}
		}
	}

	if r.store != nil && len(fresh) > 0 {
		if err := r.store.PutMany(detached, fresh); err != nil {
			r.logger.Warn("annotation store write failed", logging.Int("ids", len(fresh)), logging.Err(err))
		}
	}
	return out
}

// resolveBatch runs the two-stage pipeline for one batch: a primary call
// that either answers for the whole batch or fails, then, on failure, one
// secondary call per identifier.
func (r *Resolver) resolveBatch(ctx context.Context, batch []string) map[string]Annotation {
	out := make(map[string]Annotation, len(batch))
	if r.primary == nil && r.secondary == nil {
		for _, id := range batch {
			out[id] = Unknown(OriginOffline)
		}
		return out
	}

	names, err := r.lookupPrimary(ctx, batch)
	if err == nil {
		for _, id := range batch {
			out[id] = r.classifier.Annotate(names[id], OriginPrimary)
		}
		return out
	}

	r.logger.Warn("primary annotation batch failed, falling back to per-identifier lookups",
		logging.Int("batch_size", len(batch)),
		logging.String("first_id", batch[0]),
		logging.Err(err))
	for _, id := range batch {
		out[id] = r.lookupSecondary(ctx, id)
	}
	return out
}

func (r *Resolver) lookupPrimary(ctx context.Context, batch []string) (names map[string][]string, err error) {
	if r.primary == nil {
		return nil, errors.New(errors.ErrCodeTransport, "primary annotation source not configured")
	}
	r.primaryRate.Wait(ctx)
	r.counters.primaryCalls.Add(1)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.PrimaryTimeout)
	defer cancel()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = errors.Newf(errors.ErrCodeTransport, "primary lookup panicked: %v", p)
		}
		if err != nil {
			r.counters.primaryFailures.Add(1)
		}
		r.observer.PrimaryCall(err == nil, time.Since(start))
	}()
	return r.primary.LookupBatch(callCtx, batch)
}

func (r *Resolver) lookupSecondary(ctx context.Context, id string) (ann Annotation) {
	if r.secondary == nil {
		r.counters.unavailable.Add(1)
		return Unknown(OriginDefault)
	}
	r.secondaryRate.Wait(ctx)
	r.counters.secondaryCalls.Add(1)

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.SecondaryTimeout)
	defer cancel()
	start := time.Now()

	var (
		names []string
		err   error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = errors.Newf(errors.ErrCodeTransport, "secondary lookup panicked: %v", p)
			}
		}()
		names, err = r.secondary.LookupEntry(callCtx, id)
	}()
	r.observer.SecondaryCall(err == nil, time.Since(start))

	if err != nil {
		r.counters.secondaryFailures.Add(1)
		r.counters.unavailable.Add(1)
		r.logger.Debug("annotation unavailable",
			logging.String("id", id),
			logging.Err(errors.Wrap(err, errors.ErrCodeAnnotationUnavailable, "secondary lookup failed")))
		return Unknown(OriginSecondary)
	}
	return r.classifier.Annotate(names, OriginSecondary)
}

//Personal.AI order the ending
