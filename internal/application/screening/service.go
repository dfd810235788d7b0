package screening

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// CacheRecorder observes result-cache lookups.
type CacheRecorder interface {
	RecordResultCache(hit bool)
}

type nopCacheRecorder struct{}

func (nopCacheRecorder) RecordResultCache(bool) {}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithCacheRecorder reports cache hits and misses.
func WithCacheRecorder(r CacheRecorder) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithServiceLogger sets the service logger.
func WithServiceLogger(l logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBatchWorkers bounds the number of queries of one batch screened at once.
func WithBatchWorkers(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// Service answers ad-hoc queries for the API.  Results are cached by
// structural encoding and concurrent requests for the same encoding share a
// single engine call.
type Service struct {
	engine   *Engine
	cache    *lru.Cache[string, *Result]
	group    singleflight.Group
	workers  int
	recorder CacheRecorder
	logger   logging.Logger
}

// NewService wraps engine with a result cache of cacheSize entries.
func NewService(engine *Engine, cacheSize int, opts ...ServiceOption) (*Service, error) {
	if engine == nil {
		return nil, errors.InvalidParam("engine is required")
	}
	if cacheSize <= 0 {
		return nil, errors.InvalidParam("result cache size must be positive")
	}
	cache, err := lru.New[string, *Result](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "create result cache")
	}
	s := &Service{
		engine:   engine,
		cache:    cache,
		workers:  1,
		recorder: nopCacheRecorder{},
		logger:   logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Engine exposes the wrapped engine.
func (s *Service) Engine() *Engine { return s.engine }

// CachedResults is the number of cached encodings.
func (s *Service) CachedResults() int { return s.cache.Len() }

// Screen answers one query.  The returned Result is a copy carrying in as its
// query; its Matches slice is shared with the cache and must not be modified.
func (s *Service) Screen(ctx context.Context, in molecule.QueryInput) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := in.Encoding
	if cached, ok := s.cache.Get(key); ok {
		s.recorder.RecordResultCache(true)
		s.engine.stats.recordCached(cached)
		return withQuery(cached, in), nil
	}
	s.recorder.RecordResultCache(false)

	// Only the caller whose func runs sets led; the others share its result.
	led := false
	ch := s.group.DoChan(key, func() (interface{}, error) {
		led = true
		// A caller going away must not fail the others sharing this call.
		res, err := s.engine.Screen(context.WithoutCancel(ctx), in)
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, res)
		return res, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := r.Val.(*Result)
		if !led {
			s.engine.stats.recordCached(res)
			s.logger.Debug("screening shared with concurrent request", logging.String("smiles", key))
		}
		return withQuery(res, in), nil
	}
}

// ScreenBatch screens inputs and returns results in input order with Index
// set to the input position.
func (s *Service) ScreenBatch(ctx context.Context, inputs []molecule.QueryInput) ([]*Result, error) {
	out := make([]*Result, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			res, err := s.Screen(gctx, in)
			if err != nil {
				return err
			}
			res.Index = i
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func withQuery(r *Result, in molecule.QueryInput) *Result {
	cp := *r
	cp.Query = in
	return &cp
}

//Personal.AI order the ending
