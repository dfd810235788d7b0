package screening

import (
	"context"
	stderrors "errors"
	"io"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

const defaultRunnerProgressEvery = 10

// QuerySource yields query rows.  Next returns io.EOF after the last row.
type QuerySource interface {
	Next(ctx context.Context) (molecule.QueryInput, error)
	Name() string
}

// ResolverStatsProvider is implemented by resolvers that keep counters.
type ResolverStatsProvider interface {
	Stats() annotation.ResolverStats
}

// RunnerConfig tunes a batch run.
type RunnerConfig struct {
	// Workers screens this many queries at once; 1 is strictly sequential.
	Workers int
	// MaxQueries stops reading after this many rows; 0 means no limit.
	MaxQueries int
	// ProgressEvery logs after this many completed queries.
	ProgressEvery int
	// OnProgress, when set, is called after every completed query.  Calls
	// come from a single goroutine.
	OnProgress func(done, total int)
}

// Run is the outcome of a batch run.
type Run struct {
	Summary Summary
	// Results are in input order.
	Results []*Result
}

// Runner screens a whole query table.
type Runner struct {
	engine   *Engine
	resolver ResolverStatsProvider
	cfg      RunnerConfig
	logger   logging.Logger
	now      func() time.Time
}

// NewRunner builds a Runner.  resolver may be nil when annotation counters
// are not wanted in the summary.
func NewRunner(engine *Engine, resolver ResolverStatsProvider, cfg RunnerConfig, logger logging.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = defaultRunnerProgressEvery
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Runner{engine: engine, resolver: resolver, cfg: cfg, logger: logger, now: time.Now}
}

// Run reads every query from src and screens it.  A query source that fails
// is a QueryLoadFailure; per-query problems only show up in the results.
func (r *Runner) Run(ctx context.Context, src QuerySource) (*Run, error) {
	runID := uuid.NewString()
	log := r.logger.With(logging.String("run_id", runID))
	started := r.now()
	before := r.engine.Stats().Snapshot()
	var annBefore annotation.ResolverStats
	if r.resolver != nil {
		annBefore = r.resolver.Stats()
	}

	var queries []molecule.QueryInput
	for r.cfg.MaxQueries <= 0 || len(queries) < r.cfg.MaxQueries {
		q, err := src.Next(ctx)
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeQueryLoadFailure, "read queries").WithDetail(src.Name())
		}
		queries = append(queries, q)
	}
	log.Info("screening started",
		logging.Int("queries", len(queries)),
		logging.Int("corpus_valid", r.engine.Index().Len()),
		logging.Int("workers", r.cfg.Workers))

	results := make([]*Result, len(queries))
	completed := make(chan struct{}, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		n := 0
		for range completed {
			n++
			if r.cfg.OnProgress != nil {
				r.cfg.OnProgress(n, len(queries))
			}
			if n%r.cfg.ProgressEvery == 0 || n == len(queries) {
				log.Info("screening progress", logging.Int("done", n), logging.Int("total", len(queries)))
			}
		}
	}()

	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			res, err := r.engine.Screen(gctx, q)
			if err != nil {
				return err
			}
			res.Index = i
			results[i] = res
			completed <- struct{}{}
			return nil
		})
	}
	err := g.Wait()
	close(completed)
	<-progressDone
	if err != nil {
		return nil, err
	}

	finished := r.now()
	after := r.engine.Stats().Snapshot()
	summary := Summary{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Corpus:     r.engine.Index().Stats(),
		Engine:     diffSnapshot(after, before),
	}
	if r.resolver != nil {
		summary.Annotation = diffResolverStats(r.resolver.Stats(), annBefore)
	}
	summary.Errors = summary.Engine.QueriesInvalid + summary.Annotation.PrimaryFailures + summary.Annotation.SecondaryFailures

	log.Info("screening finished",
		logging.Int64("queries_matched", summary.Engine.QueriesMatched),
		logging.Int64("comparisons", summary.Engine.Comparisons),
		logging.Int64("escalations", summary.Engine.Escalations),
		logging.Int64("fallbacks", summary.Engine.Fallbacks),
		logging.Int64("errors", summary.Errors),
		logging.Duration("elapsed", summary.Duration))
	return &Run{Summary: summary, Results: results}, nil
}

func diffSnapshot(a, b StatsSnapshot) StatsSnapshot {
	return StatsSnapshot{
		QueriesSeen:    a.QueriesSeen - b.QueriesSeen,
		QueriesValid:   a.QueriesValid - b.QueriesValid,
		QueriesInvalid: a.QueriesInvalid - b.QueriesInvalid,
		QueriesMatched: a.QueriesMatched - b.QueriesMatched,
		Comparisons:    a.Comparisons - b.Comparisons,
		Escalations:    a.Escalations - b.Escalations,
		Fallbacks:      a.Fallbacks - b.Fallbacks,
		EmptyCorpus:    a.EmptyCorpus - b.EmptyCorpus,
		CachedQueries:  a.CachedQueries - b.CachedQueries,
	}
}

func diffResolverStats(a, b annotation.ResolverStats) annotation.ResolverStats {
	return annotation.ResolverStats{
		Requested:         a.Requested - b.Requested,
		CacheHits:         a.CacheHits - b.CacheHits,
		StoreHits:         a.StoreHits - b.StoreHits,
		PrimaryCalls:      a.PrimaryCalls - b.PrimaryCalls,
		PrimaryFailures:   a.PrimaryFailures - b.PrimaryFailures,
		SecondaryCalls:    a.SecondaryCalls - b.SecondaryCalls,
		SecondaryFailures: a.SecondaryFailures - b.SecondaryFailures,
		Resolved:          a.Resolved - b.Resolved,
		Unavailable:       a.Unavailable - b.Unavailable,
	}
}

// SliceQuerySource serves queries from memory.
type SliceQuerySource struct {
	name string
	rows []molecule.QueryInput
	next int
}

// NewSliceQuerySource returns a QuerySource over rows.
func NewSliceQuerySource(name string, rows []molecule.QueryInput) *SliceQuerySource {
	return &SliceQuerySource{name: name, rows: rows}
}

// Next implements QuerySource.
func (s *SliceQuerySource) Next(ctx context.Context) (molecule.QueryInput, error) {
	if err := ctx.Err(); err != nil {
		return molecule.QueryInput{}, err
	}
	if s.next >= len(s.rows) {
		return molecule.QueryInput{}, io.EOF
	}
	q := s.rows[s.next]
	s.next++
	return q, nil
}

// Name implements QuerySource.
func (s *SliceQuerySource) Name() string { return s.name }

//Personal.AI order the ending
