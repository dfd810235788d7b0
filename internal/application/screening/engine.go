// Package screening answers similarity queries against a corpus index.
//
// For each query the engine scans every corpus record, keeps candidates above
// the relevance floor, resolves organism annotations for the best Tier-1
// candidates, widens once into Tier-2 when too few target-organism hits turn
// up, and falls back to the unfiltered Tier-1 top when none do.
package screening

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/corpus"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Defaults for Options.
const (
	DefaultRelevanceFloor   = 0.1
	DefaultTier1Size        = 50
	DefaultTier2Size        = 150
	DefaultMinAnnotatedHits = 5
	DefaultTopN             = 10
	DefaultScoreDecimals    = 4

	cancelCheckEvery = 4096
)

// Options tune the ranking policy.
type Options struct {
	// RelevanceFloor is exclusive: a candidate must score strictly above it.
	RelevanceFloor float64
	Tier1Size      int
	// Tier2Size is the number of extra ranks examined on escalation.
	Tier2Size int
	// MinAnnotatedHits below which Tier-2 is examined.
	MinAnnotatedHits int
	// TopN caps the result and is the early-stop threshold during Tier-2.
	TopN          int
	ScoreDecimals int
	// ScanWorkers shards the corpus scan.  1 scans sequentially.
	ScanWorkers int
}

// DefaultOptions returns the reference ranking policy.
func DefaultOptions() Options {
	return Options{
		RelevanceFloor:   DefaultRelevanceFloor,
		Tier1Size:        DefaultTier1Size,
		Tier2Size:        DefaultTier2Size,
		MinAnnotatedHits: DefaultMinAnnotatedHits,
		TopN:             DefaultTopN,
		ScoreDecimals:    DefaultScoreDecimals,
		ScanWorkers:      1,
	}
}

func (o Options) validate() error {
	switch {
	case o.RelevanceFloor < 0 || o.RelevanceFloor >= 1:
		return fmt.Errorf("relevance floor %v outside [0,1)", o.RelevanceFloor)
	case o.Tier1Size <= 0:
		return fmt.Errorf("tier1 size must be positive")
	case o.Tier2Size < 0:
		return fmt.Errorf("tier2 size must not be negative")
	case o.TopN <= 0:
		return fmt.Errorf("top n must be positive")
	case o.MinAnnotatedHits < 0:
		return fmt.Errorf("min annotated hits must not be negative")
	}
	return nil
}

// AnnotationResolver is what the engine needs from the annotation layer.
type AnnotationResolver interface {
	Resolve(ctx context.Context, ids []string) map[string]annotation.Annotation
	BatchSize() int
}

// Recorder receives per-query measurements, typically for metrics.
type Recorder interface {
	ObserveQuery(outcome Outcome, comparisons int, escalated bool, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveQuery(Outcome, int, bool, time.Duration) {}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithMetric replaces the Tanimoto metric.
func WithMetric(m molecule.Metric) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metric = m
		}
	}
}

// Engine answers queries against one immutable corpus index.  Screen may be
// called from many goroutines at once.
type Engine struct {
	index    *corpus.Index
	encoder  molecule.Encoder
	metric   molecule.Metric
	resolver AnnotationResolver
	opts     Options
	stats    *Stats
	logger   logging.Logger
	recorder Recorder
}

// NewEngine validates that the encoder and the index agree on fingerprint
// length.  A mismatch is fatal: scores across lengths are meaningless.
func NewEngine(index *corpus.Index, encoder molecule.Encoder, resolver AnnotationResolver, opts Options, options ...EngineOption) (*Engine, error) {
	if encoder == nil {
		return nil, errors.New(errors.ErrCodeCodecUnavailable, "no fingerprint encoder configured")
	}
	if index == nil {
		return nil, errors.New(errors.ErrCodeCorpusLoadFailure, "no corpus index")
	}
	if resolver == nil {
		return nil, errors.InvalidParam("annotation resolver is required")
	}
	if index.FingerprintBits() != encoder.NumBits() {
		return nil, errors.New(errors.ErrCodeFingerprintLengthMismatch, "corpus and query fingerprints differ in length").
			WithDetail(fmt.Sprintf("corpus=%d query=%d", index.FingerprintBits(), encoder.NumBits()))
	}
	if opts.ScanWorkers <= 0 {
		opts.ScanWorkers = 1
	}
	if err := opts.validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid screening options")
	}
	e := &Engine{
		index:    index,
		encoder:  encoder,
		metric:   molecule.TanimotoMetric{},
		resolver: resolver,
		opts:     opts,
		stats:    &Stats{},
		logger:   logging.NewNopLogger(),
		recorder: nopRecorder{},
	}
	for _, o := range options {
		o(e)
	}
	return e, nil
}

// Stats returns the engine counters.
func (e *Engine) Stats() *Stats { return e.stats }

// Index returns the corpus index the engine scans.
func (e *Engine) Index() *corpus.Index { return e.index }

// Options returns the ranking policy in effect.
func (e *Engine) Options() Options { return e.opts }

type candidate struct {
	record *corpus.Record
	score  float64
}

// Screen answers one query.  Invalid queries and empty corpora produce a
// Result with no matches rather than an error; the only error is ctx ending
// during the scan.
func (e *Engine) Screen(ctx context.Context, in molecule.QueryInput) (*Result, error) {
	start := time.Now()
	e.stats.queriesSeen.Add(1)
	res := &Result{Query: in, Matches: []Match{}}

	finish := func() (*Result, error) {
		res.Elapsed = time.Since(start)
		if len(res.Matches) > 0 {
			e.stats.queriesMatched.Add(1)
		}
		e.recorder.ObserveQuery(res.Outcome, res.Comparisons, res.Escalated, res.Elapsed)
		return res, nil
	}

	q, err := molecule.NewQueryCompound(e.encoder, in)
	if err != nil {
		e.stats.queriesInvalid.Add(1)
		res.Outcome = OutcomeInvalidInput
		res.Error = err.Error()
		e.logger.Debug("query skipped", logging.String("name", in.Name), logging.Err(err))
		return finish()
	}
	e.stats.queriesValid.Add(1)

	if e.index.Len() == 0 {
		e.stats.emptyCorpus.Add(1)
		res.Outcome = OutcomeEmptyCorpus
		return finish()
	}

	cands, compared, err := e.scan(ctx, q.Fingerprint)
	res.Comparisons = compared
	if err != nil {
		return nil, err
	}
	res.AboveFloor = len(cands)
	if len(cands) == 0 {
		res.Outcome = OutcomeNoCandidates
		return finish()
	}

	hits, anns := e.rank(ctx, cands, res)
	log := e.logger.With(logging.String("query", q.Name))

	selected := hits
	res.Outcome = OutcomeMatched
	if len(hits) == 0 {
		selected = cands[:min(e.opts.TopN, res.Tier1)]
		res.Outcome = OutcomeUnfilteredFallback
		e.stats.fallbacks.Add(1)
		log.Info("no target-organism hits, returning unfiltered tier-1",
			logging.Int("tier1", res.Tier1), logging.Int("tier2", res.Tier2))
	}

	res.Matches = make([]Match, len(selected))
	for i, c := range selected {
		res.Matches[i] = Match{
			Rank:            i + 1,
			Identifier:      c.record.Identifier,
			Score:           RoundScore(c.score, e.opts.ScoreDecimals),
			RawScore:        c.score,
			Name:            c.record.Name,
			Encoding:        c.record.Encoding,
			MolecularWeight: c.record.MolecularWeight,
			Status:          c.record.Status,
			Position:        c.record.Position,
			Annotation:      annotationFor(anns, c.record.Identifier),
		}
	}
	log.Debug("query screened",
		logging.Int("above_floor", res.AboveFloor),
		logging.Int("matches", len(res.Matches)),
		logging.String("outcome", string(res.Outcome)))
	return finish()
}

// rank applies the tiered policy to cands (already sorted) and returns the
// target-organism hits, best first, capped at TopN, plus every annotation
// fetched on the way.
func (e *Engine) rank(ctx context.Context, cands []candidate, res *Result) ([]candidate, map[string]annotation.Annotation) {
	tier1 := cands[:min(e.opts.Tier1Size, len(cands))]
	res.Tier1 = len(tier1)

	anns := e.resolver.Resolve(ctx, identifiers(tier1))
	hits := make([]candidate, 0, e.opts.TopN)
	for _, c := range tier1 {
		if annotationFor(anns, c.record.Identifier).IsTarget {
			hits = append(hits, c)
		}
	}

	if len(hits) < e.opts.MinAnnotatedHits && len(cands) > len(tier1) && e.opts.Tier2Size > 0 {
		tier2 := cands[len(tier1):min(len(tier1)+e.opts.Tier2Size, len(cands))]
		res.Tier2 = len(tier2)
		res.Escalated = true
		e.stats.escalations.Add(1)

		// Tier-2 is resolved one annotation batch at a time; the early stop
		// is checked between batches only.
		batch := e.resolver.BatchSize()
		if batch <= 0 {
			batch = len(tier2)
		}
		for start := 0; start < len(tier2) && len(hits) < e.opts.TopN; start += batch {
			chunk := tier2[start:min(start+batch, len(tier2))]
			for id, a := range e.resolver.Resolve(ctx, identifiers(chunk)) {
				anns[id] = a
			}
			for _, c := range chunk {
				if annotationFor(anns, c.record.Identifier).IsTarget {
					hits = append(hits, c)
				}
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > e.opts.TopN {
		hits = hits[:e.opts.TopN]
	}
	return hits, anns
}

// scan compares fp with every record, sharded across ScanWorkers goroutines.
// Shards are contiguous and merged in order before a stable sort, so the
// ranking does not depend on the worker count.
func (e *Engine) scan(ctx context.Context, fp *molecule.Fingerprint) ([]candidate, int, error) {
	shards := e.index.Shards(e.opts.ScanWorkers)
	parts := make([][]candidate, len(shards))
	counts := make([]int, len(shards))
	floor := e.opts.RelevanceFloor

	g, gctx := errgroup.WithContext(ctx)
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			var local []candidate
			for j, rec := range shard {
				if j%cancelCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						counts[i] = j
						return err
					}
				}
				if s := e.metric.Similarity(fp, rec.Fingerprint); s > floor {
					local = append(local, candidate{record: rec, score: s})
				}
			}
			counts[i] = len(shard)
			parts[i] = local
			return nil
		})
	}
	err := g.Wait()

	compared := 0
	for _, n := range counts {
		compared += n
	}
	e.stats.comparisons.Add(int64(compared))
	if err != nil {
		return nil, compared, errors.Wrap(err, errors.ErrCodeScreeningFailed, "scan interrupted")
	}

	total := 0
	for _, p := range parts {
		total += len(p)
	}
	merged := make([]candidate, 0, total)
	for _, p := range parts {
		merged = append(merged, p...)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].score > merged[j].score })
	return merged, compared, nil
}

func identifiers(cs []candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.record.Identifier
	}
	return out
}

func annotationFor(anns map[string]annotation.Annotation, id string) annotation.Annotation {
	if a, ok := anns[id]; ok {
		return a
	}
	return annotation.Unknown(annotation.OriginDefault)
}

//Personal.AI order the ending
