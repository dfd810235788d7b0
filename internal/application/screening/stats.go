package screening

import (
	"sync/atomic"
	"time"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/corpus"
)

// Stats are the engine's run-wide counters.  All methods are safe for
// concurrent use.
type Stats struct {
	queriesSeen    atomic.Int64
	queriesValid   atomic.Int64
	queriesInvalid atomic.Int64
	queriesMatched atomic.Int64
	comparisons    atomic.Int64
	escalations    atomic.Int64
	fallbacks      atomic.Int64
	emptyCorpus    atomic.Int64
	cachedQueries  atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	QueriesSeen    int64 `json:"queries_seen"`
	QueriesValid   int64 `json:"queries_valid"`
	QueriesInvalid int64 `json:"queries_invalid"`
	QueriesMatched int64 `json:"queries_matched"`
	Comparisons    int64 `json:"comparisons"`
	Escalations    int64 `json:"escalations"`
	Fallbacks      int64 `json:"unfiltered_fallbacks"`
	EmptyCorpus    int64 `json:"empty_corpus_queries"`
	// CachedQueries is the share of QueriesSeen answered without a scan.
	CachedQueries int64 `json:"cached_queries"`
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		QueriesSeen:    s.queriesSeen.Load(),
		QueriesValid:   s.queriesValid.Load(),
		QueriesInvalid: s.queriesInvalid.Load(),
		QueriesMatched: s.queriesMatched.Load(),
		Comparisons:    s.comparisons.Load(),
		Escalations:    s.escalations.Load(),
		Fallbacks:      s.fallbacks.Load(),
		EmptyCorpus:    s.emptyCorpus.Load(),
		CachedQueries:  s.cachedQueries.Load(),
	}
}

// recordCached counts a query answered from a previous result.  Outcome
// counters move as if res had been computed again; comparisons and
// escalations do not, since no work was done.
func (s *Stats) recordCached(res *Result) {
	s.queriesSeen.Add(1)
	s.cachedQueries.Add(1)
	switch res.Outcome {
	case OutcomeInvalidInput:
		s.queriesInvalid.Add(1)
	case OutcomeEmptyCorpus:
		s.queriesValid.Add(1)
		s.emptyCorpus.Add(1)
	case OutcomeUnfilteredFallback:
		s.queriesValid.Add(1)
		s.fallbacks.Add(1)
	default:
		s.queriesValid.Add(1)
	}
	if len(res.Matches) > 0 {
		s.queriesMatched.Add(1)
	}
}

// Summary aggregates everything a report or a sink needs about one run.
type Summary struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Duration   time.Duration            `json:"duration_ns"`
	Corpus     corpus.Stats             `json:"corpus"`
	Engine     StatsSnapshot            `json:"engine"`
	Annotation annotation.ResolverStats `json:"annotation"`
	// Errors counts invalid queries plus failed annotation calls.
	Errors int64 `json:"errors"`
}

//Personal.AI order the ending
