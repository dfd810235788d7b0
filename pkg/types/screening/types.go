// Package screening defines the request and response bodies of the
// screening API.  The server converts engine results into these types and
// the Go client decodes them.
package screening

import (
	"fmt"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Outcome values as reported in Result.Outcome.
const (
	OutcomeMatched            = "matched"
	OutcomeUnfilteredFallback = "unfiltered_fallback"
	OutcomeNoCandidates       = "no_candidates"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeEmptyCorpus        = "empty_corpus"
)

// ─────────────────────────────────────────────────────────────────────────────
// Requests
// ─────────────────────────────────────────────────────────────────────────────

// Query is one compound to screen.
type Query struct {
	Source   string `json:"source,omitempty"`
	Name     string `json:"name,omitempty"`
	Category string `json:"category,omitempty"`
	SMILES   string `json:"smiles"`
}

// ScreenRequest is the body of POST /api/v1/screen.
type ScreenRequest struct {
	Queries []Query `json:"queries"`
}

// Validate rejects an empty request and one with more than max queries.
// Individual SMILES are not checked here; a malformed one comes back as an
// invalid_input result.
func (r ScreenRequest) Validate(max int) error {
	if len(r.Queries) == 0 {
		return errors.InvalidParam("queries must not be empty")
	}
	if max > 0 && len(r.Queries) > max {
		return errors.InvalidParam(fmt.Sprintf("at most %d queries per request, got %d", max, len(r.Queries)))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Responses
// ─────────────────────────────────────────────────────────────────────────────

// Annotation is the organism information of a matched entry.
type Annotation struct {
	Organisms []string `json:"organisms"`
	IsTarget  bool     `json:"is_target"`
	Origin    string   `json:"origin"`
}

// Match is one ranked corpus entry.
type Match struct {
	Rank            int        `json:"rank"`
	PDBID           string     `json:"pdb_id"`
	Score           float64    `json:"score"`
	LigandName      string     `json:"ligand_name,omitempty"`
	SMILES          string     `json:"smiles"`
	MolecularWeight float64    `json:"molecular_weight,omitempty"`
	Status          string     `json:"status,omitempty"`
	CorpusPosition  int        `json:"corpus_position"`
	Annotation      Annotation `json:"annotation"`
}

// Result answers one Query.
type Result struct {
	Index                int     `json:"index"`
	Query                Query   `json:"query"`
	Outcome              string  `json:"outcome"`
	Matches              []Match `json:"matches"`
	CandidatesAboveFloor int     `json:"candidates_above_floor"`
	Tier1Candidates      int     `json:"tier1_candidates"`
	Tier2Candidates      int     `json:"tier2_candidates"`
	Escalated            bool    `json:"escalated"`
	Comparisons          int     `json:"comparisons"`
	ElapsedMS            float64 `json:"elapsed_ms"`
	Error                string  `json:"error,omitempty"`
}

// TargetMatches returns the matches annotated with a target organism.
func (r Result) TargetMatches() []Match {
	var out []Match
	for _, m := range r.Matches {
		if m.Annotation.IsTarget {
			out = append(out, m)
		}
	}
	return out
}

// ScreenResponse is the body of a successful screen call.  Results are in
// request order.
type ScreenResponse struct {
	Results   []Result `json:"results"`
	RequestID string   `json:"request_id,omitempty"`
}

// CorpusResponse describes the loaded corpus.
type CorpusResponse struct {
	Source          string `json:"source"`
	Records         int    `json:"records"`
	Seen            int    `json:"seen"`
	Valid           int    `json:"valid"`
	Invalid         int    `json:"invalid"`
	FingerprintBits uint   `json:"fingerprint_bits"`
}

// EngineStats are the engine's cumulative counters.
type EngineStats struct {
	QueriesSeen    int64 `json:"queries_seen"`
	QueriesValid   int64 `json:"queries_valid"`
	QueriesInvalid int64 `json:"queries_invalid"`
	QueriesMatched int64 `json:"queries_matched"`
	Comparisons    int64 `json:"comparisons"`
	Escalations    int64 `json:"escalations"`
	Fallbacks      int64 `json:"unfiltered_fallbacks"`
	EmptyCorpus    int64 `json:"empty_corpus_queries"`
	CachedQueries  int64 `json:"cached_queries"`
}

// AnnotationStats are the annotation resolver's cumulative counters.
type AnnotationStats struct {
	Requested         int64 `json:"requested"`
	CacheHits         int64 `json:"cache_hits"`
	StoreHits         int64 `json:"store_hits"`
	PrimaryCalls      int64 `json:"primary_calls"`
	PrimaryFailures   int64 `json:"primary_failures"`
	SecondaryCalls    int64 `json:"secondary_calls"`
	SecondaryFailures int64 `json:"secondary_failures"`
	Resolved          int64 `json:"resolved"`
	Unavailable       int64 `json:"unavailable"`
	CachedEntries     int   `json:"cached_entries"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	Engine        EngineStats     `json:"engine"`
	Annotation    AnnotationStats `json:"annotation"`
	CachedResults int             `json:"cached_results"`
	UptimeSeconds float64         `json:"uptime_seconds"`
}

//Personal.AI order the ending
