package screening

import (
	"math"
	"time"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
)

// Outcome classifies how a query was answered.
type Outcome string

const (
	// OutcomeMatched: at least one target-organism match.
	OutcomeMatched Outcome = "matched"
	// OutcomeUnfilteredFallback: no target-organism match; the raw Tier-1 top
	// is returned instead.
	OutcomeUnfilteredFallback Outcome = "unfiltered_fallback"
	// OutcomeNoCandidates: nothing scored above the relevance floor.
	OutcomeNoCandidates Outcome = "no_candidates"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeEmptyCorpus  Outcome = "empty_corpus"
)

// Match is one ranked corpus record in a Result.
type Match struct {
	Rank            int                   `json:"rank"`
	Identifier      string                `json:"pdb_id"`
	Score           float64               `json:"score"`
	RawScore        float64               `json:"-"`
	Name            string                `json:"ligand_name,omitempty"`
	Encoding        string                `json:"smiles"`
	MolecularWeight float64               `json:"molecular_weight,omitempty"`
	Status          string                `json:"status,omitempty"`
	Position        int                   `json:"corpus_position"`
	Annotation      annotation.Annotation `json:"annotation"`
}

// Result is the answer to one query.  Matches are ordered by descending
// score with ties in corpus order.
type Result struct {
	Index   int                 `json:"index"`
	Query   molecule.QueryInput `json:"query"`
	Outcome Outcome             `json:"outcome"`
	Matches []Match             `json:"matches"`

	AboveFloor  int           `json:"candidates_above_floor"`
	Tier1       int           `json:"tier1_candidates"`
	Tier2       int           `json:"tier2_candidates"`
	Escalated   bool          `json:"escalated"`
	Comparisons int           `json:"comparisons"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	Error       string        `json:"error,omitempty"`
}

// Fallback reports whether the result is the unfiltered Tier-1 top.
func (r *Result) Fallback() bool { return r.Outcome == OutcomeUnfilteredFallback }

// TargetMatches returns the matches annotated with a target organism.
func (r *Result) TargetMatches() []Match {
	out := make([]Match, 0, len(r.Matches))
	for _, m := range r.Matches {
		if m.Annotation.IsTarget {
			out = append(out, m)
		}
	}
	return out
}

// RoundScore rounds half away from zero to the given number of decimals.
func RoundScore(score float64, decimals int) float64 {
	if decimals < 0 {
		return score
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(score*p) / p
}

//Personal.AI order the ending
