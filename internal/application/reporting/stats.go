package reporting

import (
	"math"
	"sort"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/domain/annotation"
)

// ScoreStats describes a sample of similarity scores.  Std is the sample
// standard deviation and is zero for fewer than two scores.
type ScoreStats struct {
	Count  int
	Mean   float64
	Median float64
	Max    float64
	Min    float64
	Std    float64
}

// Describe computes ScoreStats over scores.  The input is not modified.
func Describe(scores []float64) ScoreStats {
	n := len(scores)
	if n == 0 {
		return ScoreStats{}
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}
	st := ScoreStats{Count: n, Mean: sum / float64(n), Min: sorted[0], Max: sorted[n-1]}
	if n%2 == 1 {
		st.Median = sorted[n/2]
	} else {
		st.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	if n > 1 {
		ss := 0.0
		for _, s := range sorted {
			d := s - st.Mean
			ss += d * d
		}
		st.Std = math.Sqrt(ss / float64(n-1))
	}
	return st
}

// OrganismCount is one row of the organism distribution.
type OrganismCount struct {
	Organism string
	Matches  int
}

// OrganismDistribution counts, over every match of every result, how many
// matches list each organism.  Rows are ordered by count, then name.
func OrganismDistribution(results []*screening.Result) []OrganismCount {
	counts := map[string]int{}
	for _, r := range results {
		for _, m := range r.Matches {
			orgs := m.Annotation.Organisms
			if len(orgs) == 0 {
				orgs = []string{annotation.UnknownOrganism}
			}
			for _, o := range orgs {
				counts[o]++
			}
		}
	}
	out := make([]OrganismCount, 0, len(counts))
	for o, n := range counts {
		out = append(out, OrganismCount{Organism: o, Matches: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Matches != out[j].Matches {
			return out[i].Matches > out[j].Matches
		}
		return out[i].Organism < out[j].Organism
	})
	return out
}

func allScores(results []*screening.Result) []float64 {
	var out []float64
	for _, r := range results {
		for _, m := range r.Matches {
			out = append(out, m.Score)
		}
	}
	return out
}

func matchScores(ms []screening.Match) []float64 {
	out := make([]float64, len(ms))
	for i, m := range ms {
		out[i] = m.Score
	}
	return out
}

//Personal.AI order the ending
