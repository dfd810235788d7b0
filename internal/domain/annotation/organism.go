// Package annotation resolves corpus identifiers to organism annotations.
//
// Resolution goes cache → optional shared store → batched primary lookup →
// per-identifier secondary lookup.  Every identifier that cannot be resolved
// along that chain ends up as the Unknown annotation, which is never a target
// organism.  Nothing in this package returns an error to the search engine.
package annotation

import (
	"sort"
	"strings"
)

// UnknownOrganism is the sentinel organism name for unresolved identifiers.
const UnknownOrganism = "Unknown"

// ProteinStructureMarker is reported by the secondary source when an entry
// holds protein chains but no organism could be inferred.
const ProteinStructureMarker = "Protein structure"

// Origin records which path produced an annotation.
type Origin string

const (
	OriginPrimary   Origin = "primary"
	OriginSecondary Origin = "secondary"
	OriginStore     Origin = "store"
	OriginOffline   Origin = "offline"
	// OriginDefault marks identifiers nobody could resolve.
	OriginDefault Origin = "default"
)

// Annotation is the resolved organism set of one identifier.  Values are
// never modified after they enter the cache.
type Annotation struct {
	Organisms []string `json:"organisms"`
	IsTarget  bool     `json:"is_target"`
	Origin    Origin   `json:"origin"`
}

// Unknown returns the sentinel annotation.
func Unknown(origin Origin) Annotation {
	return Annotation{Organisms: []string{UnknownOrganism}, IsTarget: false, Origin: origin}
}

// IsUnknown reports whether a is the sentinel.
func (a Annotation) IsUnknown() bool {
	return len(a.Organisms) == 1 && a.Organisms[0] == UnknownOrganism
}

// String joins the organism names.
func (a Annotation) String() string {
	return strings.Join(a.Organisms, ", ")
}

// ─────────────────────────────────────────────────────────────────────────────
// Classifier
// ─────────────────────────────────────────────────────────────────────────────

// DefaultTargetKeywords are matched as case-insensitive substrings.
var DefaultTargetKeywords = []string{
	"homo sapiens", "human", "h. sapiens",
	"mus musculus", "mouse", "m. musculus",
	"rattus norvegicus", "rat", "r. norvegicus", "rattus",
}

// Classifier decides whether organism names denote a target organism.
type Classifier struct {
	keywords []string
}

// NewClassifier lowercases keywords; an empty list selects the defaults.
func NewClassifier(keywords []string) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultTargetKeywords
	}
	c := &Classifier{keywords: make([]string, 0, len(keywords))}
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			c.keywords = append(c.keywords, k)
		}
	}
	return c
}

// Keywords returns the normalised keyword list.
func (c *Classifier) Keywords() []string {
	return append([]string(nil), c.keywords...)
}

// IsTarget reports whether any name contains any keyword.
func (c *Classifier) IsTarget(names []string) bool {
	for _, n := range names {
		lower := strings.ToLower(n)
		for _, k := range c.keywords {
			if strings.Contains(lower, k) {
				return true
			}
		}
	}
	return false
}

// Annotate trims, deduplicates and sorts names and classifies them.  No
// usable name yields Unknown.
func (c *Classifier) Annotate(names []string, origin Origin) Annotation {
	seen := make(map[string]struct{}, len(names))
	clean := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		clean = append(clean, n)
	}
	if len(clean) == 0 {
		return Unknown(origin)
	}
	sort.Strings(clean)
	return Annotation{Organisms: clean, IsTarget: c.IsTarget(clean), Origin: origin}
}

//Personal.AI order the ending
