package reporting

import (
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/turtacn/ligandscreen/internal/application/screening"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
)

// TableRows caps the per-query table in the analysis report.
const TableRows = 20

const organismWidth = 20

type analysisRow struct {
	Rank     int
	ID       string
	Score    float64
	Organism string
	Target   string
	Status   string
}

type analysisSection struct {
	Query    molecule.QueryInput
	Total    int
	Fallback bool
	Rows     []analysisRow
	Stats    ScoreStats
}

type analysisData struct {
	Generated string
	Summary   screening.Summary
	Records   int
	Overall   ScoreStats
	Organisms []OrganismCount
	Sections  []analysisSection
	NoMatches string
}

var analysisFuncs = template.FuncMap{
	"comma": func(n any) string {
		switch v := n.(type) {
		case int:
			return humanize.Comma(int64(v))
		case int64:
			return humanize.Comma(v)
		}
		return ""
	},
	"rule":     strings.Repeat,
	"duration": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
}

var analysisTemplate = template.Must(template.New("analysis").Funcs(analysisFuncs).Parse(
	`{{rule "=" 80}}
LIGAND SCREENING ANALYSIS REPORT
{{rule "=" 80}}
Generated: {{.Generated}}
Run: {{.Summary.RunID}}

PROCESSING STATISTICS:
{{rule "-" 40}}
Total corpus records processed: {{comma .Summary.Corpus.Seen}}
Valid corpus fingerprints: {{comma .Summary.Corpus.Valid}}
Input chemicals processed: {{comma .Summary.Engine.QueriesSeen}}
Valid input fingerprints: {{comma .Summary.Engine.QueriesValid}}
Total similarity comparisons: {{comma .Summary.Engine.Comparisons}}
Chemicals with matches found: {{comma .Summary.Engine.QueriesMatched}}
Tier-2 escalations: {{comma .Summary.Engine.Escalations}}
Unfiltered fallbacks: {{comma .Summary.Engine.Fallbacks}}
Total result records: {{comma .Records}}
Annotation cache hits: {{comma .Summary.Annotation.CacheHits}}
Errors encountered: {{comma .Summary.Errors}}
Processing time: {{duration .Summary.Duration}}
{{if .Sections}}
SIMILARITY SCORE STATISTICS:
{{rule "-" 40}}
Mean similarity: {{printf "%.4f" .Overall.Mean}}
Median similarity: {{printf "%.4f" .Overall.Median}}
Max similarity: {{printf "%.4f" .Overall.Max}}
Min similarity: {{printf "%.4f" .Overall.Min}}
Standard deviation: {{printf "%.4f" .Overall.Std}}

ORGANISM DISTRIBUTION:
{{rule "-" 40}}
{{range .Organisms}}{{printf "%-30s %8d" .Organism .Matches}}
{{end}}
DETAILED MOLECULAR ANALYSIS:
{{rule "=" 80}}
{{range .Sections}}
MOLECULE: {{.Query.Name}}
Plant: {{.Query.Source}}
SMILES: {{.Query.Encoding}}
Category: {{.Query.Category}}
Total matches found: {{.Total}}{{if .Fallback}} (unfiltered fallback, no Human/Mouse/Rat match){{end}}
{{rule "-" 60}}
TOP {{len .Rows}} TARGETS WITH TANIMOTO VALUES AND ORGANISM INFO:
{{printf "%-4s %-8s %-10s %-20s %-12s %-15s" "Rank" "PDB_ID" "Tanimoto" "Organism" "H/M/R" "Status"}}
{{rule "-" 80}}
{{range .Rows}}{{printf "%-4d %-8s %-10.4f %-20s %-12s %-15s" .Rank .ID .Score .Organism .Target .Status}}
{{end}}
MOLECULE STATISTICS:
Mean Tanimoto: {{printf "%.4f" .Stats.Mean}}
Max Tanimoto: {{printf "%.4f" .Stats.Max}}
Min Tanimoto: {{printf "%.4f" .Stats.Min}}
Std Deviation: {{printf "%.4f" .Stats.Std}}

{{rule "=" 80}}
{{end}}{{else}}
{{.NoMatches}}
{{end}}`))

// WriteAnalysis renders the plain-text analysis report.
func WriteAnalysis(w io.Writer, run *screening.Run, generated time.Time) error {
	data := analysisData{
		Generated: generated.Format(dateLayout),
		Summary:   run.Summary,
		Overall:   Describe(allScores(run.Results)),
		Organisms: OrganismDistribution(run.Results),
		NoMatches: NoMatchesRow,
	}
	for _, r := range run.Results {
		if len(r.Matches) == 0 {
			continue
		}
		data.Records += len(r.Matches)
		top := r.Matches[:min(TableRows, len(r.Matches))]
		sec := analysisSection{
			Query:    r.Query,
			Total:    len(r.Matches),
			Fallback: r.Fallback(),
			Stats:    Describe(matchScores(top)),
		}
		for i, m := range top {
			target := "No"
			if m.Annotation.IsTarget {
				target = "Yes"
			}
			sec.Rows = append(sec.Rows, analysisRow{
				Rank:     i + 1,
				ID:       m.Identifier,
				Score:    m.Score,
				Organism: truncate(strings.Join(m.Annotation.Organisms, ", "), organismWidth),
				Target:   target,
				Status:   m.Status,
			})
		}
		data.Sections = append(data.Sections, sec)
	}
	return analysisTemplate.Execute(w, data)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

//Personal.AI order the ending
