package reporting

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/turtacn/ligandscreen/internal/application/screening"
)

const (
	// Top5Limit is the number of target identifiers per row of the top-5
	// table.
	Top5Limit = 5

	NoTargetMatchesRow = "No Human/Mouse/Rat matches found for any chemicals"
	NoMatchesRow       = "No matches found with similarity > 0.1"

	dateLayout = "2006-01-02 15:04:05"
)

var (
	top5Header = []string{"Plant", "Chemical Name", "Molecular Structure", "Molecule Category", "Top PDB IDs"}

	detailedHeader = []string{
		"Plant", "Chemical_Name", "Molecular_Structure", "Molecule_Category",
		"PDB_ID", "Ligand_Name", "PDB_SMILES", "Similarity_Score", "Organisms",
		"Is_Human_Mouse_Rat", "Match_Rank", "Molecular_Weight", "Status",
		"Unfiltered_Fallback", "Processing_Date",
	}
)

// WriteTop5 writes one row per query with at least one target-organism
// match, listing up to five target identifiers best first.
func WriteTop5(w io.Writer, results []*screening.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(top5Header); err != nil {
		return err
	}

	anyMatch, rows := false, 0
	for _, r := range results {
		if len(r.Matches) > 0 {
			anyMatch = true
		}
		targets := r.TargetMatches()
		if len(targets) == 0 {
			continue
		}
		ids := make([]string, 0, Top5Limit)
		for _, m := range targets[:min(Top5Limit, len(targets))] {
			ids = append(ids, m.Identifier)
		}
		q := r.Query
		if err := cw.Write([]string{q.Source, q.Name, q.Encoding, q.Category, strings.Join(ids, ", ")}); err != nil {
			return err
		}
		rows++
	}

	switch {
	case !anyMatch:
		_ = cw.Write([]string{NoMatchesRow, "", "", "", ""})
	case rows == 0:
		_ = cw.Write([]string{NoTargetMatchesRow, "", "", "", ""})
	}
	cw.Flush()
	return cw.Error()
}

// WriteDetailed writes one row per match.
func WriteDetailed(w io.Writer, results []*screening.Result, processed time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(detailedHeader); err != nil {
		return err
	}
	date := processed.Format(dateLayout)
	for _, r := range results {
		q := r.Query
		for _, m := range r.Matches {
			weight := ""
			if m.MolecularWeight != 0 {
				weight = strconv.FormatFloat(m.MolecularWeight, 'f', -1, 64)
			}
			row := []string{
				q.Source, q.Name, q.Encoding, q.Category,
				m.Identifier, m.Name, m.Encoding,
				strconv.FormatFloat(m.Score, 'f', 4, 64),
				strings.Join(m.Annotation.Organisms, "; "),
				strconv.FormatBool(m.Annotation.IsTarget),
				strconv.Itoa(m.Rank),
				weight,
				m.Status,
				strconv.FormatBool(r.Fallback()),
				date,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

//Personal.AI order the ending
