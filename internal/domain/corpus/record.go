// Package corpus holds the reference records that queries are screened
// against.  The Index is built once per run and never mutated afterwards, so
// any number of scans may read it concurrently.
package corpus

import (
	"context"
	"strconv"
	"strings"

	"github.com/turtacn/ligandscreen/internal/domain/molecule"
)

// RawRecord is one row produced by the ingestion collaborator.
type RawRecord struct {
	Identifier string
	Encoding   string
	Name       string
	Weight     string
	Status     string
	// Line is the 1-based line in the source, for diagnostics.
	Line int
}

// Source yields raw corpus rows.  Next returns io.EOF after the last row.
type Source interface {
	Next(ctx context.Context) (RawRecord, error)
	// Name identifies the source (usually a path) in errors and logs.
	Name() string
}

// Record is a fingerprinted reference record.  Position is the index of the
// row in the source stream and is the record's key: identifiers need not be
// unique.
type Record struct {
	Position        int
	Identifier      string
	Encoding        string
	Name            string
	MolecularWeight float64
	HasWeight       bool
	Status          string
	Fingerprint     *molecule.Fingerprint
}

func newRecord(pos int, raw RawRecord, fp *molecule.Fingerprint) *Record {
	r := &Record{
		Position:    pos,
		Identifier:  strings.TrimSpace(raw.Identifier),
		Encoding:    strings.TrimSpace(raw.Encoding),
		Name:        strings.TrimSpace(raw.Name),
		Status:      strings.TrimSpace(raw.Status),
		Fingerprint: fp,
	}
	if w, err := strconv.ParseFloat(strings.TrimSpace(raw.Weight), 64); err == nil {
		r.MolecularWeight = w
		r.HasWeight = true
	}
	return r
}

//Personal.AI order the ending
