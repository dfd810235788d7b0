package ingest

import (
	"context"
	"io"

	"github.com/turtacn/ligandscreen/internal/domain/corpus"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// CorpusColumns names the corpus table columns.
type CorpusColumns struct {
	Identifier string `mapstructure:"identifier"`
	Encoding   string `mapstructure:"smiles"`
	Name       string `mapstructure:"name"`
	Weight     string `mapstructure:"weight"`
	Status     string `mapstructure:"status"`
}

// DefaultCorpusColumns matches the reference ligand export.
func DefaultCorpusColumns() CorpusColumns {
	return CorpusColumns{
		Identifier: "PDB_ID",
		Encoding:   "SMILES",
		Name:       "Ligand_Name",
		Weight:     "Molecular_Weight",
		Status:     "Status",
	}
}

// QueryColumns names the query table columns.
type QueryColumns struct {
	Source   string `mapstructure:"source"`
	Name     string `mapstructure:"name"`
	Encoding string `mapstructure:"smiles"`
	Category string `mapstructure:"category"`
}

// DefaultQueryColumns matches the reference plant-compound sheet.
func DefaultQueryColumns() QueryColumns {
	return QueryColumns{
		Source:   "Plant",
		Name:     "Chemical Name",
		Encoding: "Molecular Structure",
		Category: "Molecule Category",
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ─────────────────────────────────────────────────────────────────────────────
// Corpus
// ─────────────────────────────────────────────────────────────────────────────

// CorpusSource streams corpus rows from a table.  It implements
// corpus.Source.
type CorpusSource struct {
	t                            *Table
	id, enc, name, weight, state int
}

var _ corpus.Source = (*CorpusSource)(nil)

// OpenCorpus opens a corpus table.  Any failure is a CorpusLoadFailure.
func OpenCorpus(path string, cols CorpusColumns) (*CorpusSource, error) {
	t, err := OpenTable(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCorpusLoadFailure, "open corpus").WithDetail(path)
	}
	s, err := NewCorpusSource(t, cols)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return s, nil
}

// NewCorpusSource maps cols onto t's header.  The identifier and encoding
// columns are required.
func NewCorpusSource(t *Table, cols CorpusColumns) (*CorpusSource, error) {
	def := DefaultCorpusColumns()
	s := &CorpusSource{
		t:      t,
		id:     t.Column(orDefault(cols.Identifier, def.Identifier)),
		enc:    t.Column(orDefault(cols.Encoding, def.Encoding)),
		name:   t.Column(orDefault(cols.Name, def.Name)),
		weight: t.Column(orDefault(cols.Weight, def.Weight)),
		state:  t.Column(orDefault(cols.Status, def.Status)),
	}
	if s.id < 0 || s.enc < 0 {
		return nil, errors.New(errors.ErrCodeCorpusLoadFailure, "corpus table lacks a required column").
			WithDetail(t.Name())
	}
	return s, nil
}

// Next implements corpus.Source.
func (s *CorpusSource) Next(ctx context.Context) (corpus.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return corpus.RawRecord{}, err
	}
	row, err := s.t.Next()
	if err == io.EOF {
		return corpus.RawRecord{}, io.EOF
	}
	if err != nil {
		return corpus.RawRecord{}, err
	}
	return corpus.RawRecord{
		Identifier: row.Get(s.id),
		Encoding:   row.Get(s.enc),
		Name:       row.Get(s.name),
		Weight:     row.Get(s.weight),
		Status:     row.Get(s.state),
		Line:       row.Line,
	}, nil
}

// Name implements corpus.Source.
func (s *CorpusSource) Name() string { return s.t.Name() }

// Stats returns the table counters.
func (s *CorpusSource) Stats() TableStats { return s.t.Stats() }

// Close closes the underlying table.
func (s *CorpusSource) Close() error { return s.t.Close() }

// ─────────────────────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────────────────────

// QuerySource streams query rows from a table.
type QuerySource struct {
	t                       *Table
	source, name, enc, kind int
}

// OpenQueries opens a query table.  Any failure is a QueryLoadFailure.
func OpenQueries(path string, cols QueryColumns) (*QuerySource, error) {
	t, err := OpenTable(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeQueryLoadFailure, "open queries").WithDetail(path)
	}
	s, err := NewQuerySource(t, cols)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	return s, nil
}

// NewQuerySource maps cols onto t's header.  Only the encoding column is
// required.
func NewQuerySource(t *Table, cols QueryColumns) (*QuerySource, error) {
	def := DefaultQueryColumns()
	s := &QuerySource{
		t:      t,
		source: t.Column(orDefault(cols.Source, def.Source)),
		name:   t.Column(orDefault(cols.Name, def.Name)),
		enc:    t.Column(orDefault(cols.Encoding, def.Encoding)),
		kind:   t.Column(orDefault(cols.Category, def.Category)),
	}
	if s.enc < 0 {
		return nil, errors.New(errors.ErrCodeQueryLoadFailure, "query table lacks the structure column").
			WithDetail(t.Name())
	}
	return s, nil
}

// Next returns the next query row or io.EOF.
func (s *QuerySource) Next(ctx context.Context) (molecule.QueryInput, error) {
	if err := ctx.Err(); err != nil {
		return molecule.QueryInput{}, err
	}
	row, err := s.t.Next()
	if err != nil {
		return molecule.QueryInput{}, err
	}
	return molecule.QueryInput{
		Source:   row.Get(s.source),
		Name:     row.Get(s.name),
		Category: row.Get(s.kind),
		Encoding: row.Get(s.enc),
		Line:     row.Line,
	}, nil
}

// Name identifies the table.
func (s *QuerySource) Name() string { return s.t.Name() }

// Stats returns the table counters.
func (s *QuerySource) Stats() TableStats { return s.t.Stats() }

// Close closes the underlying table.
func (s *QuerySource) Close() error { return s.t.Close() }

//Personal.AI order the ending
