package corpus

import (
	"context"
	"io"
)

// SliceSource serves rows from memory.
type SliceSource struct {
	name string
	rows []RawRecord
	next int
}

// NewSliceSource returns a Source over rows.
func NewSliceSource(name string, rows []RawRecord) *SliceSource {
	return &SliceSource{name: name, rows: rows}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return RawRecord{}, err
	}
	if s.next >= len(s.rows) {
		return RawRecord{}, io.EOF
	}
	r := s.rows[s.next]
	s.next++
	return r, nil
}

// Name implements Source.
func (s *SliceSource) Name() string { return s.name }

//Personal.AI order the ending
