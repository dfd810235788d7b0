// Package ingest reads the corpus and query CSV tables.  Rows are decoded
// line by line: valid UTF-8 is kept, anything else is decoded as
// Windows-1252 and, failing that, ISO-8859-1, so a stray byte never aborts a
// 600k-row load.  Lines the CSV grammar rejects fall back to a plain comma
// split.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TableStats counts rows that needed a fallback.
type TableStats struct {
	Rows             int `json:"rows"`
	SkippedBlank     int `json:"skipped_blank"`
	CharsetFallbacks int `json:"charset_fallbacks"`
	SplitFallbacks   int `json:"split_fallbacks"`
}

// Row is one data line.
type Row struct {
	Line   int
	Fields []string
}

// Get returns field i, or "" when the row is short.
func (r Row) Get(i int) string {
	if i < 0 || i >= len(r.Fields) {
		return ""
	}
	return r.Fields[i]
}

// Table is a header plus a stream of rows.
type Table struct {
	name    string
	r       *bufio.Reader
	closer  io.Closer
	header  []string
	columns map[string]int
	line    int
	stats   TableStats
}

// OpenTable opens path and reads its header.
func OpenTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, "open table").WithDetail(filepath.Base(path))
	}
	t, err := NewTable(path, f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	t.closer = f
	return t, nil
}

// NewTable reads the header from r.  name is used in errors.
func NewTable(name string, r io.Reader) (*Table, error) {
	t := &Table{name: name, r: bufio.NewReaderSize(r, 1<<16), columns: map[string]int{}}
	for {
		raw, err := t.readLine()
		if err == io.EOF && len(raw) == 0 {
			return nil, errors.New(errors.ErrCodeValidation, "table has no header").WithDetail(name)
		}
		if err != nil && err != io.EOF {
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "read header").WithDetail(name)
		}
		raw = bytes.TrimPrefix(raw, utf8BOM)
		line := t.decode(raw)
		if strings.TrimSpace(line) == "" {
			continue
		}
		t.header = t.split(line, -1)
		break
	}
	for i, h := range t.header {
		key := normalizeHeader(h)
		if _, dup := t.columns[key]; !dup {
			t.columns[key] = i
		}
	}
	return t, nil
}

// Name identifies the table.
func (t *Table) Name() string { return t.name }

// Header returns the cleaned header cells.
func (t *Table) Header() []string { return t.header }

// Stats returns the fallback counters so far.
func (t *Table) Stats() TableStats { return t.stats }

// Column returns the index of the first header matching any of names, case
// and surrounding space ignored, or -1.
func (t *Table) Column(names ...string) int {
	for _, n := range names {
		if i, ok := t.columns[normalizeHeader(n)]; ok {
			return i
		}
	}
	return -1
}

// Next returns the next non-blank row, or io.EOF.
func (t *Table) Next() (Row, error) {
	for {
		raw, err := t.readLine()
		if len(raw) == 0 && err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil && err != io.EOF {
			return Row{}, errors.Wrap(err, errors.ErrCodeInternal, "read row").WithDetail(t.name)
		}
		line := t.decode(raw)
		if strings.TrimSpace(line) == "" {
			t.stats.SkippedBlank++
			continue
		}
		t.stats.Rows++
		return Row{Line: t.line, Fields: t.split(line, len(t.header))}, nil
	}
}

// Close releases the underlying file, if any.
func (t *Table) Close() error {
	if t.closer == nil {
		return nil
	}
	return t.closer.Close()
}

func (t *Table) readLine() ([]byte, error) {
	raw, err := t.r.ReadBytes('\n')
	if len(raw) > 0 || err == nil {
		t.line++
	}
	raw = bytes.TrimRight(raw, "\r\n")
	return raw, err
}

// decode turns one raw line into UTF-8.
func (t *Table) decode(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	t.stats.CharsetFallbacks++
	if out, err := charmap.Windows1252.NewDecoder().Bytes(raw); err == nil {
		return string(out)
	}
	out, _ := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	return string(out)
}

// split parses one line with the CSV grammar.  When the grammar rejects it,
// the line is cut on commas into at most max fields (max < 0: unbounded),
// the last field keeping the remainder.
func (t *Table) split(line string, max int) []string {
	cr := csv.NewReader(strings.NewReader(line))
	cr.FieldsPerRecord = -1
	fields, err := cr.Read()
	if err != nil {
		t.stats.SplitFallbacks++
		fields = strings.SplitN(line, ",", max)
	}
	for i := range fields {
		fields[i] = cleanCell(fields[i])
	}
	return fields
}

func normalizeHeader(s string) string {
	return strings.ToLower(cleanCell(s))
}

// cleanCell trims, drops NULs and composes to NFC.
func cleanCell(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return norm.NFC.String(strings.TrimSpace(s))
}

//Personal.AI order the ending
