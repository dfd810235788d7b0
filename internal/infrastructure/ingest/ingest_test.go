package ingest

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscreen/internal/domain/corpus"
	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

func writeFile(t *testing.T, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "table.csv")
	require.NoError(t, os.WriteFile(p, content, 0o600))
	return p
}

func drainCorpus(t *testing.T, s *CorpusSource) []corpus.RawRecord {
	t.Helper()
	var out []corpus.RawRecord
	for {
		r, err := s.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, r)
	}
}

func TestTable_HeaderBOMAndCase(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("\n pdb_id ,SMILES,Ligand_Name\r\n1ABC,CCO,ethanol\r\n")...)
	tbl, err := NewTable("mem", bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, []string{"pdb_id", "SMILES", "Ligand_Name"}, tbl.Header())
	assert.Equal(t, 0, tbl.Column("PDB_ID"))
	assert.Equal(t, 2, tbl.Column("missing", "ligand_name"))
	assert.Equal(t, -1, tbl.Column("Status"))

	row, err := tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"1ABC", "CCO", "ethanol"}, row.Fields)
	assert.Equal(t, 3, row.Line)
	_, err = tbl.Next()
	assert.Equal(t, io.EOF, err)
}

func TestTable_EmptyInput(t *testing.T) {
	_, err := NewTable("mem", strings.NewReader("\n\n"))
	assert.Error(t, err)
}

func TestTable_CharsetFallback(t *testing.T) {
	// 0xE9 is e-acute in Windows-1252 and never valid UTF-8 on its own.
	data := []byte("PDB_ID,SMILES,Ligand_Name\n1ABC,CCO,caf\xe9ine\n2DEF,CC,plain\n")
	tbl, err := NewTable("mem", bytes.NewReader(data))
	require.NoError(t, err)

	row, err := tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, "caféine", row.Get(2))
	row, err = tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, "plain", row.Get(2))
	assert.Equal(t, 1, tbl.Stats().CharsetFallbacks)
}

func TestTable_SplitFallback(t *testing.T) {
	data := "PDB_ID,SMILES,Ligand_Name\n" +
		`1ABC,C"C,bare quote` + "\n" +
		`2DEF,"CCO,unterminated,extra,cells` + "\n" +
		`3GHI,"C,C",quoted` + "\n"
	tbl, err := NewTable("mem", strings.NewReader(data))
	require.NoError(t, err)

	row, err := tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"1ABC", `C"C`, "bare quote"}, row.Fields)

	row, err = tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"2DEF", `"CCO`, "unterminated,extra,cells"}, row.Fields)

	row, err = tbl.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"3GHI", "C,C", "quoted"}, row.Fields)

	st := tbl.Stats()
	assert.Equal(t, 2, st.SplitFallbacks)
	assert.Equal(t, 3, st.Rows)
}

func TestCorpusSource_MapsColumns(t *testing.T) {
	p := writeFile(t, []byte("Status,SMILES,PDB_ID,Molecular_Weight,Ligand_Name\n"+
		"released,c1ccccc1,1BEN,78.11,benzene\n"+
		"\n"+
		"obsolete,CCO,2ETH,,\n"))
	src, err := OpenCorpus(p, CorpusColumns{})
	require.NoError(t, err)
	defer src.Close()

	recs := drainCorpus(t, src)
	require.Len(t, recs, 2)
	assert.Equal(t, corpus.RawRecord{Identifier: "1BEN", Encoding: "c1ccccc1", Name: "benzene", Weight: "78.11", Status: "released", Line: 2}, recs[0])
	assert.Equal(t, "2ETH", recs[1].Identifier)
	assert.Equal(t, 4, recs[1].Line)
	assert.Equal(t, p, src.Name())
	assert.Equal(t, 1, src.Stats().SkippedBlank)
}

func TestCorpusSource_ColumnOverride(t *testing.T) {
	p := writeFile(t, []byte("code,structure\nX1,CCN\n"))
	_, err := OpenCorpus(p, CorpusColumns{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusLoadFailure))

	src, err := OpenCorpus(p, CorpusColumns{Identifier: "code", Encoding: "Structure"})
	require.NoError(t, err)
	defer src.Close()
	recs := drainCorpus(t, src)
	require.Len(t, recs, 1)
	assert.Equal(t, "CCN", recs[0].Encoding)
}

func TestOpenCorpus_MissingFile(t *testing.T) {
	_, err := OpenCorpus(filepath.Join(t.TempDir(), "nope.csv"), CorpusColumns{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusLoadFailure))
	assert.True(t, errors.IsFatal(errors.GetCode(err)))
}

func TestCorpusSource_FeedsIndexBuild(t *testing.T) {
	p := writeFile(t, []byte("PDB_ID,SMILES\n1BEN,c1ccccc1\n2BAD,C1CC\n3ETH,CCO\n"))
	src, err := OpenCorpus(p, CorpusColumns{})
	require.NoError(t, err)
	defer src.Close()

	ix, err := corpus.Build(context.Background(), src, molecule.DefaultCodec(), corpus.BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, corpus.Stats{Seen: 3, Valid: 2, Invalid: 1}, ix.Stats())
}

func TestQuerySource(t *testing.T) {
	p := writeFile(t, []byte("Plant,Chemical Name,Molecular Structure,Molecule Category\n"+
		"Willow,Salicylic acid,OC(=O)c1ccccc1O,phenolic\n"+
		"Coffee,Caffeine,Cn1cnc2c1c(=O)n(C)c(=O)n2C\n"))
	src, err := OpenQueries(p, QueryColumns{})
	require.NoError(t, err)
	defer src.Close()
	ctx := context.Background()

	q, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, molecule.QueryInput{Source: "Willow", Name: "Salicylic acid", Category: "phenolic", Encoding: "OC(=O)c1ccccc1O", Line: 2}, q)

	q, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", q.Category, "short rows yield empty trailing fields")

	_, err = src.Next(ctx)
	assert.Equal(t, io.EOF, err)
}

func TestOpenQueries_MissingStructureColumn(t *testing.T) {
	p := writeFile(t, []byte("Plant,Chemical Name\nWillow,Salicin\n"))
	_, err := OpenQueries(p, QueryColumns{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeQueryLoadFailure))
}

//Personal.AI order the ending
