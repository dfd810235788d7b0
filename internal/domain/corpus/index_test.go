package corpus

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

type failingSource struct {
	rows []RawRecord
	err  error
	n    int
}

func (f *failingSource) Next(context.Context) (RawRecord, error) {
	if f.n < len(f.rows) {
		f.n++
		return f.rows[f.n-1], nil
	}
	return RawRecord{}, f.err
}

func (f *failingSource) Name() string { return "broken.csv" }

func sampleRows() []RawRecord {
	return []RawRecord{
		{Identifier: "1ABC", Encoding: "CCO", Name: "ethanol", Weight: "46.07", Status: "ok"},
		{Identifier: "2XYZ", Encoding: "C1CC", Name: "broken ring"},
		{Identifier: "1ABC", Encoding: "c1ccccc1", Name: "benzene", Weight: "n/a"},
		{Identifier: "3DEF", Encoding: "", Name: "empty"},
		{Identifier: "4GHI", Encoding: "CC(=O)O", Name: "acetic acid", Weight: "60.05"},
	}
}

func TestBuild_CountsAndOrder(t *testing.T) {
	for _, workers := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			src := NewSliceSource("mem", sampleRows())
			ix, err := Build(context.Background(), src, molecule.DefaultCodec(), BuildOptions{Workers: workers, ChunkSize: 2})
			require.NoError(t, err)

			assert.Equal(t, Stats{Seen: 5, Valid: 3, Invalid: 2}, ix.Stats())
			require.Equal(t, 3, ix.Len())

			recs := ix.Records()
			assert.Equal(t, []int{0, 2, 4}, []int{recs[0].Position, recs[1].Position, recs[2].Position})
			assert.Equal(t, "1ABC", recs[0].Identifier)
			assert.Equal(t, "1ABC", recs[1].Identifier, "duplicate identifiers are kept")
			assert.InDelta(t, 46.07, recs[0].MolecularWeight, 1e-9)
			assert.True(t, recs[0].HasWeight)
			assert.False(t, recs[1].HasWeight)
			assert.Equal(t, uint(molecule.DefaultFingerprintBits), ix.FingerprintBits())
			assert.Equal(t, "mem", ix.Source())
		})
	}
}

func TestBuild_MaxRecords(t *testing.T) {
	ix, err := Build(context.Background(), NewSliceSource("mem", sampleRows()), molecule.DefaultCodec(), BuildOptions{MaxRecords: 2})
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 2, Valid: 1, Invalid: 1}, ix.Stats())
}

func TestBuild_Progress(t *testing.T) {
	rows := make([]RawRecord, 10)
	for i := range rows {
		rows[i] = RawRecord{Identifier: fmt.Sprintf("ID%d", i), Encoding: "CC"}
	}
	var seen []int
	_, err := Build(context.Background(), NewSliceSource("mem", rows), molecule.DefaultCodec(), BuildOptions{
		ChunkSize: 3, ProgressEvery: 4,
		OnProgress: func(s Stats) { seen = append(seen, s.Seen) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{6, 9}, seen)
}

func TestBuild_AllInvalidIsNotFatal(t *testing.T) {
	rows := []RawRecord{{Identifier: "X", Encoding: "(("}, {Identifier: "Y", Encoding: ""}}
	ix, err := Build(context.Background(), NewSliceSource("mem", rows), molecule.DefaultCodec(), BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 2, ix.Stats().Invalid)
	assert.Nil(t, ix.Shards(4))
}

func TestBuild_EmptySourceIsFatal(t *testing.T) {
	_, err := Build(context.Background(), NewSliceSource("empty.csv", nil), molecule.DefaultCodec(), BuildOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusLoadFailure))
	assert.Contains(t, err.Error(), "empty.csv")
}

func TestBuild_SourceErrorIsFatal(t *testing.T) {
	src := &failingSource{rows: sampleRows()[:1], err: stderrors.New("disk gone")}
	_, err := Build(context.Background(), src, molecule.DefaultCodec(), BuildOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeCorpusLoadFailure))
	assert.Contains(t, err.Error(), "broken.csv")
	assert.Contains(t, err.Error(), "disk gone")
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Build(ctx, NewSliceSource("mem", sampleRows()), molecule.DefaultCodec(), BuildOptions{})
	assert.Error(t, err)
}

func TestFromRecords(t *testing.T) {
	fp, _ := molecule.FingerprintFromBits(16, 1)
	short, _ := molecule.FingerprintFromBits(8, 1)

	ix, err := FromRecords(16, []*Record{{Identifier: "A", Fingerprint: fp}, {Identifier: "B"}})
	require.NoError(t, err)
	assert.Equal(t, Stats{Seen: 2, Valid: 1, Invalid: 1}, ix.Stats())

	_, err = FromRecords(16, []*Record{{Identifier: "A", Fingerprint: short}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeFingerprintLengthMismatch))
}

func TestShards_PreserveOrderAndCoverage(t *testing.T) {
	fp, _ := molecule.FingerprintFromBits(8, 1)
	recs := make([]*Record, 10)
	for i := range recs {
		recs[i] = &Record{Position: i, Fingerprint: fp}
	}
	ix, err := FromRecords(8, recs)
	require.NoError(t, err)

	for _, n := range []int{1, 3, 4, 10, 25} {
		shards := ix.Shards(n)
		var positions []int
		for _, s := range shards {
			require.NotEmpty(t, s)
			for _, r := range s {
				positions = append(positions, r.Position)
			}
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, positions, "n=%d", n)
		assert.LessOrEqual(t, len(shards), n)
	}
}
