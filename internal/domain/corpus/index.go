package corpus

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/turtacn/ligandscreen/internal/domain/molecule"
	"github.com/turtacn/ligandscreen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

const (
	defaultChunkSize     = 1024
	defaultProgressEvery = 25000
)

// Stats are the aggregate counts of a corpus load.
type Stats struct {
	Seen    int `json:"seen"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
}

// BuildOptions tune Build.  Zero values select defaults.
type BuildOptions struct {
	// MaxRecords stops reading after this many rows; 0 means no limit.
	MaxRecords int
	// Workers fingerprints rows in parallel.  Record order is unaffected.
	Workers int
	// ChunkSize is the number of rows read before each parallel step.
	ChunkSize int
	// ProgressEvery logs progress after this many rows.
	ProgressEvery int
	// OnProgress, when set, is called at each progress step.
	OnProgress func(Stats)
	Logger     logging.Logger
}

func (o *BuildOptions) normalize() {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = defaultProgressEvery
	}
	if o.Logger == nil {
		o.Logger = logging.NewNopLogger()
	}
}

// Index is the immutable in-memory set of valid reference records in source
// order.
type Index struct {
	records []*Record
	stats   Stats
	numBits uint
	source  string
}

// Build fingerprints every row of src with enc.  Rows whose encoding is
// invalid are counted and dropped.  A source that fails or yields no rows at
// all is a CorpusLoadFailure; a corpus whose rows are all invalid is not.
func Build(ctx context.Context, src Source, enc molecule.Encoder, opts BuildOptions) (*Index, error) {
	opts.normalize()
	log := opts.Logger.With(logging.String("source", src.Name()))

	ix := &Index{numBits: enc.NumBits(), source: src.Name()}
	raws := make([]RawRecord, 0, opts.ChunkSize)
	fps := make([]*molecule.Fingerprint, opts.ChunkSize)
	nextProgress := opts.ProgressEvery
	done := false

	for !done {
		raws = raws[:0]
		for len(raws) < opts.ChunkSize {
			if opts.MaxRecords > 0 && ix.stats.Seen+len(raws) >= opts.MaxRecords {
				done = true
				break
			}
			raw, err := src.Next(ctx)
			if stderrors.Is(err, io.EOF) {
				done = true
				break
			}
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeCorpusLoadFailure, "read corpus").
					WithDetail(fmt.Sprintf("%s after %d records", src.Name(), ix.stats.Seen+len(raws)))
			}
			raws = append(raws, raw)
		}
		if len(raws) == 0 {
			break
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for i := range raws {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				fp, err := enc.Encode(raws[i].Encoding)
				if err != nil {
					fps[i] = nil
					return nil
				}
				fps[i] = fp
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeCorpusLoadFailure, "corpus load interrupted").WithDetail(src.Name())
		}

		for i, raw := range raws {
			pos := ix.stats.Seen
			ix.stats.Seen++
			if fps[i] == nil {
				ix.stats.Invalid++
				continue
			}
			ix.records = append(ix.records, newRecord(pos, raw, fps[i]))
			ix.stats.Valid++
			fps[i] = nil
		}

		for ix.stats.Seen >= nextProgress {
			log.Info("corpus load progress",
				logging.Int("seen", ix.stats.Seen),
				logging.Int("valid", ix.stats.Valid),
				logging.Int("invalid", ix.stats.Invalid))
			if opts.OnProgress != nil {
				opts.OnProgress(ix.stats)
			}
			nextProgress += opts.ProgressEvery
		}
	}

	if ix.stats.Seen == 0 {
		return nil, errors.New(errors.ErrCodeCorpusLoadFailure, "corpus source produced no records").WithDetail(src.Name())
	}
	log.Info("corpus loaded",
		logging.Int("seen", ix.stats.Seen),
		logging.Int("valid", ix.stats.Valid),
		logging.Int("invalid", ix.stats.Invalid))
	return ix, nil
}

// FromRecords assembles an index from already fingerprinted records, e.g. in
// tests or when the corpus is held elsewhere.  Every fingerprint must have
// numBits bits.
func FromRecords(numBits uint, records []*Record) (*Index, error) {
	ix := &Index{numBits: numBits, source: "memory"}
	for i, r := range records {
		if r == nil || r.Fingerprint == nil {
			ix.stats.Seen++
			ix.stats.Invalid++
			continue
		}
		if r.Fingerprint.Len() != numBits {
			return nil, errors.New(errors.ErrCodeFingerprintLengthMismatch, "record fingerprint length differs from index").
				WithDetail(fmt.Sprintf("record %d: %d != %d", i, r.Fingerprint.Len(), numBits))
		}
		ix.stats.Seen++
		ix.stats.Valid++
		ix.records = append(ix.records, r)
	}
	return ix, nil
}

// Records returns the valid records in source order.  Callers must not modify
// the slice.
func (ix *Index) Records() []*Record { return ix.records }

// Len returns the number of valid records.
func (ix *Index) Len() int { return len(ix.records) }

// Stats returns the load counts.
func (ix *Index) Stats() Stats { return ix.stats }

// FingerprintBits is the vector length shared by every record.
func (ix *Index) FingerprintBits() uint { return ix.numBits }

// Source names where the records came from.
func (ix *Index) Source() string { return ix.source }

// Shards splits the records into at most n contiguous, order-preserving
// slices of near-equal size.
func (ix *Index) Shards(n int) [][]*Record {
	total := len(ix.records)
	if total == 0 {
		return nil
	}
	if n <= 1 {
		return [][]*Record{ix.records}
	}
	if n > total {
		n = total
	}
	out := make([][]*Record, 0, n)
	size := total / n
	rem := total % n
	start := 0
	for i := 0; i < n; i++ {
		end := start + size
		if i < rem {
			end++
		}
		out = append(out, ix.records[start:end])
		start = end
	}
	return out
}

//Personal.AI order the ending
