package molecule

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// DefaultFingerprintBits is the fixed vector length used unless configured.
const DefaultFingerprintBits = 2048

// DefaultMorganRadius is the circular environment radius (ECFP4).
const DefaultMorganRadius = 2

// Fingerprint is a fixed-length bit vector.  It is never mutated after the
// codec returns it, so it may be shared between goroutines.
type Fingerprint struct {
	bits   *bitset.BitSet
	length uint
}

// NewFingerprint returns a zeroed fingerprint of the given length.
func NewFingerprint(length uint) *Fingerprint {
	return &Fingerprint{bits: bitset.New(length), length: length}
}

// FingerprintFromBits builds a fingerprint with the listed positions set.
func FingerprintFromBits(length uint, on ...uint) (*Fingerprint, error) {
	fp := NewFingerprint(length)
	for _, i := range on {
		if i >= length {
			return nil, errors.InvalidParam("bit position out of range").
				WithDetail(fmt.Sprintf("bit=%d length=%d", i, length))
		}
		fp.bits.Set(i)
	}
	return fp, nil
}

// Len returns the vector length in bits.
func (f *Fingerprint) Len() uint { return f.length }

// Count returns the number of set bits.
func (f *Fingerprint) Count() uint { return f.bits.Count() }

// Test reports whether bit i is set.
func (f *Fingerprint) Test(i uint) bool { return f.bits.Test(i) }

// OnBits returns the set positions in ascending order.
func (f *Fingerprint) OnBits() []uint {
	out := make([]uint, 0, f.bits.Count())
	for i, ok := f.bits.NextSet(0); ok; i, ok = f.bits.NextSet(i + 1) {
		out = append(out, i)
	}
	return out
}

// Equal reports bit-for-bit equality including length.
func (f *Fingerprint) Equal(o *Fingerprint) bool {
	if f == nil || o == nil {
		return f == o
	}
	return f.length == o.length && f.bits.Equal(o.bits)
}

// ─────────────────────────────────────────────────────────────────────────────
// Codec
// ─────────────────────────────────────────────────────────────────────────────

// CodecOptions configure the Morgan codec.
type CodecOptions struct {
	NumBits int `mapstructure:"bits" yaml:"bits"`
	Radius  int `mapstructure:"radius" yaml:"radius"`
}

// Encoder turns a structural encoding into a fingerprint.
type Encoder interface {
	Encode(encoding string) (*Fingerprint, error)
	NumBits() uint
}

// Codec computes Morgan (ECFP-style) circular fingerprints folded into a
// fixed number of bits.  It holds no mutable state.
type Codec struct {
	numBits uint
	radius  int
}

// NewCodec validates opts.  A codec that cannot be built is fatal to a run,
// so the error carries ErrCodeCodecUnavailable.
func NewCodec(opts CodecOptions) (*Codec, error) {
	if opts.NumBits <= 0 {
		return nil, errors.New(errors.ErrCodeCodecUnavailable, "fingerprint length must be positive").
			WithDetail(fmt.Sprintf("bits=%d", opts.NumBits))
	}
	if opts.Radius < 0 {
		return nil, errors.New(errors.ErrCodeCodecUnavailable, "morgan radius must not be negative").
			WithDetail(fmt.Sprintf("radius=%d", opts.Radius))
	}
	return &Codec{numBits: uint(opts.NumBits), radius: opts.Radius}, nil
}

// DefaultCodec returns a 2048-bit radius-2 codec.
func DefaultCodec() *Codec {
	return &Codec{numBits: DefaultFingerprintBits, radius: DefaultMorganRadius}
}

// NumBits returns the configured vector length.
func (c *Codec) NumBits() uint { return c.numBits }

// Radius returns the configured environment radius.
func (c *Codec) Radius() int { return c.radius }

// Encode parses smiles and returns its fingerprint.  Malformed or empty input
// returns ErrCodeInvalidEncoding and no vector.
func (c *Codec) Encode(smiles string) (*Fingerprint, error) {
	mol, err := ParseSMILES(smiles)
	if err != nil {
		return nil, err
	}
	return c.EncodeMolecule(mol), nil
}

// EncodeMolecule fingerprints an already parsed graph.
func (c *Codec) EncodeMolecule(mol *Molecule) *Fingerprint {
	fp := NewFingerprint(c.numBits)
	n := len(mol.Atoms)
	if n == 0 {
		return fp
	}

	ids := atomInvariants(mol)
	for _, id := range ids {
		fp.bits.Set(uint(id % uint64(c.numBits)))
	}

	next := make([]uint64, n)
	var buf []byte
	type env struct {
		order BondOrder
		id    uint64
	}
	for r := 1; r <= c.radius; r++ {
		for a := 0; a < n; a++ {
			nbrs, orders := mol.Neighbors(a)
			envs := make([]env, len(nbrs))
			for k, nb := range nbrs {
				envs[k] = env{order: orders[k], id: ids[nb]}
			}
			sort.Slice(envs, func(i, j int) bool {
				if envs[i].order != envs[j].order {
					return envs[i].order < envs[j].order
				}
				return envs[i].id < envs[j].id
			})

			buf = buf[:0]
			buf = binary.LittleEndian.AppendUint64(buf, uint64(r))
			buf = binary.LittleEndian.AppendUint64(buf, ids[a])
			for _, e := range envs {
				buf = binary.LittleEndian.AppendUint64(buf, uint64(e.order))
				buf = binary.LittleEndian.AppendUint64(buf, e.id)
			}
			next[a] = xxhash.Sum64(buf)
			fp.bits.Set(uint(next[a] % uint64(c.numBits)))
		}
		ids, next = next, ids
	}
	return fp
}

// atomInvariants hashes the connectivity invariants of every atom: atomic
// number, heavy degree, total hydrogens, formal charge, isotope, ring
// membership and aromaticity.
func atomInvariants(mol *Molecule) []uint64 {
	inRing := mol.RingAtoms()
	out := make([]uint64, len(mol.Atoms))
	buf := make([]byte, 0, 8*7)
	for i, a := range mol.Atoms {
		buf = buf[:0]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(a.AtomicNumber))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(mol.Degree(i)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(mol.TotalHydrogens(i)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(a.Charge)))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(a.Isotope))
		buf = binary.LittleEndian.AppendUint64(buf, boolWord(inRing[i]))
		buf = binary.LittleEndian.AppendUint64(buf, boolWord(a.Aromatic))
		out[i] = xxhash.Sum64(buf)
	}
	return out
}

func boolWord(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

//Personal.AI order the ending
