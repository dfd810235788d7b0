package molecule

import (
	"fmt"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

// Metric scores two fingerprints in [0,1].  Implementations never fail: a
// pair that cannot be compared scores 0 so one bad pair cannot stall a scan.
type Metric interface {
	Similarity(a, b *Fingerprint) float64
	Name() string
}

// Tanimoto returns |A∩B| / |A∪B| over the set bits of a and b.  Two empty
// vectors score 0.  Vectors of different length cannot be compared.
func Tanimoto(a, b *Fingerprint) (float64, error) {
	if a == nil || b == nil {
		return 0, errors.InvalidParam("nil fingerprint")
	}
	if a.length != b.length {
		return 0, errors.New(errors.ErrCodeFingerprintLengthMismatch, "fingerprint lengths differ").
			WithDetail(fmt.Sprintf("%d != %d", a.length, b.length))
	}
	union := a.bits.UnionCardinality(b.bits)
	if union == 0 {
		return 0, nil
	}
	inter := a.bits.IntersectionCardinality(b.bits)
	return float64(inter) / float64(union), nil
}

// TanimotoMetric is the Metric used by the search engine.
type TanimotoMetric struct{}

// Similarity maps any comparison error to 0.
func (TanimotoMetric) Similarity(a, b *Fingerprint) float64 {
	s, err := Tanimoto(a, b)
	if err != nil {
		return 0
	}
	return s
}

// Name implements Metric.
func (TanimotoMetric) Name() string { return "tanimoto" }

//Personal.AI order the ending
