package molecule

import (
	"strings"
)

// QueryInput is one raw row of the query table.
type QueryInput struct {
	Source   string `json:"source"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Encoding string `json:"smiles"`
	// Line is the 1-based input line, zero when not read from a file.
	Line int `json:"-"`
}

// QueryCompound is a query row with its fingerprint.  Read-only after
// construction.
type QueryCompound struct {
	Source      string
	Name        string
	Category    string
	Encoding    string
	Fingerprint *Fingerprint
}

// NewQueryCompound fingerprints in with enc.  The error is the encoder's
// InvalidEncoding error.
func NewQueryCompound(enc Encoder, in QueryInput) (*QueryCompound, error) {
	encoding := strings.TrimSpace(in.Encoding)
	fp, err := enc.Encode(encoding)
	if err != nil {
		return nil, err
	}
	return &QueryCompound{
		Source:      strings.TrimSpace(in.Source),
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Encoding:    encoding,
		Fingerprint: fp,
	}, nil
}

//Personal.AI order the ending
