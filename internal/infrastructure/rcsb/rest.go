package rcsb

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

// titleRules are tried in order; the first whole-word hit wins.
var titleRules = []struct {
	re       *regexp.Regexp
	organism string
}{
	{regexp.MustCompile(`\b(human|homo sapiens)\b`), "Homo sapiens"},
	{regexp.MustCompile(`\b(mouse|mus musculus)\b`), "Mus musculus"},
	{regexp.MustCompile(`\b(rat|rattus)\b`), "Rattus norvegicus"},
}

// RESTClient fetches one entry at a time and infers organisms from the
// entry summary.
type RESTClient struct {
	base string
	t    transport
}

// NewRESTClient returns a client for cfg.RESTURL.  hc may be nil.
func NewRESTClient(cfg Config, hc *http.Client) *RESTClient {
	cfg.applyDefaults()
	return &RESTClient{base: cfg.RESTURL, t: newTransport(hc, cfg.UserAgent)}
}

var _ annotation.EntryLookup = (*RESTClient)(nil)

// LookupEntry implements annotation.EntryLookup.
func (c *RESTClient) LookupEntry(ctx context.Context, id string) ([]string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.InvalidParam("empty entry identifier")
	}
	req, err := http.NewRequest(http.MethodGet, c.base+"/"+url.PathEscape(strings.ToUpper(id)), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransport, "build entry request")
	}
	doc, err := c.t.do(ctx, req)
	if err != nil {
		return nil, err
	}

	var names []string
	if doc.Get("rcsb_entry_info.polymer_entity_count_protein").Exists() {
		names = append(names, annotation.ProteinStructureMarker)
	}
	if org := OrganismFromTitle(doc.Get("struct.title").String()); org != "" {
		names = append(names, org)
	}
	return names, nil
}

// OrganismFromTitle maps a structure title to at most one target organism.
// Matching is on whole words, so "humanized" or "separation" no longer count
// as human or rat the way a plain substring search would.
func OrganismFromTitle(title string) string {
	title = strings.ToLower(title)
	for _, r := range titleRules {
		if r.re.MatchString(title) {
			return r.organism
		}
	}
	return ""
}

//Personal.AI order the ending
