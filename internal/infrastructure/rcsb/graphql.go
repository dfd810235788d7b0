package rcsb

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/turtacn/ligandscreen/internal/domain/annotation"
	"github.com/turtacn/ligandscreen/pkg/errors"
)

const entriesQuery = `query ($ids: [String!]!) {
  entries(entry_ids: $ids) {
    rcsb_id
    polymer_entities {
      rcsb_entity_source_organism { scientific_name }
      entity_src_gen { pdbx_gene_src_scientific_name }
      entity_src_nat { pdbx_organism_scientific }
    }
  }
}`

// GraphQLClient resolves organism names for many entries in one request.
type GraphQLClient struct {
	url string
	t   transport
}

// NewGraphQLClient returns a client for cfg.GraphQLURL.  hc may be nil.
func NewGraphQLClient(cfg Config, hc *http.Client) *GraphQLClient {
	cfg.applyDefaults()
	return &GraphQLClient{url: cfg.GraphQLURL, t: newTransport(hc, cfg.UserAgent)}
}

var _ annotation.BatchLookup = (*GraphQLClient)(nil)

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// LookupBatch implements annotation.BatchLookup.  The returned map is keyed
// by the identifiers as requested, whatever case the service answers in.
// Entries the service does not return are absent.  A response without a
// data object is an error even when the HTTP status is 200.
func (c *GraphQLClient) LookupBatch(ctx context.Context, ids []string) (map[string][]string, error) {
	out := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	byUpper := make(map[string]string, len(ids))
	for _, id := range ids {
		byUpper[strings.ToUpper(id)] = id
	}

	payload, err := json.Marshal(graphQLRequest{Query: entriesQuery, Variables: map[string]any{"ids": ids}})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encode graphql request")
	}
	req, err := http.NewRequest(http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTransport, "build graphql request")
	}
	req.Header.Set("Content-Type", "application/json")

	doc, err := c.t.do(ctx, req)
	if err != nil {
		return nil, err
	}
	data := doc.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		msg := doc.Get("errors.0.message").String()
		if msg == "" {
			msg = "no data object"
		}
		return nil, errors.New(errors.ErrCodeMalformedPayload, "graphql response carries no data").WithDetail(msg)
	}

	data.Get("entries").ForEach(func(_, entry gjson.Result) bool {
		rid := entry.Get("rcsb_id").String()
		id, ok := byUpper[strings.ToUpper(rid)]
		if !ok {
			return true
		}
		out[id] = append(out[id], entryOrganisms(entry)...)
		return true
	})
	return out, nil
}

// entryOrganisms collects the organism names of every polymer entity, from
// the three places the schema records them.
func entryOrganisms(entry gjson.Result) []string {
	var names []string
	entry.Get("polymer_entities").ForEach(func(_, poly gjson.Result) bool {
		names = appendStrings(names, poly.Get("rcsb_entity_source_organism.#.scientific_name"))
		names = appendStrings(names, poly.Get("entity_src_gen.#.pdbx_gene_src_scientific_name"))
		names = appendStrings(names, poly.Get("entity_src_nat.#.pdbx_organism_scientific"))
		return true
	})
	return names
}

//Personal.AI order the ending
