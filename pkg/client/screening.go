package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/turtacn/ligandscreen/pkg/errors"
	"github.com/turtacn/ligandscreen/pkg/types/common"
	"github.com/turtacn/ligandscreen/pkg/types/screening"
)

// Screen screens a batch of queries.  Results come back in request order.
func (c *Client) Screen(ctx context.Context, queries []screening.Query) (*screening.ScreenResponse, error) {
	body := screening.ScreenRequest{Queries: queries}
	if err := body.Validate(0); err != nil {
		return nil, err
	}
	var out screening.ScreenResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: APIPrefix + "/screen", body: body, out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScreenOne screens a single query through the GET endpoint.
func (c *Client) ScreenOne(ctx context.Context, q screening.Query) (*screening.Result, error) {
	if q.SMILES == "" {
		return nil, errors.InvalidParam("client: smiles is required")
	}
	params := url.Values{"smiles": {q.SMILES}}
	for k, v := range map[string]string{"name": q.Name, "source": q.Source, "category": q.Category} {
		if v != "" {
			params.Set(k, v)
		}
	}
	var out screening.ScreenResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: APIPrefix + "/screen", query: params, out: &out}); err != nil {
		return nil, err
	}
	if len(out.Results) != 1 {
		return nil, errors.Newf(errors.ErrCodeInternal, "client: expected 1 result, got %d", len(out.Results))
	}
	return &out.Results[0], nil
}

// Corpus describes the corpus the server loaded.
func (c *Client) Corpus(ctx context.Context) (*screening.CorpusResponse, error) {
	var out screening.CorpusResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: APIPrefix + "/corpus", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats returns the server's cumulative counters.
func (c *Client) Stats(ctx context.Context) (*screening.StatsResponse, error) {
	var out screening.StatsResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: APIPrefix + "/stats", out: &out}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health queries /readyz once.  An unready server yields an *APIError with
// status 503.
func (c *Client) Health(ctx context.Context) (*common.HealthResponse, error) {
	var out common.HealthResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/readyz", out: &out, noRetry: true}); err != nil {
		return nil, err
	}
	return &out, nil
}

//Personal.AI order the ending
