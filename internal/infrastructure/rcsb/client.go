// Package rcsb talks to the RCSB PDB data API.  The GraphQL client is the
// batch annotation source and the REST client is the per-entry fallback;
// both only extract organism names and leave classification to the caller.
package rcsb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/turtacn/ligandscreen/pkg/errors"
)

const (
	DefaultGraphQLURL = "https://data.rcsb.org/graphql"
	DefaultRESTURL    = "https://data.rcsb.org/rest/v1/core/entry"
	defaultUserAgent  = "ligandscreen/1.0"

	// maxBodyBytes bounds a single response.  A 100-entry GraphQL answer is
	// well under a megabyte.
	maxBodyBytes = 16 << 20
)

// Config locates the two endpoints.
type Config struct {
	GraphQLURL string `mapstructure:"graphql_url"`
	RESTURL    string `mapstructure:"rest_url"`
	UserAgent  string `mapstructure:"user_agent"`
}

func (c *Config) applyDefaults() {
	if c.GraphQLURL == "" {
		c.GraphQLURL = DefaultGraphQLURL
	}
	if c.RESTURL == "" {
		c.RESTURL = DefaultRESTURL
	}
	c.RESTURL = strings.TrimSuffix(c.RESTURL, "/")
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// transport is shared by both clients.  Per-call deadlines come from the
// context; the http.Client timeout is only a backstop.
type transport struct {
	http      *http.Client
	userAgent string
}

func newTransport(hc *http.Client, userAgent string) transport {
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return transport{http: hc, userAgent: userAgent}
}

// do sends req and returns the parsed JSON body of a 2xx response.
func (t transport) do(ctx context.Context, req *http.Request) (gjson.Result, error) {
	req = req.WithContext(ctx)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.http.Do(req)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, errors.ErrCodeTransport, "request failed").WithDetail(req.URL.String())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, errors.ErrCodeTransport, "read response body").WithDetail(req.URL.String())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, errors.New(errors.ErrCodeTransport, "unexpected status").
			WithDetail(fmt.Sprintf("%s: HTTP %d", req.URL.String(), resp.StatusCode))
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New(errors.ErrCodeMalformedPayload, "response is not valid JSON").WithDetail(req.URL.String())
	}
	return gjson.ParseBytes(body), nil
}

// appendStrings appends every non-blank string value in r, which may be a
// scalar or an array.
func appendStrings(dst []string, r gjson.Result) []string {
	r.ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				dst = append(dst, s)
			}
		}
		return true
	})
	return dst
}

//Personal.AI order the ending
