// Package client is the Go SDK for the ligandscreen HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/turtacn/ligandscreen/pkg/errors"
	"github.com/turtacn/ligandscreen/pkg/types/common"
)

const Version = "0.1.0"

// APIPrefix is prepended to every screening path.
const APIPrefix = "/api/v1"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is a no-op implementation of Logger
type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// Client talks to a ligandscreen API server.  It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError represents an error response from the API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ligandscreen: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.InvalidParam("client: baseURL is required")
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "client: invalid baseURL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.InvalidParam("client: baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
		userAgent:    fmt.Sprintf("ligandscreen-go-sdk/%s", Version),
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request describes one API call.
type request struct {
	method  string
	path    string
	query   url.Values
	body    interface{}
	out     interface{}
	noRetry bool
}

// retryAfterBackOff lets a server-supplied Retry-After replace the next
// computed interval.
type retryAfterBackOff struct {
	backoff.BackOff
	next time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.BackOff.NextBackOff()
	if d == backoff.Stop {
		return d
	}
	if b.next > 0 {
		d, b.next = b.next, 0
	}
	return d
}

func (c *Client) newBackOff(ctx context.Context, noRetry bool) (backoff.BackOff, *retryAfterBackOff) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryWaitMin
	eb.MaxInterval = c.retryWaitMax
	eb.RandomizationFactor = 0.25
	eb.MaxElapsedTime = 0
	ra := &retryAfterBackOff{BackOff: eb}
	retries := c.retryMax
	if noRetry {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(ra, uint64(retries)), ctx), ra
}

// do performs req, retrying network failures, 429 and 5xx responses.
func (c *Client) do(ctx context.Context, req request) error {
	fullURL := c.baseURL + req.path
	if len(req.query) > 0 {
		fullURL += "?" + req.query.Encode()
	}

	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeBadRequest, "client: marshal request body")
		}
		payload = b
	}

	b, ra := c.newBackOff(ctx, req.noRetry)
	attempt := 0
	op := func() error {
		attempt++
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, fullURL, bodyReader)
		if err != nil {
			return backoff.Permanent(err)
		}
		requestID := uuid.New().String()
		if payload != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("User-Agent", c.userAgent)
		httpReq.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Errorf("%s %s attempt %d: %v", req.method, req.path, attempt, err)
			return err
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}
		c.logger.Debugf("%s %s %d (%v)", req.method, req.path, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 400 {
			apiErr := decodeError(resp.StatusCode, respBody, requestID)
			if !retryable(resp.StatusCode) {
				return backoff.Permanent(apiErr)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
					c.logger.Infof("rate limited, retrying after %d seconds", secs)
					ra.next = time.Duration(secs) * time.Second
				}
			}
			return apiErr
		}

		if req.out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, req.out); err != nil {
				return backoff.Permanent(errors.Wrap(err, errors.ErrCodeInternal, "client: decode response"))
			}
		}
		return nil
	}
	return backoff.Retry(op, b)
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return status == http.StatusInternalServerError
}

// decodeError reads the server's error envelope, falling back to the raw body.
func decodeError(status int, body []byte, requestID string) *APIError {
	apiErr := &APIError{StatusCode: status, RequestID: requestID}
	var env common.ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
		if env.RequestID != "" {
			apiErr.RequestID = env.RequestID
		}
		return apiErr
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}

//Personal.AI order the ending
