package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	custom := &http.Client{Timeout: time.Minute}
	logger := &testLogger{}
	c, err := NewClient("http://localhost:8080",
		WithHTTPClient(custom),
		WithLogger(logger),
		WithRetryMax(5),
		WithRetryWait(10*time.Millisecond, 20*time.Millisecond),
		WithUserAgent("screen-bot/1"),
	)
	assert.NoError(t, err)
	assert.Same(t, custom, c.httpClient)
	assert.Equal(t, logger, c.logger)
	assert.Equal(t, 5, c.retryMax)
	assert.Equal(t, 10*time.Millisecond, c.retryWaitMin)
	assert.Equal(t, 20*time.Millisecond, c.retryWaitMax)
	assert.Equal(t, "screen-bot/1", c.userAgent)
}

func TestOptions_IgnoreInvalidValues(t *testing.T) {
	c, err := NewClient("http://localhost:8080",
		WithHTTPClient(nil),
		WithLogger(nil),
		WithRetryMax(-1),
		WithRetryWait(time.Second, time.Millisecond),
		WithUserAgent(""),
	)
	assert.NoError(t, err)
	assert.NotNil(t, c.httpClient)
	assert.Equal(t, noopLogger{}, c.logger)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 5*time.Second, c.retryWaitMax, "max below min is ignored")
	assert.Contains(t, c.userAgent, "ligandscreen-go-sdk/")
}

//Personal.AI order the ending
