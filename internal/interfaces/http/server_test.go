package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	mux := http.NewServeMux()
	server := NewServer(ServerConfig{Addr: ":8080", ReadTimeout: time.Second}, mux, nil)

	require.NotNil(t, server)
	assert.Equal(t, ":8080", server.httpServer.Addr)
	assert.Equal(t, time.Second, server.httpServer.ReadTimeout)
	assert.Equal(t, 60*time.Second, server.httpServer.IdleTimeout)
	assert.Equal(t, http.Handler(mux), server.Handler())
}

func TestServer_StartAndShutdown(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "pong") })
	server := NewServer(ServerConfig{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, mux, nil)

	addr, err := server.Listen()
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- server.Start() }()

	resp, err := http.Get(fmt.Sprintf("http://%s/ping", addr))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	require.NoError(t, server.Shutdown(context.Background()))
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	server := NewServer(ServerConfig{Addr: "127.0.0.1:0"}, http.NewServeMux(), nil)
	_, err := server.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}

//Personal.AI order the ending
