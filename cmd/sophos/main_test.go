package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "✅ Sophos está rodando", string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := httptest.NewServer(newMux())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	missing, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestServeDrainsBotWhenServerFails(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:-1", Handler: newMux()}
	drained := false
	runBot := func(ctx context.Context) error {
		<-ctx.Done()
		drained = true
		return nil
	}

	err := serve(context.Background(), server, runBot)
	require.Error(t, err)
	require.True(t, drained)
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	server := &http.Server{Addr: "127.0.0.1:0", Handler: newMux()}
	started := make(chan struct{})
	runBot := func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- serve(ctx, server, runBot) }()
	<-started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReturnsBotError(t *testing.T) {
	server := &http.Server{Addr: "127.0.0.1:0", Handler: newMux()}
	err := serve(context.Background(), server, func(context.Context) error {
		return errors.New("telegram unavailable")
	})
	require.EqualError(t, err, "telegram unavailable")
}
