package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/chorus/internal/cluster"
)

// TestParseConfigDefaults tests startup with no arguments
func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "node8080", cfg.NodeIdentity().Name)
	assert.Equal(t, 3*time.Second, cfg.PeerTimeout)
	assert.Empty(t, cfg.Peers)
}

// TestParseConfigPositional tests the [port] [name] arguments
func TestParseConfigPositional(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		expectedPort int
		expectedName string
	}{
		{name: "port only", args: []string{"9001"}, expectedPort: 9001, expectedName: "node9001"},
		{name: "port and name", args: []string{"9002", "alpha"}, expectedPort: 9002, expectedName: "alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := parseConfig(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPort, cfg.Port)
			assert.Equal(t, tt.expectedName, cfg.NodeIdentity().Name)
		})
	}
}

// TestParseConfigFlags tests flag overrides
func TestParseConfigFlags(t *testing.T) {
	cfg, err := parseConfig([]string{
		"8081", "node1",
		"--peer", "node1=http://localhost:8081",
		"-p", "node2=http://localhost:8082",
		"--peer", "node3=",
		"--peer-timeout", "750ms",
		"--max-concurrency", "2",
		"--log.level", "debug",
		"--log.format", "json",
	})
	require.NoError(t, err)

	assert.Equal(t, []cluster.PeerAddress{
		{Slot: "node1", Addr: "http://localhost:8081"},
		{Slot: "node2", Addr: "http://localhost:8082"},
		{Slot: "node3"},
	}, cfg.Peers)
	assert.Equal(t, 750*time.Millisecond, cfg.PeerTimeout)
	assert.Equal(t, 2, cfg.MaxConcurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestParseConfigFile tests layering flags over a config file
func TestParseConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
node_name: from-file
port: 8085
max_concurrency: 3
peers:
  - slot: node2
    addr: http://localhost:8082
`), 0o644))

	cfg, err := parseConfig([]string{"--config.file", path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.NodeName)
	assert.Equal(t, 8085, cfg.Port)
	assert.Equal(t, 3, cfg.MaxConcurrency)
	require.Len(t, cfg.Peers, 1)

	cfg, err = parseConfig([]string{"9000", "--config.file", path, "--max-concurrency", "0", "--peer", "x="})
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "from-file", cfg.NodeName)
	assert.Equal(t, 0, cfg.MaxConcurrency, "explicit zero overrides the file")
	assert.Equal(t, []cluster.PeerAddress{{Slot: "x"}}, cfg.Peers)
}

// TestParseConfigErrors tests rejected command lines
func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "non numeric port", args: []string{"http"}},
		{name: "bad peer", args: []string{"--peer", "node1"}},
		{name: "duplicate peer", args: []string{"--peer", "a=http://h:1", "--peer", "a=http://h:2"}},
		{name: "bad log level", args: []string{"--log.level", "loud"}},
		{name: "missing config file", args: []string{"--config.file", "/does/not/exist.yaml"}},
		{name: "port out of range", args: []string{"70000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.args)
			assert.Error(t, err)
		})
	}
}

// TestServe tests that serve answers requests and stops when its context ends
func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
		ReadHeaderTimeout: time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, srv, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}

// TestServeListenerError tests that a broken listener surfaces as an error
func TestServeListenerError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ln.Close()

	err = serve(context.Background(), &http.Server{ReadHeaderTimeout: time.Second}, ln)
	assert.Error(t, err)
}
