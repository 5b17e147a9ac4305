package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/chorus/internal/cluster"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chorus.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.PeerTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Peers)
	assert.NoError(t, cfg.Validate())
}

func TestNodeIdentity(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cluster.NodeIdentity{Name: "node8080"}, cfg.NodeIdentity())

	cfg.Port = 9001
	assert.Equal(t, "node9001", cfg.NodeIdentity().Name)

	cfg.NodeName = "alpha"
	assert.Equal(t, "alpha", cfg.NodeIdentity().Name)
	assert.Equal(t, ":9001", cfg.ListenAddr())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
node_name: node1
port: 8081
peer_timeout: 1500ms
max_concurrency: 4
log:
  level: debug
  format: json
peers:
  - slot: node1
    addr: http://127.0.0.1:8081
  - slot: node2
    addr: http://127.0.0.1:8082
  - slot: node3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "node1", cfg.NodeName)
	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, 1500*time.Millisecond, cfg.PeerTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrency)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, []cluster.PeerAddress{
		{Slot: "node1", Addr: "http://127.0.0.1:8081"},
		{Slot: "node2", Addr: "http://127.0.0.1:8082"},
		{Slot: "node3"},
	}, cfg.Peers)
	assert.NoError(t, cfg.Validate())
}

func TestLoadKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "node_name: solo\n"))
	require.NoError(t, err)
	assert.Equal(t, "solo", cfg.NodeName)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.PeerTimeout)

	cfg, err = Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "peer_timeout: soon\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "peerz: []\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "port too low", mutate: func(c *Config) { c.Port = 0 }},
		{name: "port too high", mutate: func(c *Config) { c.Port = 70000 }},
		{name: "zero timeout", mutate: func(c *Config) { c.PeerTimeout = 0 }},
		{name: "negative concurrency", mutate: func(c *Config) { c.MaxConcurrency = -1 }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "chatty" }},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "duplicate slot", mutate: func(c *Config) {
			c.Peers = []cluster.PeerAddress{{Slot: "a"}, {Slot: "a"}}
		}},
		{name: "unnamed slot", mutate: func(c *Config) {
			c.Peers = []cluster.PeerAddress{{Addr: "http://h:1"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
