// Package config holds a chorus node's startup configuration. Values start
// from Default, may be overridden by a YAML file, and finally by command-line
// flags in cmd/node.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/chorus/internal/cluster"
	"github.com/dreamware/chorus/internal/fanout"
	"github.com/dreamware/chorus/internal/logging"
	"github.com/dreamware/chorus/internal/peers"
)

const DefaultPort = 8080

// Config is the full node configuration.
//
// Example file:
//
//	node_name: node1
//	port: 8081
//	peer_timeout: 2s
//	log:
//	  level: debug
//	  format: json
//	peers:
//	  - slot: node1
//	    addr: http://127.0.0.1:8081
//	  - slot: node2
//	    addr: http://127.0.0.1:8082
type Config struct {
	NodeName       string                `yaml:"node_name"`
	Port           int                   `yaml:"port"`
	PeerTimeout    time.Duration         `yaml:"peer_timeout"`
	MaxConcurrency int                   `yaml:"max_concurrency"`
	Log            LogConfig             `yaml:"log"`
	Peers          []cluster.PeerAddress `yaml:"peers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing else is supplied. The
// node name is left empty; NodeIdentity derives it from the port.
func Default() *Config {
	return &Config{
		Port:        DefaultPort,
		PeerTimeout: fanout.DefaultPeerTimeout,
		Log: LogConfig{
			Level:  logrus.InfoLevel.String(),
			Format: logging.FormatText,
		},
	}
}

// Load reads the YAML file at path on top of Default. Unknown keys are
// rejected so typos do not silently drop a peer.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// NodeIdentity returns the configured node name, or "node<port>" when none
// was given.
func (c *Config) NodeIdentity() cluster.NodeIdentity {
	name := c.NodeName
	if name == "" {
		name = "node" + strconv.Itoa(c.Port)
	}
	return cluster.NodeIdentity{Name: name}
}

// ListenAddr is the address the HTTP server binds.
func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Validate reports the first problem that would stop the node from starting.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.PeerTimeout <= 0 {
		return fmt.Errorf("peer_timeout must be positive, got %s", c.PeerTimeout)
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must not be negative, got %d", c.MaxConcurrency)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Log.Format != logging.FormatText && c.Log.Format != logging.FormatJSON {
		return fmt.Errorf("log format %q must be %q or %q", c.Log.Format, logging.FormatText, logging.FormatJSON)
	}
	if _, err := peers.NewStaticResolver(c.NodeIdentity(), c.Peers); err != nil {
		return err
	}
	return nil
}
