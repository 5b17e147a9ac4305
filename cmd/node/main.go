// Package main implements the chorus node: an HTTP service that answers a
// greeting with its own contribution plus those of its sibling nodes.
//
// Architecture:
//
//	┌─────────────────────────────────────────┐
//	│                Node                     │
//	├─────────────────────────────────────────┤
//	│  HTTP API:                              │
//	│    /*             - Combined greeting   │
//	│    /helloFromNode - This node's greeting│
//	│    /info          - Node information    │
//	│    /peers         - Per-peer outcomes   │
//	│    /health        - Health check        │
//	│    /metrics       - Prometheus metrics  │
//	├─────────────────────────────────────────┤
//	│  Components:                            │
//	│    StaticResolver - Peer slots          │
//	│    Aggregator     - Concurrent fan-out  │
//	└─────────────────────────────────────────┘
//
// Configuration (flags override the config file, which overrides defaults):
//   - [port]: Listen port, positional (env CHORUS_PORT, default 8080)
//   - [name]: Node name, positional (env CHORUS_NODE_NAME, default "node<port>")
//   - --config.file: YAML config file (env CHORUS_CONFIG_FILE)
//   - --peer slot=url: Peer slot, repeatable; "slot=" declares an empty slot
//   - --peer-timeout: Bound on each peer call (default 3s)
//   - --max-concurrency: Cap on in-flight peer calls, 0 for no cap
//   - --log.level, --log.format: logrus level and text|json output
//
// Example usage:
//
//	# Two nodes that greet each other
//	./node 8081 node1 --peer node1=http://localhost:8081 --peer node2=http://localhost:8082
//	./node 8082 node2 --peer node1=http://localhost:8081 --peer node2=http://localhost:8082
//
//	curl localhost:8081/
//	Hello World!, Hello from 'node2'
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/chorus/internal/cluster"
	"github.com/dreamware/chorus/internal/config"
	"github.com/dreamware/chorus/internal/logging"
	"github.com/dreamware/chorus/internal/peers"
)

// logFatal is a variable to allow mocking logrus.Fatalf in tests.
var logFatal = logrus.Fatalf

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		logFatal("config: %v", err)
		return
	}

	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logFatal("logging: %v", err)
		return
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	node, err := NewNode(cfg, logger, reg)
	if err != nil {
		logFatal("node: %v", err)
		return
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		logFatal("listen: %v", err)
		return
	}

	srv := &http.Server{
		Handler:           node.Router(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	node.log.WithFields(logrus.Fields{
		"addr":  ln.Addr().String(),
		"peers": len(cfg.Peers),
	}).Info("node listening")

	if err := serve(ctx, srv, ln); err != nil {
		logFatal("serve: %v", err)
		return
	}
	node.log.Info("node stopped")
}

// serve runs srv on ln until ctx is cancelled, then drains in-flight requests
// for up to shutdownTimeout.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// parseConfig layers command-line arguments over the optional config file
// over config.Default, and validates the result.
func parseConfig(args []string) (*config.Config, error) {
	app := kingpin.New("node", "A chorus cluster node.")
	app.HelpFlag.Short('h')

	var (
		port      = app.Arg("port", "Port to listen on.").Envar("CHORUS_PORT").Int()
		name      = app.Arg("name", "Node name; defaults to node<port>.").Envar("CHORUS_NODE_NAME").String()
		file      = app.Flag("config.file", "Path to a YAML config file.").Envar("CHORUS_CONFIG_FILE").ExistingFile()
		peerFlags = app.Flag("peer", "Peer slot as slot=url; repeat in greeting order.").Short('p').Strings()
		timeout   = app.Flag("peer-timeout", "Upper bound on a single peer call.").Envar("CHORUS_PEER_TIMEOUT").Duration()
		logLevel  = app.Flag("log.level", "Log level.").Envar("CHORUS_LOG_LEVEL").Enum("trace", "debug", "info", "warn", "error")
		logFormat = app.Flag("log.format", "Log format.").Envar("CHORUS_LOG_FORMAT").Enum(logging.FormatText, logging.FormatJSON)

		concurrencySet bool
		concurrency    = app.Flag("max-concurrency", "Cap on in-flight peer calls per request; 0 for none.").
				IsSetByUser(&concurrencySet).Int()
	)

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if *file != "" {
		loaded, err := config.Load(*file)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if *port != 0 {
		cfg.Port = *port
	}
	if *name != "" {
		cfg.NodeName = *name
	}
	if *timeout != 0 {
		cfg.PeerTimeout = *timeout
	}
	if concurrencySet {
		cfg.MaxConcurrency = *concurrency
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if len(*peerFlags) > 0 {
		slots := make([]cluster.PeerAddress, 0, len(*peerFlags))
		for _, p := range *peerFlags {
			slot, err := peers.ParseSlot(p)
			if err != nil {
				return nil, err
			}
			slots = append(slots, slot)
		}
		cfg.Peers = slots
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
