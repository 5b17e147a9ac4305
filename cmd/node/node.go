package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dreamware/chorus/internal/cluster"
	"github.com/dreamware/chorus/internal/config"
	"github.com/dreamware/chorus/internal/fanout"
	"github.com/dreamware/chorus/internal/logging"
	"github.com/dreamware/chorus/internal/peers"
)

// Node is one member of a chorus cluster: its identity, the peer slots it
// greets, and the aggregator that calls them.
//
// Everything on a Node is fixed at startup. Request handling only reads it,
// so handlers run concurrently without locking.
type Node struct {
	identity   cluster.NodeIdentity
	resolver   *peers.StaticResolver
	aggregator *fanout.Aggregator
	log        *logrus.Entry
}

// NewNode builds a node from a validated configuration. Fan-out metrics are
// registered with reg.
//
// Example:
//
//	cfg := config.Default()
//	cfg.Peers = []cluster.PeerAddress{{Slot: "node2", Addr: "http://localhost:8082"}}
//	node, err := NewNode(cfg, logger, prometheus.NewRegistry())
func NewNode(cfg *config.Config, logger *logrus.Logger, reg prometheus.Registerer) (*Node, error) {
	identity := cfg.NodeIdentity()

	resolver, err := peers.NewStaticResolver(identity, cfg.Peers)
	if err != nil {
		return nil, err
	}

	metrics, err := fanout.NewMetrics(reg)
	if err != nil {
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	return &Node{
		identity: identity,
		resolver: resolver,
		aggregator: fanout.NewAggregator(identity, logger, fanout.Options{
			Metrics:        metrics,
			PeerTimeout:    cfg.PeerTimeout,
			MaxConcurrency: cfg.MaxConcurrency,
		}),
		log: logger.WithField("node", identity.Name),
	}, nil
}

// Router returns the node's HTTP surface:
//
//	GET /helloFromNode - this node's greeting, called by peers
//	GET /health        - liveness
//	GET /info          - node name and peer slots
//	GET /peers         - per-slot outcome of a live fan-out
//	GET /metrics       - Prometheus metrics from g
//	GET /*             - the combined greeting
func (n *Node) Router(g prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(n.withRequestContext)

	r.HandleFunc(cluster.HelloFromNodePath, n.handleHelloFromNode).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	r.HandleFunc("/info", n.handleInfo).Methods(http.MethodGet)
	r.HandleFunc("/peers", n.handlePeers).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// Catch-all, registered last so the fixed routes above win.
	r.PathPrefix("/").HandlerFunc(n.handleHello).Methods(http.MethodGet)
	return r
}

// maxRequestIDLen bounds a caller-supplied X-Request-ID.
const maxRequestIDLen = 128

// validRequestID accepts non-empty IDs of printable ASCII no longer than
// maxRequestIDLen. Anything else is replaced with a fresh UUID.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}

// withRequestContext tags every request with an ID, taken from X-Request-ID
// when a peer or client supplied a valid one. The ID and a matching log entry travel
// in the request context so outbound peer calls and failure logs carry it.
func (n *Node) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(cluster.RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}
		w.Header().Set(cluster.RequestIDHeader, id)

		entry := n.log.WithField("request_id", id)
		ctx := cluster.WithRequestID(r.Context(), id)
		ctx = logging.WithEntry(ctx, entry)

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		entry.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}

// handleHello answers the catch-all route with this node's greeting followed
// by every reachable peer's greeting.
//
// Response:
//   - 200 OK: text/plain, e.g. "Hello World!, Hello from 'node2'"
//
// Peer failures never change the status code; the node answers with whatever
// subset of the cluster it could reach.
func (n *Node) handleHello(w http.ResponseWriter, r *http.Request) {
	body := n.aggregator.Aggregate(r.Context(), cluster.LocalGreeting, n.resolver.Resolve())
	writeText(w, body, n.log)
}

func (n *Node) handleHelloFromNode(w http.ResponseWriter, _ *http.Request) {
	writeText(w, n.identity.Identify(), n.log)
}

func (n *Node) handleInfo(w http.ResponseWriter, _ *http.Request) {
	summary := n.resolver.Summary()
	writeJSON(w, cluster.NodeInfo{
		Name:      n.identity.Name,
		Peers:     summary,
		PeerCount: len(summary),
	})
}

// peerOutcome is one entry of the /peers response.
type peerOutcome struct {
	Slot       string        `json:"slot"`
	Addr       string        `json:"addr,omitempty"`
	Status     fanout.Status `json:"status"`
	Body       string        `json:"body,omitempty"`
	Error      string        `json:"error,omitempty"`
	DurationMS int64         `json:"duration_ms"`
}

// handlePeers runs a fan-out and reports what happened to every slot instead
// of joining the greetings. Useful for telling absent peers from failing ones.
//
// Response body:
//
//	{
//	  "node_name": "node1",
//	  "peers": [
//	    {"slot": "node2", "addr": "http://localhost:8082", "status": "ok", "body": "Hello from 'node2'", "duration_ms": 3},
//	    {"slot": "node3", "status": "absent", "duration_ms": 0}
//	  ]
//	}
func (n *Node) handlePeers(w http.ResponseWriter, r *http.Request) {
	outcomes := n.aggregator.Collect(r.Context(), n.resolver.Resolve())

	out := make([]peerOutcome, 0, len(outcomes))
	for _, o := range outcomes {
		po := peerOutcome{
			Slot:       o.Slot,
			Addr:       o.Addr,
			Status:     o.Status,
			Body:       o.Body,
			DurationMS: o.Duration.Milliseconds(),
		}
		if o.Err != nil {
			po.Error = o.Err.Error()
		}
		out = append(out, po)
	}

	writeJSON(w, struct {
		NodeName string        `json:"node_name"`
		Peers    []peerOutcome `json:"peers"`
	}{NodeName: n.identity.Name, Peers: out})
}

func writeText(w http.ResponseWriter, body string, log *logrus.Entry) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write([]byte(body)); err != nil {
		log.WithError(err).Debug("Error writing response")
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
