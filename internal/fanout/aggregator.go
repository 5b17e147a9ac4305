package fanout

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/chorus/internal/cluster"
	"github.com/dreamware/chorus/internal/logging"
)

// DefaultPeerTimeout bounds a single peer call when Options leaves it unset.
const DefaultPeerTimeout = 3 * time.Second

// FetchFunc performs the outbound GET for one peer and returns its text body.
type FetchFunc func(ctx context.Context, url string) (string, error)

// Options tunes an Aggregator.
type Options struct {
	// Metrics may be nil.
	Metrics *Metrics

	// PeerTimeout bounds a whole fan-out: every peer call shares one deadline
	// set before dispatch. Zero means DefaultPeerTimeout.
	PeerTimeout time.Duration

	// MaxConcurrency caps in-flight peer calls per fan-out. Zero means one
	// goroutine per present peer. Peers waiting for a free slot still count
	// against the shared PeerTimeout deadline.
	MaxConcurrency int
}

// Aggregator combines this node's greeting with greetings fetched from its
// peers. It holds no per-request state and is safe for concurrent use.
type Aggregator struct {
	self    cluster.NodeIdentity
	fetch   FetchFunc
	log     *logrus.Entry
	metrics *Metrics
	timeout time.Duration
	limit   int
}

// NewAggregator returns an Aggregator for the node self that logs peer
// failures to logger.
//
// Example:
//
//	agg := fanout.NewAggregator(cluster.NodeIdentity{Name: "node1"}, logger, fanout.Options{})
//	body := agg.Aggregate(r.Context(), cluster.LocalGreeting, resolver.Resolve())
func NewAggregator(self cluster.NodeIdentity, logger *logrus.Logger, opts Options) *Aggregator {
	timeout := opts.PeerTimeout
	if timeout <= 0 {
		timeout = DefaultPeerTimeout
	}
	return &Aggregator{
		self:    self,
		fetch:   cluster.GetText,
		log:     logger.WithField("node", self.Name),
		metrics: opts.Metrics,
		timeout: timeout,
		limit:   opts.MaxConcurrency,
	}
}

// SetFetchFunc replaces the outbound call. Tests use it to stand in for peers
// without a network.
func (a *Aggregator) SetFetchFunc(fetch FetchFunc) {
	a.fetch = fetch
}

// Aggregate returns local followed by every reachable peer's greeting, in
// the order the peers were given, joined with Separator.
//
// Absent peers are skipped without a call. A peer that fails for any reason
// is logged and left out; it never aborts the other peers and never turns
// into an error for the caller. The result always contains at least local.
func (a *Aggregator) Aggregate(ctx context.Context, local string, peers []cluster.PeerAddress) string {
	return Join(local, a.Collect(ctx, peers))
}

// Collect calls every present peer concurrently and returns one Outcome per
// input slot, indexed by input position rather than completion order.
//
// All calls share one deadline, PeerTimeout from dispatch, so a capped
// MaxConcurrency never stretches the response past that bound. Cancelling ctx
// cancels all in-flight calls; their slots come back failed.
func (a *Aggregator) Collect(ctx context.Context, peers []cluster.PeerAddress) []Outcome {
	a.metrics.observeFanOut()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	outcomes := make([]Outcome, len(peers))
	var g errgroup.Group
	if a.limit > 0 {
		g.SetLimit(a.limit)
	}
	for i, p := range peers {
		if !p.Present() {
			outcomes[i] = Outcome{Slot: p.Slot, Status: StatusAbsent}
			a.metrics.observe(outcomes[i])
			continue
		}
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = a.call(ctx, p)
			return nil
		})
	}
	// Workers never return an error; one peer must not cancel another.
	_ = g.Wait()
	return outcomes
}

func (a *Aggregator) call(ctx context.Context, p cluster.PeerAddress) Outcome {
	start := time.Now()
	body, err := a.fetchGreeting(ctx, p)
	o := Outcome{Slot: p.Slot, Addr: p.Addr, Duration: time.Since(start)}
	if err != nil {
		o.Status = StatusFailed
		o.Err = err
		logging.FromContext(ctx, a.log).
			WithFields(logrus.Fields{"slot": p.Slot, "addr": p.Addr}).
			WithError(err).
			Warnf("Node is not available or failed to process request: %s", a.self.Name)
	} else {
		o.Status = StatusOK
		o.Body = body
	}
	a.metrics.observe(o)
	return o
}

func (a *Aggregator) fetchGreeting(ctx context.Context, p cluster.PeerAddress) (string, error) {
	url, err := p.Endpoint(cluster.HelloFromNodePath)
	if err != nil {
		return "", err
	}
	return a.fetch(ctx, url)
}
