package fanout

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments peer calls. A nil *Metrics records nothing.
type Metrics struct {
	aggregations prometheus.Counter
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics creates the fan-out collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		aggregations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chorus_aggregations_total",
			Help: "Total number of fan-outs started by this node.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chorus_peer_requests_total",
			Help: "Peer slots visited during fan-out, by slot and outcome.",
		}, []string{"slot", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chorus_peer_request_duration_seconds",
			Help:    "Time spent calling a peer's greeting endpoint.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"slot"}),
	}

	cs := []prometheus.Collector{m.aggregations, m.requests, m.duration}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeFanOut() {
	if m == nil {
		return
	}
	m.aggregations.Inc()
}

func (m *Metrics) observe(o Outcome) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(o.Slot, o.Status.String()).Inc()
	if o.Status != StatusAbsent {
		m.duration.WithLabelValues(o.Slot).Observe(o.Duration.Seconds())
	}
}
