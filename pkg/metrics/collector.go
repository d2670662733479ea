// Package metrics exposes gate state as Prometheus metrics.
//
// Counters and gauges that mirror the statistics recorder are read from a
// single snapshot per scrape. Window transitions and drain sizes are pushed
// by the caller through ObserveTransition and ObserveDrain.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesh-radio/txwindow/pkg/stats"
)

const namespace = "txwindow"

// Source provides the values read at scrape time. *gate.Gate satisfies it.
type Source interface {
	Statistics() stats.Statistics
	IsOpen() bool
	QueueLength() int
}

// Collector owns the gate metrics.
type Collector struct {
	gatherer prometheus.Gatherer

	WindowTransitions *prometheus.CounterVec
	DrainPackets      prometheus.Histogram
}

// NewCollector registers the gate metrics for src against reg. A nil reg
// means the default registerer.
func NewCollector(reg prometheus.Registerer, src Source) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	if err := reg.Register(newSnapshotCollector(src)); err != nil {
		return nil, fmt.Errorf("register gate snapshot metrics: %w", err)
	}

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "window_transitions_total",
		Help:      "Effective window state changes, by new state.",
	}, []string{"state"})
	transitions, err := registerCounterVec(reg, transitions, "window_transitions_total")
	if err != nil {
		return nil, err
	}

	drainPackets := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "drain_packets",
		Help:      "Packets transmitted per drain pass.",
		Buckets:   []float64{0, 1, 2, 4, 6, 8, 10, 20},
	})
	drainPackets, err = registerHistogram(reg, drainPackets, "drain_packets")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:          gatherer,
		WindowTransitions: transitions,
		DrainPackets:      drainPackets,
	}, nil
}

// Gatherer returns the gatherer the metrics were registered with.
func (c *Collector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// Handler serves the gatherer in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// ObserveTransition counts a window state change.
func (c *Collector) ObserveTransition(open bool) {
	if c == nil || c.WindowTransitions == nil {
		return
	}
	state := "closed"
	if open {
		state = "open"
	}
	c.WindowTransitions.WithLabelValues(state).Inc()
}

// ObserveDrain records the number of packets a drain pass sent.
func (c *Collector) ObserveDrain(transmitted int) {
	if c == nil || c.DrainPackets == nil {
		return
	}
	c.DrainPackets.Observe(float64(transmitted))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
