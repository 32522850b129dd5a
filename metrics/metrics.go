// Package metrics exposes ledger activity as Prometheus metrics.
//
// A Collector owns its own registry so several ledgers (and tests) can run
// in one process. All methods are safe on a nil *Collector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "resonance"

type Collector struct {
	registry *prometheus.Registry

	BlocksCreated   prometheus.Counter
	BlockRejections *prometheus.CounterVec
	EventsSubmitted *prometheus.CounterVec
	MiningDuration  prometheus.Histogram
	ChainHeight     prometheus.Gauge
	PendingEvents   prometheus.Gauge
	TokenSupply     prometheus.Gauge
	GlobalCoherence prometheus.Gauge
}

func New() *Collector {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Collector{
		registry: reg,
		BlocksCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_created_total",
			Help:      "Blocks appended to the chain, genesis excluded",
		}),
		BlockRejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_rejections_total",
			Help:      "Block creation attempts that did not produce a block, by reason",
		}, []string{"reason"}),
		EventsSubmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_submitted_total",
			Help:      "Submitted events by kind and result",
		}, []string{"kind", "result"}),
		MiningDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mining_duration_seconds",
			Help:      "Time spent searching for a valid nonce",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		ChainHeight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chain_height",
			Help:      "Height of the latest block",
		}),
		PendingEvents: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_events",
			Help:      "Events waiting for a block",
		}),
		TokenSupply: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_supply",
			Help:      "Total token supply in base units",
		}),
		GlobalCoherence: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_coherence",
			Help:      "Global coherence of the current graph",
		}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's registry in the Prometheus text format.
// A nil collector serves an empty registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordBlock updates the chain gauges after a block is appended.
func (c *Collector) RecordBlock(height uint64, supply uint64, coherence float64) {
	if c == nil {
		return
	}
	c.BlocksCreated.Inc()
	c.ChainHeight.Set(float64(height))
	c.TokenSupply.Set(float64(supply))
	c.GlobalCoherence.Set(coherence)
}

func (c *Collector) RecordRejection(reason string) {
	if c == nil {
		return
	}
	c.BlockRejections.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordEvent(kind string, accepted bool) {
	if c == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	c.EventsSubmitted.WithLabelValues(kind, result).Inc()
}

func (c *Collector) ObserveMining(d time.Duration) {
	if c == nil {
		return
	}
	c.MiningDuration.Observe(d.Seconds())
}

func (c *Collector) SetPending(n int) {
	if c == nil {
		return
	}
	c.PendingEvents.Set(float64(n))
}

func (c *Collector) SetSupply(supply uint64) {
	if c == nil {
		return
	}
	c.TokenSupply.Set(float64(supply))
}
