// Package metrics exposes Prometheus instrumentation for the fold pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "poolscope"

// Fold holds the counters of the fold step. A nil *Fold is a no-op.
type Fold struct {
	EventsApplied *prometheus.CounterVec
	EventsDropped *prometheus.CounterVec
	EventsSkipped *prometheus.CounterVec
	ApplyDuration *prometheus.HistogramVec
	CursorBlock   *prometheus.GaugeVec
	reg           prometheus.Gatherer
}

// NewFold registers the fold metrics on reg. A nil reg uses the default registry.
func NewFold(reg *prometheus.Registry) *Fold {
	var registerer prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg != nil {
		registerer = reg
		gatherer = reg
	}
	factory := promauto.With(registerer)

	return &Fold{
		EventsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fold",
			Name:      "events_total",
			Help:      "Events folded into aggregate state",
		}, []string{"event"}),
		EventsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fold",
			Name:      "dropped_total",
			Help:      "Events dropped without state change",
		}, []string{"event", "reason"}),
		EventsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fold",
			Name:      "skipped_total",
			Help:      "Events at or before the chain cursor",
		}, []string{"event"}),
		ApplyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fold",
			Name:      "apply_seconds",
			Help:      "Time to fold one event including the store commit",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"event"}),
		CursorBlock: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "fold",
			Name:      "cursor_block",
			Help:      "Last applied block per chain",
		}, []string{"chain_id"}),
		reg: gatherer,
	}
}

func (m *Fold) Applied(event string, took time.Duration) {
	if m == nil {
		return
	}
	m.EventsApplied.WithLabelValues(event).Inc()
	m.ApplyDuration.WithLabelValues(event).Observe(took.Seconds())
}

func (m *Fold) Dropped(event, reason string) {
	if m == nil {
		return
	}
	m.EventsDropped.WithLabelValues(event, reason).Inc()
}

func (m *Fold) Skipped(event string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(event).Inc()
}

func (m *Fold) Cursor(chainID string, block uint64) {
	if m == nil {
		return
	}
	m.CursorBlock.WithLabelValues(chainID).Set(float64(block))
}

// Handler serves the registry the metrics were created on.
func (m *Fold) Handler() http.Handler {
	if m == nil || m.reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
