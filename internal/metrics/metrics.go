// Package metrics provides Prometheus metrics for the prompt relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 流的结局
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeUpstream  = "upstream_error"
	OutcomeAborted   = "aborted"
	OutcomeCancelled = "client_cancelled"
)

var (
	// StreamsTotal counts prompt streams by outcome.
	StreamsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Name:      "streams_total",
			Help:      "Total number of prompt streams by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveStreams tracks streams currently relaying.
	ActiveStreams = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appbuilder",
			Name:      "active_streams",
			Help:      "Number of prompt streams currently open",
		},
	)

	// FragmentsRelayed counts fragments written to clients.
	FragmentsRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Name:      "fragments_relayed_total",
			Help:      "Total number of generation fragments written to clients",
		},
	)

	// BytesRelayed counts bytes written to clients.
	BytesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "appbuilder",
			Name:      "bytes_relayed_total",
			Help:      "Total number of generation bytes written to clients",
		},
	)

	// StreamDuration measures time from request to stream close.
	StreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "appbuilder",
			Name:      "stream_duration_seconds",
			Help:      "Duration of prompt streams in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		},
		[]string{"outcome"},
	)
)

// RecordStream records a finished stream.
func RecordStream(outcome string, fragments int, bytes int64, seconds float64) {
	StreamsTotal.WithLabelValues(outcome).Inc()
	StreamDuration.WithLabelValues(outcome).Observe(seconds)
	FragmentsRelayed.Add(float64(fragments))
	BytesRelayed.Add(float64(bytes))
}
