// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts RPC requests by method and outcome (the
	// outcome label is an error code or "ok").
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_requests_total",
		Help: "RPC requests processed, by method and outcome.",
	}, []string{"method", "outcome"})

	// GateDecisions counts operator decisions at the confirmation gate.
	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyward_gate_decisions_total",
		Help: "Confirmation gate decisions, by decision.",
	}, []string{"decision"})

	// OpenCodecHandles tracks currently held codec sessions. A value
	// that stays above zero between requests means a release was
	// skipped somewhere.
	OpenCodecHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "keyward_open_codec_handles",
		Help: "Codec sessions currently acquired and not yet released.",
	})

	// RequestDuration observes end-to-end request latency. Signing
	// requests include the operator-paced confirmation wait.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "keyward_request_duration_seconds",
		Help:    "RPC request duration in seconds, by method.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"method"})
)
