// Package metrics defines the process's Prometheus metrics, grounded on
// flightctl-flightctl's internal/alert_exporter/metrics.go (promauto-
// registered CounterVec + Histogram at package scope).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts completed attestation requests by outcome:
	// "ok", the rejected request's reason phrase (orchestrator.Error's
	// ReasonPhrase, e.g. "BAD_AK" or "MISSING_FIELD:nonce"), or "internal"
	// for an error that is not an orchestrator.Error.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestd_requests_total",
		Help: "Total number of attestation requests, labeled by outcome",
	}, []string{"outcome"})

	// RequestDurationSeconds measures end-to-end handling latency,
	// including the blocking call into the external policy verifier.
	RequestDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attestd_request_duration_seconds",
		Help:    "Time spent handling an attestation request",
		Buckets: prometheus.DefBuckets,
	})

	// PolicyVerifierDurationSeconds isolates the external policy verifier's
	// own runtime from the rest of the request.
	PolicyVerifierDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "attestd_policy_verifier_duration_seconds",
		Help:    "Time spent waiting on the external policy verifier",
		Buckets: prometheus.DefBuckets,
	})
)
