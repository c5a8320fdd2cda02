// Package metrics holds the domain counters exported next to the echo
// request metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pinboard"

var (
	QuotaEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quota",
		Name:      "evictions_total",
		Help:      "Messages deleted to bring a sender back under quota.",
	})

	QuotaEvictedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quota",
		Name:      "evicted_bytes_total",
		Help:      "Payload bytes reclaimed by quota eviction.",
	})

	QuotaEnforcementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quota",
		Name:      "enforcement_failures_total",
		Help:      "Enforcement passes aborted by a storage error.",
	})

	PasswordChangeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "password",
		Name:      "change_outcomes_total",
		Help:      "Password change attempts by outcome.",
	}, []string{"outcome"})
)
