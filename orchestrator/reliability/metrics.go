// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package reliability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	vendorAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalbridge_vendor_attempts_total",
			Help: "Vendor attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
	vendorAttemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vocalbridge_vendor_attempt_duration_milliseconds",
			Help:    "Duration of individual vendor attempts in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"provider"},
	)
	vendorFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalbridge_vendor_fallbacks_total",
			Help: "Switches from a primary to a fallback provider",
		},
		[]string{"primary", "fallback"},
	)
	vendorCallFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalbridge_vendor_call_failures_total",
			Help: "Logical calls that exhausted every configured provider",
		},
		[]string{"primary"},
	)
)

func init() {
	prometheus.MustRegister(vendorAttempts)
	prometheus.MustRegister(vendorAttemptDuration)
	prometheus.MustRegister(vendorFallbacks)
	prometheus.MustRegister(vendorCallFailures)
}
