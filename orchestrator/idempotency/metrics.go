// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalbridge_idempotency_lookups_total",
			Help: "Idempotency cache lookups by result (hit, miss, corrupt, error)",
		},
		[]string{"result"},
	)
	expiredSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vocalbridge_idempotency_expired_deleted_total",
			Help: "Expired idempotency records removed by cleanup",
		},
	)
)

func init() {
	prometheus.MustRegister(cacheLookups)
	prometheus.MustRegister(expiredSwept)
}
