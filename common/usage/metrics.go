// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1

package usage

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	usageCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalbridge_usage_cost_total",
			Help: "Billed vendor cost by provider",
		},
		[]string{"provider"},
	)
	usageTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vocalbridge_usage_tokens_total",
			Help: "Billed tokens by provider and direction",
		},
		[]string{"provider", "direction"},
	)
)

func init() {
	prometheus.MustRegister(usageCost)
	prometheus.MustRegister(usageTokens)
}
