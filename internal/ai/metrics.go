// Package ai provides Prometheus metrics for gateway consumption.
package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts completion requests by model and provider.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmated",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Total completion requests by model and provider",
		},
		[]string{"model", "provider"},
	)

	// TokensTotal counts tokens by model and direction (input, output).
	TokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmated",
			Subsystem: "ai",
			Name:      "tokens_total",
			Help:      "Total tokens consumed by model and direction",
		},
		[]string{"model", "direction"},
	)

	// CostTotal accumulates computed cost in USD by model.
	CostTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmated",
			Subsystem: "ai",
			Name:      "cost_usd_total",
			Help:      "Total computed cost in USD by model",
		},
		[]string{"model"},
	)
)

func recordMetrics(resp *Response) {
	RequestsTotal.WithLabelValues(resp.Model, resp.Provider).Inc()
	TokensTotal.WithLabelValues(resp.Model, "input").Add(float64(resp.InputTokens))
	TokensTotal.WithLabelValues(resp.Model, "output").Add(float64(resp.OutputTokens))
	CostTotal.WithLabelValues(resp.Model).Add(resp.Cost)
}
