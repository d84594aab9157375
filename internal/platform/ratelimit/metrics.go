package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Allowed  prometheus.Counter
	Limited  prometheus.Counter
	Failures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Allowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_ratelimit_allowed_total",
			Help: "Total number of requests admitted by the rate limiter",
		}),
		Limited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_ratelimit_limited_total",
			Help: "Total number of requests rejected with 429",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_ratelimit_failures_total",
			Help: "Total number of limiter backend failures that failed open",
		}),
	}
}
