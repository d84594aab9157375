package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit delivery health. Dropped and failed events are the
// ones to alert on; the trail is only as good as its delivery.
type Metrics struct {
	Published       prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

// NewMetrics creates a new Metrics instance with audit delivery metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_audit_published_total",
			Help: "Total number of audit events handed to the store",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_audit_dropped_total",
			Help: "Total number of audit events dropped because the async buffer was full",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_audit_persist_failures_total",
			Help: "Total number of audit events the store failed to accept",
		}),
	}
}
