package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contributor registry.
// Tracks registration volume, reputation writes, and lookup latency.
type Metrics struct {
	ContributorsRegistered prometheus.Counter
	ReputationUpdates      prometheus.Counter
	GetContributorDuration prometheus.Histogram
	CacheHits              prometheus.Counter
	CacheMisses            prometheus.Counter
}

// New creates a new Metrics instance with all contributor registry metrics registered.
func New() *Metrics {
	return &Metrics{
		ContributorsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_contributors_registered_total",
			Help: "Total number of contributors registered",
		}),
		ReputationUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_reputation_updates_total",
			Help: "Total number of reputation score overwrites",
		}),
		GetContributorDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vestry_get_contributor_duration_seconds",
			Help:    "Duration of GetContributor lookups (public read path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_contributor_cache_hits_total",
			Help: "Contributor lookups served from the cache",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_contributor_cache_misses_total",
			Help: "Contributor lookups that fell through to the backing store",
		}),
	}
}

// ObserveGetContributor records the duration of a GetContributor lookup.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveGetContributor(start time.Time) {
	m.GetContributorDuration.Observe(time.Since(start).Seconds())
}
