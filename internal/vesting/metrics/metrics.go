package metrics

import (
	"math/big"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the vesting wallet. Tracks schedule
// creation, claim volume and latency, and claim outcomes the treasury
// operator cares about (rejected claims, short treasuries).
type Metrics struct {
	SchedulesCreated   prometheus.Counter
	ClaimsPaid         prometheus.Counter
	ClaimsRejected     prometheus.Counter
	TreasuryShortfalls prometheus.Counter
	TokensClaimed      prometheus.Counter
	ClaimDuration      prometheus.Histogram
}

// New creates a new Metrics instance with all vesting wallet metrics registered.
func New() *Metrics {
	return &Metrics{
		SchedulesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_vesting_schedules_created_total",
			Help: "Total number of vesting schedules created",
		}),
		ClaimsPaid: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_vesting_claims_paid_total",
			Help: "Total number of claims that transferred tokens",
		}),
		ClaimsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_vesting_claims_rejected_total",
			Help: "Claims rejected because nothing was claimable",
		}),
		TreasuryShortfalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_vesting_treasury_shortfalls_total",
			Help: "Claims rejected because the treasury could not cover them",
		}),
		TokensClaimed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "vestry_vesting_tokens_claimed_total",
			Help: "Cumulative token units paid out by claims",
		}),
		ClaimDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "vestry_vesting_claim_duration_seconds",
			Help:    "Duration of claim processing including the ledger transfer",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveClaim records the duration of one claim attempt. Call with
// time.Now() at the start of the operation.
func (m *Metrics) ObserveClaim(start time.Time) {
	m.ClaimDuration.Observe(time.Since(start).Seconds())
}

// AddTokensClaimed adds a paid amount to the cumulative payout counter.
// Amounts beyond float64 precision saturate rather than panic; the counter
// is a trend signal, the ledger is the source of truth.
func (m *Metrics) AddTokensClaimed(amount *big.Int) {
	f, _ := new(big.Float).SetInt(amount).Float64()
	if f > 0 {
		m.TokensClaimed.Add(f)
	}
}
