package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	LoansOpened = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lending", Name: "loans_opened_total", Help: "Number of loans created by a successful borrow."},
	)
	LoansClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "loans_closed_total", Help: "Number of loans closed, by actor (user|system)."},
		[]string{"actor"},
	)
	DuplicateCloses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "duplicate_closes_total", Help: "Close attempts that found the loan already closed, by actor."},
		[]string{"actor"},
	)
	LendingRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "rejections_total", Help: "Borrow/return requests rejected, by operation and reason."},
		[]string{"operation", "reason"},
	)

	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "sweep_runs_total", Help: "Sweep ticks by outcome (completed|skipped|failed)."},
		[]string{"outcome"},
	)
	SweepClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "lending", Name: "sweep_closed_total", Help: "Loans force-closed by the sweep, by reason (deadline|policy)."},
		[]string{"reason"},
	)
	SweepFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "lending", Name: "sweep_close_failures_total", Help: "Per-loan close failures during sweeps."},
	)
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: "lending", Name: "sweep_duration_seconds", Help: "Sweep tick duration.", Buckets: prometheus.DefBuckets},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LoansOpened, LoansClosed, DuplicateCloses, LendingRejections)
	reg.MustRegister(SweepRuns, SweepClosed, SweepFailures, SweepDuration)
}
