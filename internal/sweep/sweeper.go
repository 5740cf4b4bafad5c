// Package sweep force-closes loans whose hard deadline or policy cutoff has
// passed, restocking through the same close transition a user return uses.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/lendinghub/lending-service/internal/ids"
	"github.com/lendinghub/lending-service/internal/models"
	"github.com/lendinghub/lending-service/pkg/logger"
	"github.com/lendinghub/lending-service/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Source selects candidate loans. Every pass re-reads the store, so a loan
// closed by an earlier pass is not offered again.
type Source interface {
	FindOpenWithDeadlineBefore(ctx context.Context, t time.Time) ([]*models.Loan, error)
	FindOpenWithPolicyCutoffBefore(ctx context.Context, t time.Time) ([]*models.Loan, error)
}

// Closer performs the conditional close + restock. lending.Engine implements it.
type Closer interface {
	CloseLoan(ctx context.Context, loanID string, actor models.Actor) (*models.Loan, bool, error)
}

type Sweeper struct {
	source   Source
	closer   Closer
	interval time.Duration
	lease    Lease
	sink     ReportSink
	now      func() time.Time
	tracer   trace.Tracer
	log      *logger.Entry
}

type Option func(*Sweeper)

func WithLease(l Lease) Option { return func(s *Sweeper) { s.lease = l } }

func WithReportSink(r ReportSink) Option { return func(s *Sweeper) { s.sink = r } }

func WithClock(now func() time.Time) Option { return func(s *Sweeper) { s.now = now } }

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Sweeper) { s.tracer = tp.Tracer("lending/sweep") }
}

func New(source Source, closer Closer, interval time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{
		source:   source,
		closer:   closer,
		interval: interval,
		now:      time.Now,
		tracer:   otel.Tracer("lending/sweep"),
		log:      logger.Component("sweep"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run ticks immediately and then every interval until ctx is cancelled. A
// failed tick is logged and the next one runs on schedule.
func (s *Sweeper) Run(ctx context.Context) {
	s.log.Infof("sweeper started (interval %s)", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		_, _ = s.Tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Infof("sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick runs one guarded sweep. The report is nil when the tick was skipped
// because another sweeper holds the lease. A lease or candidate query
// failure is returned as the error, alongside the partial report if any.
func (s *Sweeper) Tick(ctx context.Context) (*Report, error) {
	if s.lease != nil {
		ok, err := s.lease.Acquire(ctx)
		if err != nil {
			metrics.SweepRuns.WithLabelValues("failed").Inc()
			s.log.Errorf("acquire lease: %v", err)
			return nil, fmt.Errorf("sweep: acquire lease: %w", err)
		}
		if !ok {
			metrics.SweepRuns.WithLabelValues("skipped").Inc()
			s.log.Debugf("lease held elsewhere; skipping tick")
			return nil, nil
		}
		defer func() {
			if err := s.lease.Release(context.WithoutCancel(ctx)); err != nil {
				s.log.Warnf("release lease: %v", err)
			}
		}()
	}

	started := time.Now()
	report, err := s.RunOnce(ctx, s.now())
	metrics.SweepDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SweepRuns.WithLabelValues("failed").Inc()
		s.log.Errorf("sweep %s: %v", report.RunID, err)
	} else {
		metrics.SweepRuns.WithLabelValues("completed").Inc()
	}

	if !report.Empty() {
		s.log.With(logger.Fields{"run": report.RunID}).Infof("sweep closed %d (expired=%d policy=%d duplicates=%d failures=%d)",
			report.Closed(), len(report.Expired), len(report.PolicyClosed), report.Duplicates, len(report.Failures))
		if s.sink != nil {
			if err := s.sink.PutReport(ctx, report); err != nil {
				s.log.Warnf("archive report %s: %v", report.RunID, err)
			}
		}
	}
	return report, err
}

// RunOnce closes every open loan whose hard deadline is at or before now,
// then every open loan whose policy cutoff is at or before now. A loan that
// fails to close is recorded and the pass continues. The error is non-nil
// only when a candidate query fails; the report then covers the work done.
func (s *Sweeper) RunOnce(ctx context.Context, now time.Time) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "sweep.tick", trace.WithAttributes(attribute.String("sweep.now", now.UTC().Format(time.RFC3339))))
	defer span.End()

	report := &Report{RunID: ids.NewRunID(now), StartedAt: now.UTC(), Expired: []string{}, PolicyClosed: []string{}}
	defer func() {
		report.FinishedAt = s.now().UTC()
		span.SetAttributes(
			attribute.Int("sweep.expired", len(report.Expired)),
			attribute.Int("sweep.policy_closed", len(report.PolicyClosed)),
			attribute.Int("sweep.duplicates", report.Duplicates),
			attribute.Int("sweep.failures", len(report.Failures)),
		)
	}()

	expired, err := s.source.FindOpenWithDeadlineBefore(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deadline query failed")
		return report, err
	}
	report.Expired = s.closeAll(ctx, expired, "deadline", report)

	policy, err := s.source.FindOpenWithPolicyCutoffBefore(ctx, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "policy query failed")
		return report, err
	}
	report.PolicyClosed = s.closeAll(ctx, policy, "policy", report)
	return report, nil
}

func (s *Sweeper) closeAll(ctx context.Context, loans []*models.Loan, why string, report *Report) []string {
	closedIDs := []string{}
	for _, l := range loans {
		if ctx.Err() != nil {
			break
		}
		if !l.Open {
			continue
		}
		_, closed, err := s.closer.CloseLoan(ctx, l.ID, models.ActorSystem)
		if err != nil {
			metrics.SweepFailures.Inc()
			report.Failures = append(report.Failures, Failure{LoanID: l.ID, Error: err.Error()})
			s.log.With(logger.Fields{"loan": l.ID, "reason": why}).Errorf("close failed: %v", err)
			continue
		}
		if !closed {
			report.Duplicates++
			continue
		}
		metrics.SweepClosed.WithLabelValues(why).Inc()
		closedIDs = append(closedIDs, l.ID)
	}
	return closedIDs
}
