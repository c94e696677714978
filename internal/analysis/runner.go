// Package analysis runs one compliance batch: fetch tickets from every
// source, evaluate them against the rule catalog, predict SLA risk and
// summarize. Fetching is the only phase that does I/O.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/dwsmith1983/guardian/internal/aggregate"
	"github.com/dwsmith1983/guardian/internal/engine"
	"github.com/dwsmith1983/guardian/internal/intake"
	"github.com/dwsmith1983/guardian/internal/metrics"
	"github.com/dwsmith1983/guardian/internal/rules"
	"github.com/dwsmith1983/guardian/internal/schedule"
	"github.com/dwsmith1983/guardian/pkg/types"
)

const instrumentation = "github.com/dwsmith1983/guardian/internal/analysis"

// Resolver marks changes implemented inside a blackout window.
// *calendar.Blackout satisfies it.
type Resolver interface {
	Resolve(rec types.ChangeRecord) types.ChangeRecord
}

// Notifier delivers one owner alert. *alert.Dispatcher satisfies it.
type Notifier interface {
	Dispatch(ctx context.Context, alert types.Alert) error
}

type feed struct {
	source intake.Source
	retry  types.RetryPolicy
}

// Runner executes analysis runs. It is safe to call Run concurrently.
type Runner struct {
	catalog  *rules.Catalog
	blackout Resolver
	feeds    []feed
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	window   time.Duration

	tracer    trace.Tracer
	evaluated metric.Int64Counter
}

// Option configures a Runner.
type Option func(*Runner)

// WithSource adds a ticket feed. A nil policy uses schedule.DefaultRetryPolicy.
func WithSource(src intake.Source, retry *types.RetryPolicy) Option {
	return func(r *Runner) {
		policy := schedule.DefaultRetryPolicy()
		if retry != nil {
			policy = *retry
		}
		r.feeds = append(r.feeds, feed{source: src, retry: policy})
	}
}

// WithBlackout sets the calendar applied to changes before evaluation.
func WithBlackout(b Resolver) Option {
	return func(r *Runner) { r.blackout = b }
}

// WithNotifier sets where Notify delivers owner alerts.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) { r.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithRiskWindow sets the SLA lead time; zero keeps engine.DefaultRiskWindow.
func WithRiskWindow(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.window = d
		}
	}
}

// New creates a Runner over catalog.
func New(catalog *rules.Catalog, opts ...Option) *Runner {
	r := &Runner{
		catalog: catalog,
		logger:  slog.Default(),
		now:     time.Now,
		window:  engine.DefaultRiskWindow,
		tracer:  otel.Tracer(instrumentation),
	}
	for _, o := range opts {
		o(r)
	}
	counter, err := otel.Meter(instrumentation).Int64Counter("guardian.tickets.evaluated",
		metric.WithDescription("Tickets evaluated"))
	if err != nil {
		r.logger.Warn("creating otel counter", "error", err)
	}
	r.evaluated = counter
	return r
}

// Catalog returns the rule catalog the runner evaluates against.
func (r *Runner) Catalog() *rules.Catalog { return r.catalog }

// Run fetches, evaluates and summarizes one batch.
func (r *Runner) Run(ctx context.Context) (rep types.Report, err error) {
	start := time.Now()
	runID := ulid.Make().String()
	ctx, span := r.tracer.Start(ctx, "analysis.Run", trace.WithAttributes(attribute.String("run.id", runID)))
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.RunsTotal.WithLabelValues(status).Inc()
		metrics.RunDuration.Observe(time.Since(start).Seconds())
		span.End()
	}()

	batch, err := r.fetch(ctx)
	if err != nil {
		return types.Report{}, err
	}
	return r.Evaluate(ctx, runID, batch)
}

// Evaluate runs the pure phases over an already fetched batch.
func (r *Runner) Evaluate(ctx context.Context, runID string, batch intake.Batch) (types.Report, error) {
	_, span := r.tracer.Start(ctx, "analysis.Evaluate")
	defer span.End()

	priorities := make([]types.Priority, 0, len(batch.Incidents))
	for _, inc := range batch.Incidents {
		priorities = append(priorities, inc.Priority)
	}
	if err := r.catalog.Require(priorities...); err != nil {
		return types.Report{}, err
	}

	results := make([]types.EvaluationResult, 0, len(batch.Incidents)+len(batch.Changes))
	for _, inc := range batch.Incidents {
		res, err := engine.EvaluateIncident(inc, r.catalog)
		if err != nil {
			return types.Report{}, fmt.Errorf("evaluating %s: %w", inc.ID, err)
		}
		results = append(results, res)
	}
	for _, chg := range batch.Changes {
		if r.blackout != nil {
			chg = r.blackout.Resolve(chg)
		}
		res, err := engine.EvaluateChange(chg, r.catalog)
		if err != nil {
			return types.Report{}, fmt.Errorf("evaluating %s: %w", chg.ID, err)
		}
		results = append(results, res)
	}

	now := r.now()
	atRisk, err := engine.PredictAtRisk(batch.Incidents, r.catalog, now, r.window)
	if err != nil {
		return types.Report{}, fmt.Errorf("predicting SLA risk: %w", err)
	}

	summary := aggregate.Summarize(results, batch.Malformed)
	r.record(ctx, summary, atRisk)
	span.SetAttributes(
		attribute.Int("tickets", summary.Total),
		attribute.Int("non_compliant", summary.NonCompliant),
		attribute.Int("at_risk", len(atRisk)),
	)

	r.logger.Info("analysis complete",
		"run", runID,
		"tickets", summary.Total,
		"nonCompliant", summary.NonCompliant,
		"deviationRate", summary.DeviationRate,
		"atRisk", len(atRisk),
		"malformed", summary.MalformedCount,
	)

	return types.Report{
		RunID:       runID,
		RulesName:   r.catalog.Name(),
		Degraded:    r.catalog.Degraded(),
		GeneratedAt: now,
		Results:     results,
		AtRisk:      atRisk,
		Summary:     summary,
	}, nil
}

// Predict fetches open incidents and returns only the SLA risk scan.
func (r *Runner) Predict(ctx context.Context) ([]types.RiskStatus, error) {
	batch, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}
	return engine.PredictAtRisk(batch.Incidents, r.catalog, r.now(), r.window)
}

// fetch pulls every source concurrently and merges the batches in source
// order. The first source that exhausts its retries fails the run.
func (r *Runner) fetch(ctx context.Context) (intake.Batch, error) {
	ctx, span := r.tracer.Start(ctx, "analysis.fetch")
	defer span.End()

	batches := make([]intake.Batch, len(r.feeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range r.feeds {
		g.Go(func() error {
			b, err := r.fetchWithRetry(gctx, f)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", f.source.Name(), err)
			}
			batches[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return intake.Batch{}, err
	}

	var out intake.Batch
	for _, b := range batches {
		out.Merge(b)
	}
	return out, nil
}

func (r *Runner) fetchWithRetry(ctx context.Context, f feed) (intake.Batch, error) {
	name := f.source.Name()
	attempts := max(f.retry.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		b, err := f.source.Fetch(ctx)
		if err == nil {
			metrics.FetchAttempts.WithLabelValues(name, "ok").Inc()
			for _, m := range b.Malformed {
				metrics.MalformedRecords.WithLabelValues(string(m.Source)).Inc()
			}
			return b, nil
		}
		metrics.FetchAttempts.WithLabelValues(name, "error").Inc()
		lastErr = err
		if !retryable(err) || attempt == attempts {
			break
		}

		wait := schedule.CalculateBackoff(f.retry, attempt)
		r.logger.Warn("source fetch failed, retrying",
			"source", name,
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return intake.Batch{}, ctx.Err()
		case <-time.After(wait):
		}
	}
	return intake.Batch{}, lastErr
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var perm interface{ Permanent() bool }
	if errors.As(err, &perm) {
		return !perm.Permanent()
	}
	return true
}

func (r *Runner) record(ctx context.Context, s types.Summary, atRisk []types.RiskStatus) {
	metrics.TicketsEvaluated.WithLabelValues(string(types.TicketIncident)).Add(float64(s.Incidents))
	metrics.TicketsEvaluated.WithLabelValues(string(types.TicketChange)).Add(float64(s.Changes))
	for kind, n := range s.ByKind {
		metrics.Violations.WithLabelValues(string(kind)).Add(float64(n))
	}
	metrics.TicketsAtRisk.Set(float64(len(atRisk)))
	metrics.DeviationRate.Set(s.DeviationRate)

	if r.evaluated != nil {
		r.evaluated.Add(ctx, int64(s.Incidents), metric.WithAttributes(attribute.String("type", string(types.TicketIncident))))
		r.evaluated.Add(ctx, int64(s.Changes), metric.WithAttributes(attribute.String("type", string(types.TicketChange))))
	}
}
