// Package metrics exposes Prometheus collectors for analysis runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "guardian"

var (
	// RunsTotal counts analysis runs. Labels: status (ok, error)
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Analysis runs by outcome",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of one analysis run",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	// TicketsEvaluated counts evaluated tickets. Labels: type (Incident, Change)
	TicketsEvaluated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_evaluated_total",
		Help:      "Tickets evaluated by type",
	}, []string{"type"})

	// Violations counts detected deviations. Labels: kind
	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "violations_total",
		Help:      "Compliance violations by kind",
	}, []string{"kind"})

	// MalformedRecords counts tickets skipped at intake. Labels: source
	MalformedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "malformed_records_total",
		Help:      "Ticket records skipped as malformed",
	}, []string{"source"})

	// FetchAttempts counts source fetches. Labels: source, status (ok, error)
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Ticket source fetch attempts",
	}, []string{"source", "status"})

	TicketsAtRisk = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tickets_at_risk",
		Help:      "Open incidents at risk of breaching SLA in the last run",
	})

	DeviationRate = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "deviation_rate_percent",
		Help:      "Share of non-compliant tickets in the last run",
	})

	AlertsDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_dispatched_total",
		Help:      "Owner alerts delivered to every sink",
	})

	AlertsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "alerts_failed_total",
		Help:      "Owner alerts with at least one failed sink",
	})
)
