package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the trivia client.
type Metrics struct {
	Registry             *prometheus.Registry
	APIRequests          *prometheus.CounterVec
	APIDuration          *prometheus.HistogramVec
	RoundsStarted        *prometheus.CounterVec
	Results              *prometheus.CounterVec
	Intermediates        *prometheus.CounterVec
	SessionInvalidations prometheus.Counter
	RefreshFailures      *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Backend requests by operation and status code",
			},
			[]string{"op", "status"},
		),
		APIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "trivia",
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "Backend request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		RoundsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Subsystem: "round",
				Name:      "started_total",
				Help:      "Rounds started by question type",
			},
			[]string{"question_type"},
		),
		Results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Subsystem: "round",
				Name:      "results_total",
				Help:      "Terminal results by question type and correctness",
			},
			[]string{"question_type", "correct"},
		),
		Intermediates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Subsystem: "round",
				Name:      "intermediate_total",
				Help:      "Accepted answers of multi-answer rounds by correctness",
			},
			[]string{"correct"},
		),
		SessionInvalidations: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Subsystem: "session",
				Name:      "invalidations_total",
				Help:      "Unauthorized replies that reset the local session",
			},
		),
		RefreshFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "trivia",
				Subsystem: "panel",
				Name:      "refresh_failures_total",
				Help:      "Failed best-effort panel refreshes",
			},
			[]string{"panel"},
		),
	}
}

// ObserveRequest records one backend call. A nil receiver is a no-op so that
// components can run without metrics.
func (m *Metrics) ObserveRequest(op string, status int, started time.Time) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	m.APIDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

func (m *Metrics) RoundStarted(questionType string) {
	if m == nil {
		return
	}
	m.RoundsStarted.WithLabelValues(questionType).Inc()
}

func (m *Metrics) RoundFinished(questionType string, correct bool) {
	if m == nil {
		return
	}
	m.Results.WithLabelValues(questionType, strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) AnswerAccepted(correct bool) {
	if m == nil {
		return
	}
	m.Intermediates.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) SessionInvalidated() {
	if m == nil {
		return
	}
	m.SessionInvalidations.Inc()
}

func (m *Metrics) RefreshFailed(panel string) {
	if m == nil {
		return
	}
	m.RefreshFailures.WithLabelValues(panel).Inc()
}
