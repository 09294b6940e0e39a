// Package metrics exposes the Prometheus collectors of the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "srsbot"

var (
	// SessionsStarted counts lesson sessions by track and whether they used
	// the lookahead window.
	SessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lesson",
		Name:      "sessions_started_total",
		Help:      "Lesson sessions started",
	}, []string{"track", "lookahead"})

	// SessionsFinished counts sessions by outcome (complete, aborted).
	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lesson",
		Name:      "sessions_finished_total",
		Help:      "Lesson sessions that ended",
	}, []string{"track", "outcome"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "lesson",
		Name:      "active_sessions",
		Help:      "Sessions currently in progress",
	})

	// Answers counts graded answers. Labels: kind, result (correct, incorrect)
	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "lesson",
		Name:      "answers_total",
		Help:      "Graded answers",
	}, []string{"kind", "result"})

	TiersUnlocked = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "progression",
		Name:      "tiers_unlocked_total",
		Help:      "Content tiers opened by the stage gate",
	}, []string{"kind"})

	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "write_failures_total",
		Help:      "Failed profile store updates",
	})

	// GradeLatency measures one grading event including the store write.
	GradeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "lesson",
		Name:      "grade_duration_seconds",
		Help:      "Time to grade an answer and persist the result",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "reminders_sent_total",
		Help:      "Due reminders delivered, by track",
	}, []string{"track"})

	ItemsImported = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "content",
		Name:      "items_imported_total",
		Help:      "Content items loaded by the importer",
	}, []string{"kind"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
