package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsStarted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "sessions",
		Name:      "started_total",
		Help:      "Workout sessions started, by source (exercises, template, repeat, assignment, resume).",
	}, []string{"source"})

	sessionsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "sessions",
		Name:      "finished_total",
		Help:      "Workout sessions finished, by final status.",
	}, []string{"status"})

	sessionsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "sessions",
		Name:      "cancelled_total",
		Help:      "Workout sessions cancelled by the user.",
	})

	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Workout sessions currently held in memory.",
	})

	storeFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitness_tracker",
		Subsystem: "store",
		Name:      "failures_total",
		Help:      "Failed document store operations that were contained, by operation.",
	}, []string{"op"})

	lastFinishedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitness_tracker",
		Subsystem: "sessions",
		Name:      "last_finished_timestamp_seconds",
		Help:      "Unix timestamp of the most recent finished workout.",
	})
)

func init() {
	prometheus.MustRegister(sessionsStarted, sessionsFinished, sessionsCancelled, activeSessions, storeFailures, lastFinishedGauge)
}

// RecordSessionStarted counts a session started from source.
func RecordSessionStarted(source string) {
	sessionsStarted.WithLabelValues(source).Inc()
}

// RecordSessionFinished counts a finished session and moves the finished watermark.
func RecordSessionFinished(status string, ts time.Time) {
	sessionsFinished.WithLabelValues(status).Inc()
	if !ts.IsZero() {
		lastFinishedGauge.Set(float64(ts.Unix()))
	}
}

func RecordSessionCancelled() {
	sessionsCancelled.Inc()
}

// SetActiveSessions reports the number of in-memory sessions.
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// RecordStoreFailure counts a failed store operation that did not fail the request.
func RecordStoreFailure(op string) {
	storeFailures.WithLabelValues(op).Inc()
}
