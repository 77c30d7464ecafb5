// Package metrics exposes Prometheus instrumentation for the interview
// service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsStarted counts interview sessions opened.
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_started_total",
		Help: "Number of interview sessions started.",
	})

	// SessionsCompleted counts terminal completions by outcome
	// ("scored" or "error").
	SessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_sessions_completed_total",
		Help: "Number of interview sessions completed, by outcome.",
	}, []string{"outcome"})

	// ProviderCalls counts question provider calls by operation and
	// result.
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_provider_calls_total",
		Help: "Number of question provider calls, by operation and result.",
	}, []string{"op", "result"})

	// AnswersSubmitted counts submitted answers by trigger ("manual" or
	// "auto").
	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_answers_submitted_total",
		Help: "Number of answers submitted, by trigger.",
	}, []string{"trigger"})

	// BroadcastsPublished counts lifecycle broadcasts sent on the bus.
	BroadcastsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_broadcasts_published_total",
		Help: "Number of lifecycle broadcasts published, by type.",
	}, []string{"type"})

	// SnapshotSaves counts periodic snapshot writes.
	SnapshotSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_snapshot_saves_total",
		Help: "Number of session snapshots written to the durable store.",
	})

	// WSClients tracks connected dashboard WebSocket clients.
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_ws_clients",
		Help: "Currently connected dashboard WebSocket clients.",
	})
)
