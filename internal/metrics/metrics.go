// Package metrics exposes the core's own operational counters on /metrics,
// grounded on the teacher's pkg/middleware/metrics.go package-level
// CounterVec/HistogramVec-plus-init()-Register pattern. The spec's Non-goals
// exclude "a full observability pipeline" but require the core to "emit
// structured events"; exposing these alongside logrus is the idiomatic Go
// way to do that without building a pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProbeDuration records how long each protocol probe took, labeled by
	// protocol and outcome status (§4.A).
	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pulseguard_probe_duration_seconds",
			Help:    "Duration of a single protocol probe.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"protocol", "status"},
	)

	// JobsProcessed counts scheduler job outcomes (§4.D/§4.E).
	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_jobs_processed_total",
			Help: "Total number of scheduler jobs processed, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	// NotificationsSent counts per-channel notification dispatch outcomes
	// (§4.F).
	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_notifications_sent_total",
			Help: "Total number of notification dispatch attempts, labeled by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	// IncidentsOpen tracks the live count of ongoing incidents, a gauge
	// updated whenever the alert engine opens or resolves one.
	IncidentsOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulseguard_incidents_open",
			Help: "Current number of incidents with status=ongoing.",
		},
	)

	// SchedulerLeader is 1 on the instance currently holding the master
	// lock, 0 otherwise (§4.D).
	SchedulerLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulseguard_scheduler_leader",
			Help: "1 if this process currently holds the scheduler master lock.",
		},
	)
)

func init() {
	prometheus.MustRegister(ProbeDuration, JobsProcessed, NotificationsSent, IncidentsOpen, SchedulerLeader)
}

// ObserveProbe records one probe's wall-clock duration.
func ObserveProbe(protocol, status string, d time.Duration) {
	ProbeDuration.WithLabelValues(protocol, status).Observe(d.Seconds())
}
