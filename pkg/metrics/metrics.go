// Package metrics provides Prometheus metrics for the BlackBook sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncPassesTotal tracks full sync passes by outcome
	SyncPassesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "sync",
			Name:      "passes_total",
			Help:      "Total number of full sync passes by outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// SyncPassDuration tracks full pass duration in seconds
	SyncPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "blackbook",
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Duration of full sync passes in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	// SyncOperationsTotal tracks individual sync operations
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "sync",
			Name:      "operations_total",
			Help:      "Total number of sync operations by direction, action and status",
		},
		[]string{"direction", "action", "status"},
	)

	// ExternalCallDuration tracks contact-source adapter call duration
	ExternalCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blackbook",
			Subsystem: "adapter",
			Name:      "call_duration_seconds",
			Help:      "Duration of external contact source calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// ExternalCallRetries tracks retries of transient adapter failures
	ExternalCallRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "adapter",
			Name:      "call_retries_total",
			Help:      "Total number of retried external contact source calls",
		},
		[]string{"operation"},
	)

	// ReviewItemsPending tracks the current review queue depth
	ReviewItemsPending = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blackbook",
			Subsystem: "review",
			Name:      "items_pending",
			Help:      "Number of review items awaiting resolution",
		},
	)

	// ConflictsFlaggedTotal tracks conflicts routed to the review queue
	ConflictsFlaggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "review",
			Name:      "conflicts_flagged_total",
			Help:      "Total number of conflicts flagged for review by type",
		},
		[]string{"type"},
	)

	// ArchivesTotal tracks archive snapshots by deletion origin
	ArchivesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "archive",
			Name:      "snapshots_total",
			Help:      "Total number of archive snapshots by deletion origin",
		},
		[]string{"deleted_from"},
	)

	// ArchivesPurgedTotal tracks purged archive entries
	ArchivesPurgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "archive",
			Name:      "purged_total",
			Help:      "Total number of expired archive entries purged",
		},
	)

	// KafkaMessagesPublished tracks sync events published to Kafka
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackbook",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of sync events published to Kafka",
		},
		[]string{"event_type", "status"},
	)
)

// RecordSyncPass records a completed sync pass
func RecordSyncPass(trigger, outcome string, durationSeconds float64) {
	SyncPassesTotal.WithLabelValues(trigger, outcome).Inc()
	SyncPassDuration.Observe(durationSeconds)
}

// RecordSyncOperation records one sync operation
func RecordSyncOperation(direction, action, status string) {
	SyncOperationsTotal.WithLabelValues(direction, action, status).Inc()
}

// RecordExternalCall records an adapter call
func RecordExternalCall(operation string, durationSeconds float64) {
	ExternalCallDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordConflictFlagged records a conflict routed to the review queue
func RecordConflictFlagged(reviewType string) {
	ConflictsFlaggedTotal.WithLabelValues(reviewType).Inc()
}

// RecordArchive records an archive snapshot
func RecordArchive(deletedFrom string) {
	ArchivesTotal.WithLabelValues(deletedFrom).Inc()
}

// RecordArchivesPurged records purged archive entries
func RecordArchivesPurged(count int64) {
	ArchivesPurgedTotal.Add(float64(count))
}

// RecordKafkaPublish records a Kafka publish attempt
func RecordKafkaPublish(eventType, status string) {
	KafkaMessagesPublished.WithLabelValues(eventType, status).Inc()
}
