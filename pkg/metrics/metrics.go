// Package metrics provides Prometheus metrics for the OpusGraph service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRowsTotal tracks processed import rows by entity type and outcome
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opusgraph",
			Subsystem: "importer",
			Name:      "rows_total",
			Help:      "Total number of import rows processed by outcome",
		},
		[]string{"entity_type", "outcome"},
	)

	// ImportBatchDuration tracks import batch duration in seconds
	ImportBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "opusgraph",
			Subsystem: "importer",
			Name:      "batch_duration_seconds",
			Help:      "Duration of import batch executions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"entity_type"},
	)

	// MergesTotal tracks merge operations by entity type and status
	MergesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opusgraph",
			Subsystem: "merging",
			Name:      "merges_total",
			Help:      "Total number of merge operations by status",
		},
		[]string{"entity_type", "status"},
	)

	// ReviewFlagsTotal tracks review flag lifecycle actions
	ReviewFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opusgraph",
			Subsystem: "review",
			Name:      "flags_total",
			Help:      "Total number of review flag actions",
		},
		[]string{"entity_type", "action"},
	)

	// DuplicateChecksTotal tracks duplicate detection runs by result
	DuplicateChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opusgraph",
			Subsystem: "matching",
			Name:      "duplicate_checks_total",
			Help:      "Total number of duplicate detection runs by result",
		},
		[]string{"entity_type", "result"},
	)

	// RevisionsTotal tracks revision log entries by entity type and action
	RevisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opusgraph",
			Subsystem: "revisions",
			Name:      "entries_total",
			Help:      "Total number of revision log entries recorded",
		},
		[]string{"entity_type", "action"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "opusgraph",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)

	// KafkaPublishDuration tracks Kafka publish duration
	KafkaPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "opusgraph",
			Subsystem: "kafka",
			Name:      "publish_duration_seconds",
			Help:      "Duration of Kafka publish operations in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
		},
	)
)

// RecordImportRow records a processed import row
func RecordImportRow(entityType, outcome string) {
	ImportRowsTotal.WithLabelValues(entityType, outcome).Inc()
}

// RecordImportBatch records an import batch execution
func RecordImportBatch(entityType string, durationSeconds float64) {
	ImportBatchDuration.WithLabelValues(entityType).Observe(durationSeconds)
}

// RecordMerge records a merge operation
func RecordMerge(entityType, status string) {
	MergesTotal.WithLabelValues(entityType, status).Inc()
}

// RecordReviewFlag records a review flag action
func RecordReviewFlag(entityType, action string) {
	ReviewFlagsTotal.WithLabelValues(entityType, action).Inc()
}

// RecordDuplicateCheck records a duplicate detection run
func RecordDuplicateCheck(entityType, result string) {
	DuplicateChecksTotal.WithLabelValues(entityType, result).Inc()
}

// RecordRevision records a revision log entry
func RecordRevision(entityType, action string) {
	RevisionsTotal.WithLabelValues(entityType, action).Inc()
}

// RecordKafkaPublish records a Kafka publish operation
func RecordKafkaPublish(topic, status string, durationSeconds float64) {
	KafkaMessagesPublished.WithLabelValues(topic, status).Inc()
	KafkaPublishDuration.Observe(durationSeconds)
}
