// Package telemetry exposes batch progress as Prometheus metrics for
// operators running large annotation batches.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsQueuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_jobs_queued_total",
		Help: "Total number of jobs accepted for dispatch",
	})
	JobsInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gannet_jobs_in_progress",
		Help: "Number of jobs currently running",
	})
	JobsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_jobs_completed_total",
		Help: "Total number of jobs completed successfully",
	})
	JobsFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_jobs_failed_total",
		Help: "Total number of jobs failed",
	})
	JobsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_jobs_skipped_total",
		Help: "Total number of jobs skipped because their output already existed",
	})
	InputsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_inputs_rejected_total",
		Help: "Total number of inputs rejected by pre-flight checks",
	})
	UploadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_uploads_total",
		Help: "Total number of genome files uploaded to the store",
	})
	UploadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gannet_upload_bytes_total",
		Help: "Total bytes uploaded to the store",
	})
	JobDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "gannet_job_duration_seconds",
		Help: "Wall-clock duration of annotation jobs",
		// Annotation jobs range from seconds to hours
		Buckets: prometheus.ExponentialBuckets(1, 2, 14),
	})
)

func init() {
	prometheus.MustRegister(
		JobsQueuedTotal,
		JobsInProgress,
		JobsCompletedTotal,
		JobsFailedTotal,
		JobsSkippedTotal,
		InputsRejectedTotal,
		UploadsTotal,
		UploadBytesTotal,
		JobDurationSeconds,
	)
}
