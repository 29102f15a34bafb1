package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chanvault/internal/models"
)

const namespace = "chanvault"

// Collector holds the archiver's counters on its own registry.
type Collector struct {
	registry *prometheus.Registry

	threadSyncs        *prometheus.CounterVec
	postsAdded         *prometheus.CounterVec
	postsFlagged       *prometheus.CounterVec
	attachmentsStored  *prometheus.CounterVec
	attachmentFailures *prometheus.CounterVec
	syncDuration       *prometheus.HistogramVec
}

// New creates a collector with a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		threadSyncs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "thread_syncs_total",
			Help:      "Thread synchronization units by outcome.",
		}, []string{"board", "status"}),
		postsAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_added_total",
			Help:      "Posts appended to archived threads.",
		}, []string{"board"}),
		postsFlagged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "posts_flagged_deleted_total",
			Help:      "Archived posts flagged as deleted remotely.",
		}, []string{"board"}),
		attachmentsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_stored_total",
			Help:      "Attachments referenced by newly archived posts.",
		}, []string{"board"}),
		attachmentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachment_failures_total",
			Help:      "Attachments that could not be fetched and were omitted.",
		}, []string{"board"}),
		syncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "thread_sync_duration_seconds",
			Help:      "Wall time of one thread synchronization unit.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"board"}),
	}
}

// Registry exposes the underlying registry for serving.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRun records one finished sync unit. A nil collector is a no-op.
func (c *Collector) ObserveRun(run models.SyncRun) {
	if c == nil {
		return
	}
	c.threadSyncs.WithLabelValues(run.Board, string(run.Status)).Inc()
	c.syncDuration.WithLabelValues(run.Board).Observe(durationSeconds(run.StartedAt, run.FinishedAt))
	if run.Status == models.SyncStatusFailed {
		return
	}
	c.postsAdded.WithLabelValues(run.Board).Add(float64(run.Added))
	c.postsFlagged.WithLabelValues(run.Board).Add(float64(run.RemovedFlagged))
	c.attachmentsStored.WithLabelValues(run.Board).Add(float64(run.Attachments))
	c.attachmentFailures.WithLabelValues(run.Board).Add(float64(run.AttachmentFailures))
}

func durationSeconds(start, end time.Time) float64 {
	if start.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start).Seconds()
}
