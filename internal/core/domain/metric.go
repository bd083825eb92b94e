package domain

import (
	"time"

	"github.com/google/uuid"
)

// Metric is one data point in the pipeline's operational time series:
// counters and gauges emitted by the extraction/transform workers and the
// scheduler as they run. These are distinct from the per-work-item
// workflow metric columns, which are derived data, not telemetry.
type Metric struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Value     float64
	Labels    map[string]string
	Source    *string
	Timestamp time.Time
	CreatedAt time.Time
}

// The pipeline's metric vocabulary. Alert rules key off these names, so
// the set is closed: ingest rejects names outside it rather than letting
// a typo silently create an unalertable series.
const (
	MetricRateLimitHits      = "rate_limit_hits_total"
	MetricDLQRows            = "dlq_rows_total"
	MetricJobScheduleFailed  = "job_schedule_failed_total"
	MetricStuckRunning       = "stuck_running_seconds"
	MetricIssuesProcessed    = "issues_processed_total"
	MetricChangelogsInserted = "changelogs_inserted_total"
	MetricPrLinksCreated     = "pr_links_created_total"
	// MetricEmbeddingJobs is reported by the downstream embedding stage
	// over the ingest API, not emitted in-process.
	MetricEmbeddingJobs = "embedding_jobs_processed_total"
)

var knownMetricNames = map[string]struct{}{
	MetricRateLimitHits:      {},
	MetricDLQRows:            {},
	MetricJobScheduleFailed:  {},
	MetricStuckRunning:       {},
	MetricIssuesProcessed:    {},
	MetricChangelogsInserted: {},
	MetricPrLinksCreated:     {},
	MetricEmbeddingJobs:      {},
}

// KnownMetricName reports whether name is part of the pipeline vocabulary.
func KnownMetricName(name string) bool {
	_, ok := knownMetricNames[name]
	return ok
}

// MetricNames returns the pipeline vocabulary in stable order.
func MetricNames() []string {
	return []string{
		MetricRateLimitHits, MetricDLQRows, MetricJobScheduleFailed, MetricStuckRunning,
		MetricIssuesProcessed, MetricChangelogsInserted, MetricPrLinksCreated, MetricEmbeddingJobs,
	}
}

// IsValid checks that the data point can be persisted.
func (m *Metric) IsValid() bool {
	return m.TenantID != uuid.Nil && KnownMetricName(m.Name)
}

// MetricAggregate summarizes one series over a query window.
type MetricAggregate struct {
	Count   int64
	Average float64
	Min     float64
	Max     float64
	Sum     float64
}

// TimeBucket is one bucket of a time-bucketed series query.
type TimeBucket struct {
	Bucket  time.Time
	Count   int64
	Average float64
	Min     float64
	Max     float64
	Sum     float64
}

// MetricQuery selects data points of one series, optionally narrowed by
// labels and a time window.
type MetricQuery struct {
	TenantID  uuid.UUID
	Name      string
	Labels    map[string]string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// Validate checks the query's required fields and window ordering.
func (q *MetricQuery) Validate() error {
	if q.TenantID == uuid.Nil {
		return ErrInvalidMetricQuery
	}
	if q.Name == "" {
		return ErrInvalidMetricName
	}
	if !q.StartTime.IsZero() && !q.EndTime.IsZero() && q.StartTime.After(q.EndTime) {
		return ErrInvalidTimeRange
	}
	return nil
}
