package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const metricColumns = `id, tenant_id, name, value, labels, source, timestamp, created_at`

func scanMetric(row interface{ Scan(dest ...any) error }) (Metric, error) {
	var m Metric
	err := row.Scan(&m.ID, &m.TenantID, &m.Name, &m.Value, &m.Labels, &m.Source, &m.Timestamp, &m.CreatedAt)
	return m, err
}

const insertMetric = `-- name: InsertMetric :one
INSERT INTO ops_metrics (tenant_id, name, value, labels, source, timestamp)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + metricColumns + `
`

type InsertMetricParams struct {
	TenantID  uuid.UUID
	Name      string
	Value     float64
	Labels    []byte
	Source    *string
	Timestamp time.Time
}

func (q *Queries) InsertMetric(ctx context.Context, arg InsertMetricParams) (Metric, error) {
	return scanMetric(q.db.QueryRow(ctx, insertMetric, arg.TenantID, arg.Name, arg.Value, arg.Labels, arg.Source, arg.Timestamp))
}

type InsertMetricsBatchParams struct {
	TenantID  uuid.UUID
	Name      string
	Value     float64
	Labels    []byte
	Source    *string
	Timestamp time.Time
}

// InsertMetricsBatch uses pgx.CopyFrom for high-throughput bulk insert.
func (q *Queries) InsertMetricsBatch(ctx context.Context, arg []InsertMetricsBatchParams) (int64, error) {
	rows := make([][]any, len(arg))
	for i, p := range arg {
		rows[i] = []any{p.TenantID, p.Name, p.Value, p.Labels, p.Source, p.Timestamp}
	}
	return q.db.(interface {
		CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	}).CopyFrom(ctx, pgx.Identifier{"ops_metrics"},
		[]string{"tenant_id", "name", "value", "labels", "source", "timestamp"},
		pgx.CopyFromRows(rows))
}

const getMetrics = `-- name: GetMetrics :many
SELECT ` + metricColumns + ` FROM ops_metrics
WHERE tenant_id = $1 AND name = $2 AND timestamp >= $3 AND timestamp <= $4
ORDER BY timestamp DESC LIMIT $5 OFFSET $6
`

type GetMetricsParams struct {
	TenantID    uuid.UUID
	Name        string
	Timestamp   time.Time
	Timestamp_2 time.Time
	Limit       int32
	Offset      int32
}

func (q *Queries) GetMetrics(ctx context.Context, arg GetMetricsParams) ([]Metric, error) {
	rows, err := q.db.Query(ctx, getMetrics, arg.TenantID, arg.Name, arg.Timestamp, arg.Timestamp_2, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const getMetricsByLabels = `-- name: GetMetricsByLabels :many
SELECT ` + metricColumns + ` FROM ops_metrics
WHERE tenant_id = $1 AND name = $2 AND labels @> $3 AND timestamp >= $4 AND timestamp <= $5
ORDER BY timestamp DESC LIMIT $6
`

type GetMetricsByLabelsParams struct {
	TenantID    uuid.UUID
	Name        string
	Labels      []byte
	Timestamp   time.Time
	Timestamp_2 time.Time
	Limit       int32
}

func (q *Queries) GetMetricsByLabels(ctx context.Context, arg GetMetricsByLabelsParams) ([]Metric, error) {
	rows, err := q.db.Query(ctx, getMetricsByLabels, arg.TenantID, arg.Name, arg.Labels, arg.Timestamp, arg.Timestamp_2, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Metric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

const countMetrics = `-- name: CountMetrics :one
SELECT count(*) FROM ops_metrics WHERE tenant_id = $1 AND name = $2 AND timestamp >= $3 AND timestamp <= $4
`

type CountMetricsParams struct {
	TenantID    uuid.UUID
	Name        string
	Timestamp   time.Time
	Timestamp_2 time.Time
}

func (q *Queries) CountMetrics(ctx context.Context, arg CountMetricsParams) (int64, error) {
	row := q.db.QueryRow(ctx, countMetrics, arg.TenantID, arg.Name, arg.Timestamp, arg.Timestamp_2)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const getLatestMetric = `-- name: GetLatestMetric :one
SELECT ` + metricColumns + ` FROM ops_metrics WHERE tenant_id = $1 AND name = $2 ORDER BY timestamp DESC LIMIT 1
`

type GetLatestMetricParams struct {
	TenantID uuid.UUID
	Name     string
}

func (q *Queries) GetLatestMetric(ctx context.Context, arg GetLatestMetricParams) (Metric, error) {
	return scanMetric(q.db.QueryRow(ctx, getLatestMetric, arg.TenantID, arg.Name))
}

const getMetricsAggregate = `-- name: GetMetricsAggregate :one
SELECT
  count(*) AS count,
  COALESCE(avg(value), 0)::float8 AS avg_value,
  COALESCE(sum(value), 0)::float8 AS sum_value,
  COALESCE(min(value), 0)::float8 AS min_value,
  COALESCE(max(value), 0)::float8 AS max_value
FROM ops_metrics WHERE tenant_id = $1 AND name = $2 AND timestamp >= $3 AND timestamp <= $4
`

type GetMetricsAggregateParams struct {
	TenantID    uuid.UUID
	Name        string
	Timestamp   time.Time
	Timestamp_2 time.Time
}

type GetMetricsAggregateRow struct {
	Count    int64
	AvgValue float64
	SumValue float64
	MinValue float64
	MaxValue float64
}

func (q *Queries) GetMetricsAggregate(ctx context.Context, arg GetMetricsAggregateParams) (GetMetricsAggregateRow, error) {
	row := q.db.QueryRow(ctx, getMetricsAggregate, arg.TenantID, arg.Name, arg.Timestamp, arg.Timestamp_2)
	var r GetMetricsAggregateRow
	err := row.Scan(&r.Count, &r.AvgValue, &r.SumValue, &r.MinValue, &r.MaxValue)
	return r, err
}

const getMetricsSeries = `-- name: GetMetricsSeries :many
SELECT
  date_bin($1, timestamp, '2000-01-01'::timestamptz) AS bucket,
  count(*) AS count,
  avg(value)::float8 AS avg_value,
  sum(value)::float8 AS sum_value,
  min(value)::float8 AS min_value,
  max(value)::float8 AS max_value
FROM ops_metrics WHERE tenant_id = $2 AND name = $3 AND timestamp >= $4 AND timestamp <= $5
GROUP BY bucket ORDER BY bucket ASC
`

type GetMetricsSeriesParams struct {
	BucketSize  pgtype.Interval
	TenantID    uuid.UUID
	Name        string
	Timestamp   time.Time
	Timestamp_2 time.Time
}

type GetMetricsSeriesRow struct {
	Bucket   time.Time
	Count    int64
	AvgValue float64
	SumValue float64
	MinValue float64
	MaxValue float64
}

func (q *Queries) GetMetricsSeries(ctx context.Context, arg GetMetricsSeriesParams) ([]GetMetricsSeriesRow, error) {
	rows, err := q.db.Query(ctx, getMetricsSeries, arg.BucketSize, arg.TenantID, arg.Name, arg.Timestamp, arg.Timestamp_2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GetMetricsSeriesRow
	for rows.Next() {
		var r GetMetricsSeriesRow
		if err := rows.Scan(&r.Bucket, &r.Count, &r.AvgValue, &r.SumValue, &r.MinValue, &r.MaxValue); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getMetricNames = `-- name: GetMetricNames :many
SELECT DISTINCT name FROM ops_metrics WHERE tenant_id = $1 ORDER BY name ASC
`

func (q *Queries) GetMetricNames(ctx context.Context, tenantID uuid.UUID) ([]string, error) {
	rows, err := q.db.Query(ctx, getMetricNames, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

const getMetricNamesWithPrefix = `-- name: GetMetricNamesWithPrefix :many
SELECT DISTINCT name FROM ops_metrics WHERE tenant_id = $1 AND name LIKE $2 || '%' ORDER BY name ASC
`

type GetMetricNamesWithPrefixParams struct {
	TenantID uuid.UUID
	Column2  *string
}

func (q *Queries) GetMetricNamesWithPrefix(ctx context.Context, arg GetMetricNamesWithPrefixParams) ([]string, error) {
	rows, err := q.db.Query(ctx, getMetricNamesWithPrefix, arg.TenantID, arg.Column2)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
