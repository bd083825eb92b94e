// Package db is the generated-style query layer backing the control-plane
// entities (JobSchedule, Execution, Integration, Tenant, Alert, AlertRule,
// AuditLog, Metric). It follows sqlc's conventional
// shape — a DBTX interface, a Queries struct embedding raw SQL per method,
// and New(pool) — hand-authored here because no sqlc config or .sql source
// ships with this retrieval pack (see DESIGN.md).
//
// Bulk/batch ETL entities (Project, WorkItemType, Status, CustomField,
// WorkItem, Changelog, Sprint, WorkItemPrLink, RawExtractionData,
// ExtractionFailure) are NOT modeled here: their access patterns are
// chunked multi-row INSERT/UPDATE/UPSERT, which this single-row query
// layer doesn't fit. Those repositories talk to pgx directly, the same way
// this codebase's TenantContextSetter always has.
package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX abstracts over *pgxpool.Pool and pgx.Tx so Queries can run inside or
// outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries is the generated-style query handle, one method per statement.
type Queries struct {
	db DBTX
}

// New constructs Queries over a pool or an in-flight transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction, for callers
// that need several statements to commit atomically.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

var _ DBTX = (*pgxpool.Pool)(nil)
var _ DBTX = (pgx.Tx)(nil)
