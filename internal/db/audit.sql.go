package db

import (
	"context"
	"net/netip"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const auditLogColumns = `id, tenant_id, user_id, event_type, resource_type, resource_id, action,
  old_value, new_value, ip_address, user_agent, created_at`

func scanAuditLog(row interface{ Scan(dest ...any) error }) (AuditLog, error) {
	var a AuditLog
	err := row.Scan(&a.ID, &a.TenantID, &a.UserID, &a.EventType, &a.ResourceType, &a.ResourceID, &a.Action,
		&a.OldValue, &a.NewValue, &a.IpAddress, &a.UserAgent, &a.CreatedAt)
	return a, err
}

const listAuditLogs = `-- name: ListAuditLogs :many
SELECT ` + auditLogColumns + ` FROM audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListAuditLogsParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

const countAuditLogsByTenant = `-- name: CountAuditLogsByTenant :one
SELECT count(*) FROM audit_logs WHERE tenant_id = $1
`

func (q *Queries) CountAuditLogsByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countAuditLogsByTenant, tenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createAuditLog = `-- name: CreateAuditLog :one
INSERT INTO audit_logs (tenant_id, user_id, event_type, resource_type, resource_id, action, old_value, new_value, ip_address, user_agent)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + auditLogColumns + `
`

type CreateAuditLogParams struct {
	TenantID     uuid.UUID
	UserID       pgtype.UUID
	EventType    string
	ResourceType string
	ResourceID   pgtype.UUID
	Action       string
	OldValue     []byte
	NewValue     []byte
	IpAddress    *netip.Addr
	UserAgent    *string
}

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) (AuditLog, error) {
	return scanAuditLog(q.db.QueryRow(ctx, createAuditLog, arg.TenantID, arg.UserID, arg.EventType, arg.ResourceType,
		arg.ResourceID, arg.Action, arg.OldValue, arg.NewValue, arg.IpAddress, arg.UserAgent))
}
