package db

import (
	"context"

	"github.com/google/uuid"
)

const getTenant = `-- name: GetTenant :one
SELECT id, tier, active FROM tenants WHERE id = $1
`

func (q *Queries) GetTenant(ctx context.Context, id uuid.UUID) (Tenant, error) {
	row := q.db.QueryRow(ctx, getTenant, id)
	var t Tenant
	err := row.Scan(&t.ID, &t.Tier, &t.Active)
	return t, err
}

const upsertTenant = `-- name: UpsertTenant :one
INSERT INTO tenants (id, tier, active)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET tier = EXCLUDED.tier, active = EXCLUDED.active
RETURNING id, tier, active
`

type UpsertTenantParams struct {
	ID     uuid.UUID
	Tier   string
	Active bool
}

func (q *Queries) UpsertTenant(ctx context.Context, arg UpsertTenantParams) (Tenant, error) {
	row := q.db.QueryRow(ctx, upsertTenant, arg.ID, arg.Tier, arg.Active)
	var t Tenant
	err := row.Scan(&t.ID, &t.Tier, &t.Active)
	return t, err
}
