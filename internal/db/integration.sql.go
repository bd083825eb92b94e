package db

import (
	"context"

	"github.com/google/uuid"
)

const getIntegration = `-- name: GetIntegration :one
SELECT id, tenant_id, provider, encrypted_creds, base_url, base_search_filter, active, created_at, updated_at
FROM integrations WHERE id = $1 AND active = true
`

func (q *Queries) GetIntegration(ctx context.Context, id uuid.UUID) (Integration, error) {
	row := q.db.QueryRow(ctx, getIntegration, id)
	var i Integration
	err := row.Scan(&i.ID, &i.TenantID, &i.Provider, &i.EncryptedCreds, &i.BaseURL, &i.BaseSearchFilter, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const listIntegrations = `-- name: ListIntegrations :many
SELECT id, tenant_id, provider, encrypted_creds, base_url, base_search_filter, active, created_at, updated_at
FROM integrations WHERE tenant_id = $1 AND active = true
ORDER BY created_at DESC LIMIT $2 OFFSET $3
`

type ListIntegrationsParams struct {
	TenantID uuid.UUID
	Limit    int32
	Offset   int32
}

func (q *Queries) ListIntegrations(ctx context.Context, arg ListIntegrationsParams) ([]Integration, error) {
	rows, err := q.db.Query(ctx, listIntegrations, arg.TenantID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Integration
	for rows.Next() {
		var i Integration
		if err := rows.Scan(&i.ID, &i.TenantID, &i.Provider, &i.EncryptedCreds, &i.BaseURL, &i.BaseSearchFilter, &i.Active, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countIntegrations = `-- name: CountIntegrations :one
SELECT count(*) FROM integrations WHERE tenant_id = $1 AND active = true
`

func (q *Queries) CountIntegrations(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	row := q.db.QueryRow(ctx, countIntegrations, tenantID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createIntegration = `-- name: CreateIntegration :one
INSERT INTO integrations (tenant_id, provider, encrypted_creds, base_url, base_search_filter, active)
VALUES ($1, $2, $3, $4, $5, true)
RETURNING id, tenant_id, provider, encrypted_creds, base_url, base_search_filter, active, created_at, updated_at
`

type CreateIntegrationParams struct {
	TenantID         uuid.UUID
	Provider         string
	EncryptedCreds   []byte
	BaseURL          string
	BaseSearchFilter string
}

func (q *Queries) CreateIntegration(ctx context.Context, arg CreateIntegrationParams) (Integration, error) {
	row := q.db.QueryRow(ctx, createIntegration, arg.TenantID, arg.Provider, arg.EncryptedCreds, arg.BaseURL, arg.BaseSearchFilter)
	var i Integration
	err := row.Scan(&i.ID, &i.TenantID, &i.Provider, &i.EncryptedCreds, &i.BaseURL, &i.BaseSearchFilter, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const updateIntegration = `-- name: UpdateIntegration :one
UPDATE integrations SET
  encrypted_creds = COALESCE($2, encrypted_creds),
  base_url = COALESCE($3, base_url),
  base_search_filter = COALESCE($4, base_search_filter),
  active = COALESCE($5, active),
  updated_at = now()
WHERE id = $1
RETURNING id, tenant_id, provider, encrypted_creds, base_url, base_search_filter, active, created_at, updated_at
`

type UpdateIntegrationParams struct {
	ID               uuid.UUID
	EncryptedCreds   []byte
	BaseURL          *string
	BaseSearchFilter *string
	Active           *bool
}

func (q *Queries) UpdateIntegration(ctx context.Context, arg UpdateIntegrationParams) (Integration, error) {
	row := q.db.QueryRow(ctx, updateIntegration, arg.ID, arg.EncryptedCreds, arg.BaseURL, arg.BaseSearchFilter, arg.Active)
	var i Integration
	err := row.Scan(&i.ID, &i.TenantID, &i.Provider, &i.EncryptedCreds, &i.BaseURL, &i.BaseSearchFilter, &i.Active, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const deleteIntegration = `-- name: DeleteIntegration :exec
UPDATE integrations SET active = false, updated_at = now() WHERE id = $1
`

func (q *Queries) DeleteIntegration(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteIntegration, id)
	return err
}
