package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// CustomFieldRepository implements port.CustomFieldRepository: the custom
// field catalog (global per integration) and the fixed-column routing
// table CustomFieldMapping (spec.md §3/§4.9.3).
type CustomFieldRepository struct {
	pool *pgxpool.Pool
}

// NewCustomFieldRepository creates a new custom field repository.
func NewCustomFieldRepository(pool *pgxpool.Pool) *CustomFieldRepository {
	return &CustomFieldRepository{pool: pool}
}

var customFieldColumns = []string{"id", "tenant_id", "integration_id", "external_id", "name", "field_type", "operations", "active"}

// UpsertFields upserts CustomField rows keyed by (integration_id, external_id).
func (r *CustomFieldRepository) UpsertFields(ctx context.Context, fields []*domain.CustomField) error {
	rows := make([][]any, len(fields))
	for i, f := range fields {
		if f.ID == uuid.Nil {
			f.ID = uuid.New()
		}
		rows[i] = []any{f.ID, f.TenantID, f.IntegrationID, f.ExternalID, f.Name, f.FieldType, f.Operations, f.Active}
	}
	return bulkUpsert(ctx, r.pool, "custom_fields", customFieldColumns, rows, []string{"integration_id", "external_id"}, 0)
}

// FindMapping returns the (tenant_id, integration_id) custom field
// mapping row, or nil if none has been configured yet.
func (r *CustomFieldRepository) FindMapping(ctx context.Context, tenantID, integrationID uuid.UUID) (*domain.CustomFieldMapping, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT team_field_id, sprints_field_id, development_field_id, story_points_field_id,
		       custom_field_ids
		  FROM custom_field_mappings
		 WHERE tenant_id = $1 AND integration_id = $2`, tenantID, integrationID)

	m := &domain.CustomFieldMapping{TenantID: tenantID, IntegrationID: integrationID}
	var ids []*string
	if err := row.Scan(&m.TeamFieldID, &m.SprintsFieldID, &m.DevelopmentFieldID, &m.StoryPointsFieldID, &ids); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomFieldMappingMissing
		}
		return nil, err
	}
	for i := 0; i < domain.CustomFieldCount && i < len(ids); i++ {
		m.CustomFieldIDs[i] = ids[i]
	}
	return m, nil
}

// SaveMapping upserts the single mapping row for (tenant_id, integration_id).
func (r *CustomFieldRepository) SaveMapping(ctx context.Context, mapping *domain.CustomFieldMapping) error {
	ids := make([]*string, domain.CustomFieldCount)
	copy(ids, mapping.CustomFieldIDs[:])

	_, err := r.pool.Exec(ctx, `
		INSERT INTO custom_field_mappings
			(tenant_id, integration_id, team_field_id, sprints_field_id, development_field_id, story_points_field_id, custom_field_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id, integration_id) DO UPDATE SET
			team_field_id = EXCLUDED.team_field_id,
			sprints_field_id = EXCLUDED.sprints_field_id,
			development_field_id = EXCLUDED.development_field_id,
			story_points_field_id = EXCLUDED.story_points_field_id,
			custom_field_ids = EXCLUDED.custom_field_ids,
			updated_at = now()`,
		mapping.TenantID, mapping.IntegrationID, mapping.TeamFieldID, mapping.SprintsFieldID,
		mapping.DevelopmentFieldID, mapping.StoryPointsFieldID, ids)
	return err
}
