package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// ReferenceDataRepository implements port.ReferenceDataRepository: bulk
// upsert of Project/WorkItemType/Status and their project edges (C9.1/C9.2
// transform targets), plus the external_id -> internal id lookup maps the
// issue transformer resolves foreign keys through (spec.md §9's "resolve
// by id at transform time via lookup maps built from one query per table").
type ReferenceDataRepository struct {
	pool *pgxpool.Pool
}

// NewReferenceDataRepository creates a new reference-data repository.
func NewReferenceDataRepository(pool *pgxpool.Pool) *ReferenceDataRepository {
	return &ReferenceDataRepository{pool: pool}
}

var projectColumns = []string{"id", "tenant_id", "integration_id", "external_id", "key", "name", "project_type", "active"}

// UpsertProjects upserts Project rows keyed by (integration_id, external_id).
func (r *ReferenceDataRepository) UpsertProjects(ctx context.Context, projects []*domain.Project) error {
	rows := make([][]any, len(projects))
	for i, p := range projects {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		rows[i] = []any{p.ID, p.TenantID, p.IntegrationID, p.ExternalID, p.Key, p.Name, p.ProjectType, p.Active}
	}
	return bulkUpsert(ctx, r.pool, "projects", projectColumns, rows, []string{"integration_id", "external_id"}, 0)
}

var witColumns = []string{"id", "tenant_id", "integration_id", "external_id", "original_name", "description", "hierarchy_level", "mapping_id", "active"}

// UpsertWorkItemTypes upserts WorkItemType rows, globally deduplicated by
// external_id within one integration (spec.md §3).
func (r *ReferenceDataRepository) UpsertWorkItemTypes(ctx context.Context, wits []*domain.WorkItemType) error {
	rows := make([][]any, len(wits))
	for i, w := range wits {
		if w.ID == uuid.Nil {
			w.ID = uuid.New()
		}
		rows[i] = []any{w.ID, w.TenantID, w.IntegrationID, w.ExternalID, w.OriginalName, w.Description, w.HierarchyLevel, w.MappingID, w.Active}
	}
	return bulkUpsert(ctx, r.pool, "work_item_types", witColumns, rows, []string{"integration_id", "external_id"}, 0)
}

var statusColumns = []string{"id", "tenant_id", "integration_id", "external_id", "original_name", "category", "description", "mapping_id", "active"}

// UpsertStatuses upserts Status rows, globally deduplicated by external_id
// within one integration.
func (r *ReferenceDataRepository) UpsertStatuses(ctx context.Context, statuses []*domain.Status) error {
	rows := make([][]any, len(statuses))
	for i, s := range statuses {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		rows[i] = []any{s.ID, s.TenantID, s.IntegrationID, s.ExternalID, s.OriginalName, string(s.Category), s.Description, s.MappingID, s.Active}
	}
	return bulkUpsert(ctx, r.pool, "statuses", statusColumns, rows, []string{"integration_id", "external_id"}, 0)
}

// LinkProjectWits inserts projects_wits edges, ON CONFLICT DO NOTHING
// (spec.md §4.9.1).
func (r *ReferenceDataRepository) LinkProjectWits(ctx context.Context, edges []domain.ProjectWorkItemType) error {
	rows := make([][]any, len(edges))
	for i, e := range edges {
		rows[i] = []any{e.ProjectID, e.WitID}
	}
	return bulkInsertOnConflictDoNothing(ctx, r.pool, "projects_wits", []string{"project_id", "wit_id"}, rows, []string{"project_id", "wit_id"}, 0)
}

// LinkProjectStatuses inserts projects_statuses edges, ON CONFLICT DO
// NOTHING (spec.md §4.9.2).
func (r *ReferenceDataRepository) LinkProjectStatuses(ctx context.Context, edges []domain.ProjectStatus) error {
	rows := make([][]any, len(edges))
	for i, e := range edges {
		rows[i] = []any{e.ProjectID, e.StatusID}
	}
	return bulkInsertOnConflictDoNothing(ctx, r.pool, "projects_statuses", []string{"project_id", "status_id"}, rows, []string{"project_id", "status_id"}, 0)
}

// ProjectIDsByExternalID resolves a batch of external_ids to internal ids
// in one query, as spec.md §9 prescribes.
func (r *ReferenceDataRepository) ProjectIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return idsByExternalID(ctx, r.pool, "projects", integrationID, externalIDs)
}

// WitIDsByExternalID resolves a batch of external_ids to internal ids.
func (r *ReferenceDataRepository) WitIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return idsByExternalID(ctx, r.pool, "work_item_types", integrationID, externalIDs)
}

// StatusIDsByExternalID resolves a batch of external_ids to internal ids.
func (r *ReferenceDataRepository) StatusIDsByExternalID(ctx context.Context, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	return idsByExternalID(ctx, r.pool, "statuses", integrationID, externalIDs)
}

// StatusCategoryMap loads every active status's category for an
// integration, keyed by internal id, for the workflow metrics engine.
func (r *ReferenceDataRepository) StatusCategoryMap(ctx context.Context, integrationID uuid.UUID) (map[uuid.UUID]domain.StatusCategory, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category FROM statuses WHERE integration_id = $1 AND active = true`, integrationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[uuid.UUID]domain.StatusCategory)
	for rows.Next() {
		var id uuid.UUID
		var cat string
		if err := rows.Scan(&id, &cat); err != nil {
			return nil, err
		}
		out[id] = domain.StatusCategory(cat)
	}
	return out, rows.Err()
}

// StatusesUpdatedSince returns every active status whose updated_at is at
// or after since, used by the statuses transformer's last_item fan-out to
// the embedding queue (spec.md §4.9.2).
func (r *ReferenceDataRepository) StatusesUpdatedSince(ctx context.Context, integrationID uuid.UUID, since time.Time) ([]*domain.Status, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, integration_id, external_id, original_name, category, description, mapping_id, active
		   FROM statuses WHERE integration_id = $1 AND active = true AND updated_at >= $2`,
		integrationID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Status
	for rows.Next() {
		var s domain.Status
		var cat string
		if err := rows.Scan(&s.ID, &s.TenantID, &s.IntegrationID, &s.ExternalID, &s.OriginalName, &cat, &s.Description, &s.MappingID, &s.Active); err != nil {
			return nil, err
		}
		s.Category = domain.StatusCategory(cat)
		out = append(out, &s)
	}
	return out, rows.Err()
}

func idsByExternalID(ctx context.Context, pool *pgxpool.Pool, table string, integrationID uuid.UUID, externalIDs []string) (map[string]uuid.UUID, error) {
	out := make(map[string]uuid.UUID, len(externalIDs))
	if len(externalIDs) == 0 {
		return out, nil
	}
	sql := fmt.Sprintf(`SELECT external_id, id FROM %s WHERE integration_id = $1 AND active = true AND external_id = ANY($2)`, table)
	rows, err := pool.Query(ctx, sql, integrationID, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var extID string
		var id uuid.UUID
		if err := rows.Scan(&extID, &id); err != nil {
			return nil, err
		}
		out[extID] = id
	}
	return out, rows.Err()
}
