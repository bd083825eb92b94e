package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

// SprintRepository implements port.SprintRepository. Both Sprint and
// WorkItemSprint use ON CONFLICT semantics because multiple issue-transform
// workers may see the same sprint concurrently (spec.md §5).
type SprintRepository struct {
	pool *pgxpool.Pool
}

// NewSprintRepository creates a new sprint repository.
func NewSprintRepository(pool *pgxpool.Pool) *SprintRepository {
	return &SprintRepository{pool: pool}
}

var sprintColumns = []string{"id", "tenant_id", "integration_id", "external_id", "board_id", "name", "state", "active"}

// UpsertSprints upserts Sprint rows keyed by (tenant_id, integration_id,
// external_id) and returns the resolved external_id -> internal id map so
// callers can build WorkItemSprint edges without a second round trip.
func (r *SprintRepository) UpsertSprints(ctx context.Context, sprints []*domain.Sprint) (map[string]uuid.UUID, error) {
	if len(sprints) == 0 {
		return map[string]uuid.UUID{}, nil
	}
	rows := make([][]any, len(sprints))
	externalIDs := make([]string, len(sprints))
	var integrationID uuid.UUID
	for i, s := range sprints {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		rows[i] = []any{s.ID, s.TenantID, s.IntegrationID, s.ExternalID, s.BoardID, s.Name, s.State, s.Active}
		externalIDs[i] = s.ExternalID
		integrationID = s.IntegrationID
	}
	if err := bulkUpsert(ctx, r.pool, "sprints", sprintColumns, rows, []string{"tenant_id", "integration_id", "external_id"}, 0); err != nil {
		return nil, err
	}
	return idsByExternalID(ctx, r.pool, "sprints", integrationID, externalIDs)
}

// LinkWorkItemSprints inserts work_items_sprints edges, unique on
// (work_item_id, sprint_id, added_date), ON CONFLICT DO NOTHING so
// concurrent workers associating the same issue/sprint pair never fail.
func (r *SprintRepository) LinkWorkItemSprints(ctx context.Context, edges []domain.WorkItemSprint) error {
	rows := make([][]any, len(edges))
	for i, e := range edges {
		rows[i] = []any{e.WorkItemID, e.SprintID, e.TenantID, e.AddedDate, e.Active}
	}
	return bulkInsertOnConflictDoNothing(ctx, r.pool,
		"work_items_sprints",
		[]string{"work_item_id", "sprint_id", "tenant_id", "added_date", "active"},
		rows,
		[]string{"work_item_id", "sprint_id", "added_date"},
		0)
}
