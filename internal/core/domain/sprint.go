package domain

import (
	"time"

	"github.com/google/uuid"
)

// Sprint mirrors one provider-side sprint. Upserted on conflict by
// (tenant_id, integration_id, external_id).
type Sprint struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	ExternalID    string
	BoardID       string
	Name          string
	State         string
	Active        bool
}

// WorkItemSprint is the many-to-many edge between WorkItem and Sprint,
// unique on (work_item_id, sprint_id, added_date).
type WorkItemSprint struct {
	WorkItemID uuid.UUID
	SprintID   uuid.UUID
	TenantID   uuid.UUID
	AddedDate  time.Time
	Active     bool
}
