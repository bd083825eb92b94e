package domain

import "github.com/google/uuid"

// WorkItemType (Wit) is globally deduplicated by external_id across all
// projects of one integration.
type WorkItemType struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	IntegrationID  uuid.UUID
	ExternalID     string
	OriginalName   string
	Description    string
	HierarchyLevel int
	MappingID      *string
	Active         bool
}

// ProjectWorkItemType is the many-to-many edge between Project and
// WorkItemType, unique on (project_id, wit_id).
type ProjectWorkItemType struct {
	ProjectID uuid.UUID
	WitID     uuid.UUID
}
