package domain

import "github.com/google/uuid"

// StatusCategory buckets a provider status into the coarse category used by
// the workflow metrics engine to classify changelog transitions.
type StatusCategory string

const (
	StatusCategoryToDo       StatusCategory = "to do"
	StatusCategoryInProgress StatusCategory = "in progress"
	StatusCategoryDone       StatusCategory = "done"
)

// Status mirrors one provider-side workflow status, globally deduplicated
// by external_id per integration.
type Status struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	ExternalID    string
	OriginalName  string
	Category      StatusCategory
	Description   string
	MappingID     *string
	Active        bool
}

// ProjectStatus is the many-to-many edge between Project and Status, unique
// on (project_id, status_id).
type ProjectStatus struct {
	ProjectID uuid.UUID
	StatusID  uuid.UUID
}
