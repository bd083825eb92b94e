package domain

import "github.com/google/uuid"

// Project mirrors one provider-side project, keyed by external_id unique
// per integration.
type Project struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	ExternalID    string
	Key           string
	Name          string
	ProjectType   string
	Active        bool
}
