package domain

import "github.com/google/uuid"

// CustomField mirrors one provider-side custom field definition, global per
// integration.
type CustomField struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	ExternalID    string
	Name          string
	FieldType     string
	Operations    []string
	Active        bool
}

// CustomFieldCount is the number of fixed custom_field_NN columns a WorkItem
// carries, routed through CustomFieldMapping.
const CustomFieldCount = 20

// CustomFieldMapping routes provider-side field IDs to the fixed columns on
// WorkItem. One row per (tenant_id, integration_id).
type CustomFieldMapping struct {
	TenantID           uuid.UUID
	IntegrationID      uuid.UUID
	TeamFieldID        *string
	SprintsFieldID     *string
	DevelopmentFieldID *string
	StoryPointsFieldID *string
	CustomFieldIDs     [CustomFieldCount]*string
}

// ColumnForExternalID returns the WorkItem.CustomFields index (0-based) that
// the given provider field ID is routed to, or -1 if unmapped.
func (m *CustomFieldMapping) ColumnForExternalID(externalID string) int {
	for i, id := range m.CustomFieldIDs {
		if id != nil && *id == externalID {
			return i
		}
	}
	return -1
}
