package transform

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
	"github.com/orchestrix/tracksync/internal/envelope"
)

type referenceFixture struct {
	transformer *ReferenceDataTransformer
	raw         *mocks.MockRawExtractionRepository
	reference   *mocks.MockReferenceDataRepository
	customField *mocks.MockCustomFieldRepository
	publisher   *mocks.MockQueuePublisher

	tenantID      uuid.UUID
	integrationID uuid.UUID
}

func newReferenceFixture() *referenceFixture {
	f := &referenceFixture{
		raw:           mocks.NewMockRawExtractionRepository(),
		reference:     mocks.NewMockReferenceDataRepository(),
		customField:   mocks.NewMockCustomFieldRepository(),
		publisher:     mocks.NewMockQueuePublisher(),
		tenantID:      uuid.New(),
		integrationID: uuid.New(),
	}
	f.transformer = NewReferenceDataTransformer(f.raw, f.reference, f.customField, f.publisher)
	return f
}

func (f *referenceFixture) stage(t *testing.T, msgType, payload string, lastItem bool) *envelope.Envelope {
	t.Helper()
	row := &domain.RawExtractionData{
		TenantID: f.tenantID, IntegrationID: f.integrationID,
		Type: domain.RawExtractionType(msgType), RawData: []byte(payload), Status: domain.RawExtractionPending,
	}
	require.NoError(t, f.raw.Save(context.Background(), row))
	return &envelope.Envelope{
		TenantID: f.tenantID, IntegrationID: f.integrationID, JobID: uuid.New(),
		Token: "tok", Type: msgType, Provider: "jira",
		RawDataID: &row.ID, LastItem: lastItem,
	}
}

// TestReferenceData_S5_SharedIssueType mirrors spec scenario S5: issue type
// 10001 appears in two projects and must dedup to one row with two edges.
func TestReferenceData_S5_SharedIssueType(t *testing.T) {
	f := newReferenceFixture()

	payload := `{"values": [
	  {"id": "10", "key": "P1", "name": "Project One", "issueTypes": [{"id": "10001", "name": "Story"}]},
	  {"id": "20", "key": "P2", "name": "Project Two", "issueTypes": [{"id": "10001", "name": "Story"}]}
	]}`
	env := f.stage(t, TypeProjectsAndIssueTypes, payload, false)

	require.NoError(t, f.transformer.HandleProjectsAndIssueTypes(context.Background(), domain.TierFree, env))

	assert.Len(t, f.reference.UpsertedProjects, 2)
	require.Len(t, f.reference.UpsertedWits, 1)
	assert.Equal(t, "10001", f.reference.UpsertedWits[0].ExternalID)
	assert.Len(t, f.reference.ProjectWitEdges, 2)
}

// The two parallel source implementations disagreed on "issueTypes" vs
// "issuetypes"; both must decode.
func TestReferenceData_AcceptsBothIssueTypeCasings(t *testing.T) {
	f := newReferenceFixture()

	payload := `{"values": [
	  {"id": "10", "key": "P1", "name": "One", "issuetypes": [{"id": "1", "name": "Bug"}]},
	  {"id": "20", "key": "P2", "name": "Two", "issueTypes": [{"id": "2", "name": "Task"}]}
	]}`
	env := f.stage(t, TypeProjectsAndIssueTypes, payload, false)

	require.NoError(t, f.transformer.HandleProjectsAndIssueTypes(context.Background(), domain.TierFree, env))
	assert.Len(t, f.reference.UpsertedWits, 2)
}

func TestReferenceData_StatusCategoriesNormalized(t *testing.T) {
	f := newReferenceFixture()

	payload := `{"project_id": "10", "statuses": [
	  {"id": "3", "name": "Bug", "statuses": [
	    {"id": "1", "name": "Backlog", "statusCategory": {"key": "new", "name": "To Do"}},
	    {"id": "2", "name": "Doing", "statusCategory": {"key": "indeterminate", "name": "In Progress"}},
	    {"id": "5", "name": "Shipped", "statusCategory": {"key": "done", "name": "Done"}}
	  ]}
	]}`
	f.reference.AddProject("10")
	env := f.stage(t, TypeStatusesAndRelations, payload, false)

	require.NoError(t, f.transformer.HandleStatuses(context.Background(), domain.TierFree, env))

	require.Len(t, f.reference.UpsertedStatuses, 3)
	byExt := map[string]domain.StatusCategory{}
	for _, s := range f.reference.UpsertedStatuses {
		byExt[s.ExternalID] = s.Category
	}
	assert.Equal(t, domain.StatusCategoryToDo, byExt["1"])
	assert.Equal(t, domain.StatusCategoryInProgress, byExt["2"])
	assert.Equal(t, domain.StatusCategoryDone, byExt["5"])
	assert.Len(t, f.reference.ProjectStatEdges, 3)
}

func TestReferenceData_LastItemFansOutUpdatedStatuses(t *testing.T) {
	f := newReferenceFixture()
	f.reference.AddProject("10")
	f.reference.UpdatedStatuses = []*domain.Status{
		{ID: uuid.New(), ExternalID: "1", OriginalName: "Backlog"},
		{ID: uuid.New(), ExternalID: "2", OriginalName: "Doing"},
	}

	payload := `{"project_id": "10", "statuses": []}`
	env := f.stage(t, TypeStatusesAndRelations, payload, true)
	since := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	env.NewLastSync = &since
	env.LastJobItem = true

	require.NoError(t, f.transformer.HandleStatuses(context.Background(), domain.TierFree, env))

	// The forwarded envelope plus one message per updated status.
	require.Len(t, f.publisher.EmbeddingJobs, 3)
	fanned := f.publisher.EmbeddingJobs[1:]
	assert.True(t, fanned[0].FirstItem)
	assert.False(t, fanned[0].LastItem)
	assert.True(t, fanned[1].LastItem)
	assert.True(t, fanned[1].LastJobItem)
}

func TestReferenceData_NoUpdatedStatusesPublishesNothingExtra(t *testing.T) {
	f := newReferenceFixture()
	payload := `{"project_id": "", "statuses": []}`
	env := f.stage(t, TypeStatusesAndRelations, payload, true)
	since := time.Now().UTC().Format(time.RFC3339)
	env.NewLastSync = &since

	require.NoError(t, f.transformer.HandleStatuses(context.Background(), domain.TierFree, env))
	assert.Len(t, f.publisher.EmbeddingJobs, 1)
}

func TestReferenceData_CustomFieldsAutoMapSpecials(t *testing.T) {
	f := newReferenceFixture()

	payload := `{"values": [
	  {"id": "customfield_10100", "name": "Development", "custom": true, "schema": {"type": "any"}},
	  {"id": "customfield_10101", "name": "Sprint", "custom": true, "schema": {"type": "array"}},
	  {"id": "summary", "name": "Summary", "custom": false, "schema": {"type": "string"}}
	]}`
	env := f.stage(t, TypeCustomFields, payload, false)

	require.NoError(t, f.transformer.HandleCustomFields(context.Background(), domain.TierFree, env))

	assert.Len(t, f.customField.Fields, 3)
	require.NotNil(t, f.customField.Mapping)
	require.NotNil(t, f.customField.Mapping.DevelopmentFieldID)
	assert.Equal(t, "customfield_10100", *f.customField.Mapping.DevelopmentFieldID)
	require.NotNil(t, f.customField.Mapping.SprintsFieldID)
	assert.Equal(t, "customfield_10101", *f.customField.Mapping.SprintsFieldID)
}

func TestReferenceData_RawRowCompletes(t *testing.T) {
	f := newReferenceFixture()
	env := f.stage(t, TypeProjectsAndIssueTypes, `{"values": []}`, false)

	require.NoError(t, f.transformer.HandleProjectsAndIssueTypes(context.Background(), domain.TierFree, env))

	row, err := f.raw.FindByID(context.Background(), *env.RawDataID)
	require.NoError(t, err)
	assert.Equal(t, domain.RawExtractionCompleted, row.Status)
}
