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

type issueFixture struct {
	transformer *IssueTransformer
	raw         *mocks.MockRawExtractionRepository
	reference   *mocks.MockReferenceDataRepository
	customField *mocks.MockCustomFieldRepository
	workItems   *mocks.MockWorkItemRepository
	changelogs  *mocks.MockChangelogRepository
	sprints     *mocks.MockSprintRepository
	publisher   *mocks.MockQueuePublisher

	tenantID      uuid.UUID
	integrationID uuid.UUID
}

func newIssueFixture() *issueFixture {
	f := &issueFixture{
		raw:           mocks.NewMockRawExtractionRepository(),
		reference:     mocks.NewMockReferenceDataRepository(),
		customField:   mocks.NewMockCustomFieldRepository(),
		workItems:     mocks.NewMockWorkItemRepository(),
		changelogs:    mocks.NewMockChangelogRepository(),
		sprints:       mocks.NewMockSprintRepository(),
		publisher:     mocks.NewMockQueuePublisher(),
		tenantID:      uuid.New(),
		integrationID: uuid.New(),
	}
	f.transformer = NewIssueTransformer(f.raw, f.reference, f.customField, f.workItems, f.changelogs, f.sprints, f.publisher)
	return f
}

// stage persists payload as a pending raw row and returns the matching
// transform envelope, the way internal/extract stages real issues.
func (f *issueFixture) stage(t *testing.T, payload string) *envelope.Envelope {
	t.Helper()
	row := &domain.RawExtractionData{
		TenantID: f.tenantID, IntegrationID: f.integrationID,
		Type: TypeIssuesWithChangelogs, RawData: []byte(payload), Status: domain.RawExtractionPending,
	}
	require.NoError(t, f.raw.Save(context.Background(), row))
	return &envelope.Envelope{
		TenantID: f.tenantID, IntegrationID: f.integrationID, JobID: uuid.New(),
		Token: "tok", Type: TypeIssuesWithChangelogs, Provider: "jira",
		RawDataID: &row.ID,
	}
}

// s1Payload is spec scenario S1: one fresh issue with two status
// transitions a day apart.
const s1Payload = `{
  "id": "100", "key": "P-1",
  "fields": {
    "project": {"id": "10"},
    "issuetype": {"id": "3"},
    "status": {"id": "5"},
    "summary": "fresh issue",
    "created": "2024-01-01T10:00:00Z",
    "updated": "2024-01-03T10:00:00Z"
  },
  "changelog": {"histories": [
    {"id": "h1", "created": "2024-01-02T10:00:00Z", "author": {"displayName": "A"},
     "items": [{"field": "status", "from": "1", "to": "3"}]},
    {"id": "h2", "created": "2024-01-03T10:00:00Z", "author": {"displayName": "B"},
     "items": [{"field": "status", "from": "3", "to": "5"}]}
  ]}
}`

func (f *issueFixture) registerS1Reference() {
	f.reference.AddProject("10")
	f.reference.AddWit("3")
	f.reference.AddStatus("1", domain.StatusCategoryToDo)
	f.reference.AddStatus("3", domain.StatusCategoryInProgress)
	f.reference.AddStatus("5", domain.StatusCategoryDone)
}

func TestIssueTransformer_S1_FreshIssueTwoTransitions(t *testing.T) {
	f := newIssueFixture()
	f.registerS1Reference()
	env := f.stage(t, s1Payload)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	items, err := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"100"})
	require.NoError(t, err)
	wi := items["100"]
	require.NotNil(t, wi)
	assert.Equal(t, "P-1", wi.Key)
	require.NotNil(t, wi.ProjectID)
	require.NotNil(t, wi.WitID)
	require.NotNil(t, wi.StatusID)

	rows := f.changelogs.Rows(wi.ID)
	require.Len(t, rows, 2)
	// Chain invariant: first row starts at the work item's creation, each
	// later row starts where its predecessor changed.
	assert.True(t, rows[0].TransitionStartDate.Equal(wi.Created))
	assert.True(t, rows[1].TransitionStartDate.Equal(rows[0].TransitionChangeDate))
	assert.InDelta(t, 86400, rows[0].TimeInStatusSeconds, 0.001)
	assert.InDelta(t, 86400, rows[1].TimeInStatusSeconds, 0.001)
	assert.Equal(t, "A", rows[0].ChangedBy)
	assert.Equal(t, "B", rows[1].ChangedBy)

	// Derived workflow metric columns per S1.
	assert.Nil(t, wi.WorkFirstCommittedAt)
	assert.Equal(t, 1, wi.TotalWorkStarts)
	assert.Equal(t, 1, wi.TotalCompletions)
	assert.Equal(t, 0, wi.TotalBacklogReturns)
	assert.InDelta(t, 86400, wi.TotalWorkTimeSeconds, 0.001)
	assert.InDelta(t, 0, wi.TotalReviewTimeSeconds, 0.001)
	assert.InDelta(t, 86400, wi.TotalCycleTimeSeconds, 0.001)
	assert.InDelta(t, 0, wi.TotalLeadTimeSeconds, 0.001)
	assert.Equal(t, 0, wi.WorkflowComplexityScore)
	assert.False(t, wi.ReworkIndicator)
	assert.False(t, wi.DirectCompletion)

	// Raw row transitioned pending -> completed, one embedding message out.
	row, err := f.raw.FindByID(context.Background(), *env.RawDataID)
	require.NoError(t, err)
	assert.Equal(t, domain.RawExtractionCompleted, row.Status)
	assert.Len(t, f.publisher.EmbeddingJobs, 1)
}

const s2Extra = `{
  "id": "100", "key": "P-1",
  "fields": {
    "project": {"id": "10"},
    "issuetype": {"id": "3"},
    "status": {"id": "5"},
    "created": "2024-01-01T10:00:00Z",
    "updated": "2024-01-05T10:00:00Z"
  },
  "changelog": {"histories": [
    {"id": "h1", "created": "2024-01-02T10:00:00Z", "items": [{"field": "status", "from": "1", "to": "3"}]},
    {"id": "h2", "created": "2024-01-03T10:00:00Z", "items": [{"field": "status", "from": "3", "to": "5"}]},
    {"id": "h3", "created": "2024-01-04T10:00:00Z", "items": [{"field": "status", "from": "5", "to": "3"}]},
    {"id": "h4", "created": "2024-01-05T10:00:00Z", "items": [{"field": "status", "from": "3", "to": "5"}]}
  ]}
}`

func TestIssueTransformer_S2_Rework(t *testing.T) {
	f := newIssueFixture()
	f.registerS1Reference()
	env := f.stage(t, s2Extra)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"100"})
	wi := items["100"]
	require.NotNil(t, wi)

	assert.Equal(t, 2, wi.TotalWorkStarts)
	assert.Equal(t, 2, wi.TotalCompletions)
	assert.True(t, wi.ReworkIndicator)
	assert.Equal(t, 1, wi.WorkflowComplexityScore)
	require.NotNil(t, wi.WorkFirstStartedAt)
	assert.Equal(t, "2024-01-02", wi.WorkFirstStartedAt.Format("2006-01-02"))
	require.NotNil(t, wi.WorkLastStartedAt)
	assert.Equal(t, "2024-01-04", wi.WorkLastStartedAt.Format("2006-01-02"))
	require.NotNil(t, wi.WorkLastCompletedAt)
	assert.Equal(t, "2024-01-05", wi.WorkLastCompletedAt.Format("2006-01-02"))
}

func TestIssueTransformer_ReprocessingIsIdempotent(t *testing.T) {
	f := newIssueFixture()
	f.registerS1Reference()

	env := f.stage(t, s1Payload)
	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	// Same raw_data_id redelivered (broker retry): same end state.
	env2 := *env
	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, &env2))

	items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"100"})
	wi := items["100"]
	require.NotNil(t, wi)
	assert.Len(t, f.changelogs.Rows(wi.ID), 2)
	assert.Equal(t, 1, wi.TotalWorkStarts)
}

func TestIssueTransformer_OutOfOrderHistoriesAreSorted(t *testing.T) {
	f := newIssueFixture()
	f.registerS1Reference()

	// h2 arrives before h1 in the payload; the chain must still be
	// contiguous in chronological order.
	payload := `{
	  "id": "100", "key": "P-1",
	  "fields": {"project": {"id": "10"}, "status": {"id": "5"}, "created": "2024-01-01T10:00:00Z"},
	  "changelog": {"histories": [
	    {"id": "h2", "created": "2024-01-03T10:00:00Z", "items": [{"field": "status", "from": "3", "to": "5"}]},
	    {"id": "h1", "created": "2024-01-02T10:00:00Z", "items": [{"field": "status", "from": "1", "to": "3"}]}
	  ]}
	}`
	env := f.stage(t, payload)
	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"100"})
	wi := items["100"]
	rows := f.changelogs.Rows(wi.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, "h1", rows[0].ExternalID)
	assert.True(t, rows[0].TransitionStartDate.Equal(wi.Created))
	assert.True(t, rows[1].TransitionStartDate.Equal(rows[0].TransitionChangeDate))
}

func TestIssueTransformer_MissingKeyMarksRawFailed(t *testing.T) {
	f := newIssueFixture()
	env := f.stage(t, `{"id": "100", "fields": {}}`)

	err := f.transformer.Handle(context.Background(), domain.TierFree, env)
	require.Error(t, err)

	row, findErr := f.raw.FindByID(context.Background(), *env.RawDataID)
	require.NoError(t, findErr)
	assert.Equal(t, domain.RawExtractionFailed, row.Status)
	assert.Empty(t, f.publisher.EmbeddingJobs)
}

func TestIssueTransformer_UnresolvedForeignKeysStayNull(t *testing.T) {
	f := newIssueFixture()
	// No reference data registered at all.
	env := f.stage(t, s1Payload)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"100"})
	wi := items["100"]
	require.NotNil(t, wi)
	assert.Nil(t, wi.ProjectID)
	assert.Nil(t, wi.WitID)
	assert.Nil(t, wi.StatusID)
}

func TestIssueTransformer_MappedFieldsProjected(t *testing.T) {
	f := newIssueFixture()
	f.registerS1Reference()

	dev := "customfield_10000"
	points := "customfield_10001"
	team := "customfield_10002"
	f.customField.Mapping = &domain.CustomFieldMapping{
		TenantID: f.tenantID, IntegrationID: f.integrationID,
		DevelopmentFieldID: &dev, StoryPointsFieldID: &points, TeamFieldID: &team,
	}

	payload := `{
	  "id": "200", "key": "P-2",
	  "fields": {
	    "project": {"id": "10"},
	    "created": "2024-01-01T10:00:00Z",
	    "customfield_10000": "{pullrequest}",
	    "customfield_10001": "5.5",
	    "customfield_10002": {"name": "Platform"}
	  },
	  "changelog": {"histories": []}
	}`
	env := f.stage(t, payload)
	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"200"})
	wi := items["200"]
	require.NotNil(t, wi)
	assert.True(t, wi.Development)
	require.NotNil(t, wi.StoryPoints)
	assert.InDelta(t, 5.5, *wi.StoryPoints, 0.001)
	assert.Equal(t, "Platform", wi.Team)
}

func TestIssueTransformer_EmptyDevelopmentValuesAreFalse(t *testing.T) {
	f := newIssueFixture()
	dev := "customfield_10000"
	f.customField.Mapping = &domain.CustomFieldMapping{
		TenantID: f.tenantID, IntegrationID: f.integrationID, DevelopmentFieldID: &dev,
	}

	for i, value := range []string{`""`, `"{}"`, `"[]"`, `null`, `[]`, `{}`} {
		payload := `{"id": "30` + string(rune('0'+i)) + `", "key": "P-3", "fields": {"created": "2024-01-01T10:00:00Z", "customfield_10000": ` + value + `}, "changelog": {"histories": []}}`
		env := f.stage(t, payload)
		require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))
	}

	for i := 0; i < 6; i++ {
		ext := "30" + string(rune('0'+i))
		items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{ext})
		require.NotNil(t, items[ext], ext)
		assert.False(t, items[ext].Development, ext)
	}
}

func TestIssueTransformer_BadStoryPointsAreNull(t *testing.T) {
	f := newIssueFixture()
	points := "customfield_10001"
	f.customField.Mapping = &domain.CustomFieldMapping{
		TenantID: f.tenantID, IntegrationID: f.integrationID, StoryPointsFieldID: &points,
	}

	payload := `{"id": "400", "key": "P-4", "fields": {"created": "2024-01-01T10:00:00Z", "customfield_10001": "abc"}, "changelog": {"histories": []}}`
	env := f.stage(t, payload)
	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	items, _ := f.workItems.FindByExternalIDs(context.Background(), f.integrationID, []string{"400"})
	require.NotNil(t, items["400"])
	assert.Nil(t, items["400"].StoryPoints)
}

// TestIssueTransformer_S6_SharedSprint mirrors spec scenario S6: two issues
// referencing the same sprint produce exactly one sprint and one edge each.
func TestIssueTransformer_S6_SharedSprint(t *testing.T) {
	f := newIssueFixture()
	sprints := "customfield_10020"
	f.customField.Mapping = &domain.CustomFieldMapping{
		TenantID: f.tenantID, IntegrationID: f.integrationID, SprintsFieldID: &sprints,
	}

	for _, id := range []string{"500", "501"} {
		payload := `{"id": "` + id + `", "key": "P-` + id + `", "fields": {
		  "created": "2024-01-01T10:00:00Z",
		  "updated": "2024-01-02T10:00:00Z",
		  "customfield_10020": [{"id": 77, "boardId": 9, "name": "Sprint 1", "state": "active"}]
		}, "changelog": {"histories": []}}`
		env := f.stage(t, payload)
		require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))
	}

	assert.Len(t, f.sprints.Sprints, 1)
	assert.Len(t, f.sprints.Edges, 2)
}

func TestIssueTransformer_LegacySprintStringParsed(t *testing.T) {
	entries := parseSprintEntries([]any{
		"com.atlassian.greenhopper.service.sprint.Sprint@5cb9[id=42,rapidViewId=7,state=CLOSED,name=Sprint 2,startDate=2024-01-01]",
	})
	require.Len(t, entries, 1)
	assert.Equal(t, "42", entries[0].ExternalID)
	assert.Equal(t, "CLOSED", entries[0].State)
}

func TestParseJiraTime_AcceptsBothLayouts(t *testing.T) {
	provider := parseJiraTime("2024-03-01T09:15:00.000-0700")
	assert.Equal(t, time.Date(2024, 3, 1, 16, 15, 0, 0, time.UTC), provider)

	rfc := parseJiraTime("2024-03-01T16:15:00Z")
	assert.Equal(t, time.Date(2024, 3, 1, 16, 15, 0, 0, time.UTC), rfc)

	assert.True(t, parseJiraTime("").IsZero())
}
