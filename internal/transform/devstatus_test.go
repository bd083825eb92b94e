package transform

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
	"github.com/orchestrix/tracksync/internal/envelope"
)

type devStatusFixture struct {
	transformer *DevStatusTransformer
	raw         *mocks.MockRawExtractionRepository
	workItems   *mocks.MockWorkItemRepository
	prLinks     *mocks.MockPrLinkRepository
	publisher   *mocks.MockQueuePublisher

	tenantID      uuid.UUID
	integrationID uuid.UUID
}

func newDevStatusFixture() *devStatusFixture {
	f := &devStatusFixture{
		raw:           mocks.NewMockRawExtractionRepository(),
		workItems:     mocks.NewMockWorkItemRepository(),
		prLinks:       mocks.NewMockPrLinkRepository(),
		publisher:     mocks.NewMockQueuePublisher(),
		tenantID:      uuid.New(),
		integrationID: uuid.New(),
	}
	f.transformer = NewDevStatusTransformer(f.raw, f.workItems, f.prLinks, f.publisher)
	return f
}

func (f *devStatusFixture) stage(t *testing.T, payload string, lastJob bool) *envelope.Envelope {
	t.Helper()
	row := &domain.RawExtractionData{
		TenantID: f.tenantID, IntegrationID: f.integrationID,
		Type: TypeDevStatus, RawData: []byte(payload), Status: domain.RawExtractionPending,
	}
	require.NoError(t, f.raw.Save(context.Background(), row))
	return &envelope.Envelope{
		TenantID: f.tenantID, IntegrationID: f.integrationID, JobID: uuid.New(),
		Token: "tok", Type: TypeDevStatus, Provider: "jira",
		RawDataID: &row.ID, FirstItem: true, LastItem: true, LastJobItem: lastJob,
	}
}

func (f *devStatusFixture) seedWorkItem(t *testing.T, externalID string) *domain.WorkItem {
	t.Helper()
	wi := &domain.WorkItem{
		ID: uuid.New(), TenantID: f.tenantID, IntegrationID: f.integrationID,
		ExternalID: externalID, Key: "P-1", Development: true, Active: true,
	}
	require.NoError(t, f.workItems.BulkInsert(context.Background(), []*domain.WorkItem{wi}))
	return wi
}

// TestDevStatusTransformer_S4_EmptyDetail mirrors spec scenario S4: no PR
// rows, but the flag message still goes out carrying last_job_item.
func TestDevStatusTransformer_S4_EmptyDetail(t *testing.T) {
	f := newDevStatusFixture()
	f.seedWorkItem(t, "100")

	payload := `{"issue_id": "100", "issue_key": "P-1",
	  "dev_status": {"detail": [{"pullRequests": [], "branches": [], "repositories": []}]}}`
	env := f.stage(t, payload, true)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	assert.Empty(t, f.prLinks.Links)
	require.Len(t, f.publisher.EmbeddingJobs, 1)
	assert.True(t, f.publisher.EmbeddingJobs[0].LastJobItem)
}

func TestDevStatusTransformer_InsertsNewLinksAndFansOut(t *testing.T) {
	f := newDevStatusFixture()
	wi := f.seedWorkItem(t, "100")

	payload := `{"issue_id": "100", "issue_key": "P-1", "dev_status": {"detail": [{"pullRequests": [
	  {"id": "12", "name": "PR 12", "url": "https://github.test/acme/app/pull/12", "status": "MERGED",
	   "repositoryId": "r1", "repositoryName": "acme/app",
	   "source": {"branch": "feature/x"}, "lastCommit": {"id": "abc123"}},
	  {"id": "13", "name": "PR 13", "url": "https://github.test/acme/app/pull/13", "status": "OPEN",
	   "repositoryId": "r1", "repositoryName": "acme/app"}
	]}]}}`
	env := f.stage(t, payload, true)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))

	require.Len(t, f.prLinks.Links, 2)
	first := f.prLinks.Links[0]
	assert.Equal(t, wi.ID, first.WorkItemID)
	assert.Equal(t, "r1", first.ExternalRepoID)
	assert.Equal(t, "acme/app", first.RepoFullName)
	assert.Equal(t, 12, first.PullRequestNumber)
	require.NotNil(t, first.BranchName)
	assert.Equal(t, "feature/x", *first.BranchName)
	require.NotNil(t, first.CommitSHA)
	assert.Equal(t, "abc123", *first.CommitSHA)

	// One embedding message per inserted link; last one carries the
	// terminal flags.
	require.Len(t, f.publisher.EmbeddingJobs, 2)
	assert.True(t, f.publisher.EmbeddingJobs[0].FirstItem)
	assert.False(t, f.publisher.EmbeddingJobs[0].LastItem)
	assert.True(t, f.publisher.EmbeddingJobs[1].LastItem)
	assert.True(t, f.publisher.EmbeddingJobs[1].LastJobItem)
}

func TestDevStatusTransformer_ExistingLinksSkipped(t *testing.T) {
	f := newDevStatusFixture()
	wi := f.seedWorkItem(t, "100")
	require.NoError(t, f.prLinks.BulkInsert(context.Background(), []*domain.WorkItemPrLink{{
		ID: uuid.New(), TenantID: f.tenantID, IntegrationID: f.integrationID,
		WorkItemID: wi.ID, ExternalRepoID: "r1", RepoFullName: "acme/app", PullRequestNumber: 12, Active: true,
	}}))

	payload := `{"issue_id": "100", "issue_key": "P-1", "dev_status": {"detail": [{"pullRequests": [
	  {"id": "12", "repositoryId": "r1", "repositoryName": "acme/app", "status": "MERGED"}
	]}]}}`
	env := f.stage(t, payload, false)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))
	assert.Len(t, f.prLinks.Links, 1)
}

func TestDevStatusTransformer_DropsEntriesMissingRepo(t *testing.T) {
	f := newDevStatusFixture()
	f.seedWorkItem(t, "100")

	payload := `{"issue_id": "100", "issue_key": "P-1", "dev_status": {"detail": [{"pullRequests": [
	  {"id": "12", "repositoryName": "acme/app", "status": "MERGED"},
	  {"id": "13", "repositoryId": "r1", "status": "OPEN"}
	]}]}}`
	env := f.stage(t, payload, false)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))
	// First entry has no repositoryId; second has no resolvable full name.
	assert.Empty(t, f.prLinks.Links)
}

func TestDevStatusTransformer_UnknownWorkItemForwardsFlag(t *testing.T) {
	f := newDevStatusFixture()

	payload := `{"issue_id": "999", "issue_key": "P-999", "dev_status": {"detail": []}}`
	env := f.stage(t, payload, true)

	require.NoError(t, f.transformer.Handle(context.Background(), domain.TierFree, env))
	assert.Empty(t, f.prLinks.Links)
	require.Len(t, f.publisher.EmbeddingJobs, 1)
	assert.True(t, f.publisher.EmbeddingJobs[0].LastJobItem)
}

func TestResolvePRNumber_Precedence(t *testing.T) {
	n := 7
	cases := []struct {
		pr   jiraPullRequest
		want int
		ok   bool
	}{
		// Explicit number field wins over everything.
		{jiraPullRequest{Number: &n, ID: "99", URL: "/pull/100"}, 7, true},
		// Integer id next.
		{jiraPullRequest{ID: "42"}, 42, true},
		// Digits embedded in id.
		{jiraPullRequest{ID: "#55"}, 55, true},
		// Digits in name.
		{jiraPullRequest{ID: "abc", Name: "PR 31: fix"}, 31, true},
		// /pull/(\d+) in URL as last resort.
		{jiraPullRequest{ID: "abc", Name: "fix", URL: "https://github.test/a/b/pull/12"}, 12, true},
		{jiraPullRequest{ID: "abc", Name: "fix", URL: "https://github.test/a/b"}, 0, false},
	}
	for i, c := range cases {
		got, ok := resolvePRNumber(c.pr)
		assert.Equal(t, c.ok, ok, "case %d", i)
		if ok {
			assert.Equal(t, c.want, got, "case %d", i)
		}
	}
}

func TestRepoFullName_FallsBackToURL(t *testing.T) {
	assert.Equal(t, "acme/app", repoFullName(jiraPullRequest{RepositoryName: "acme/app"}))
	assert.Equal(t, "acme/app", repoFullName(jiraPullRequest{RepositoryURL: "https://github.test/acme/app/"}))
	assert.Equal(t, "", repoFullName(jiraPullRequest{}))
}
