package extract

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
)

func newExtractorFixture() (*Extractor, *mocks.MockProviderClient, *mocks.MockQueuePublisher, Run) {
	provider := &mocks.MockProviderClient{}
	rawRepo := mocks.NewMockRawExtractionRepository()
	publisher := mocks.NewMockQueuePublisher()
	e := New(provider, rawRepo, publisher)
	run := NewRun(uuid.New(), uuid.New(), uuid.New(), domain.TierBasic, "jira", "https://jira.example.test", domain.Credentials{Username: "u", Token: "t"})
	return e, provider, publisher, run
}

func TestEffectiveJQL(t *testing.T) {
	tenDaysAgo := time.Now().Add(-10 * 24 * time.Hour)
	assert.Equal(t, "(project = P) AND updated >= -10d", effectiveJQL("project = P", tenDaysAgo))
	assert.Equal(t, "updated >= -10d", effectiveJQL("", tenDaysAgo))

	// Zero/negative window clamps to one day.
	assert.Equal(t, "updated >= -1d", effectiveJQL("", time.Now()))
	assert.Equal(t, "updated >= -1d", effectiveJQL("", time.Now().Add(time.Hour)))
}

func TestExtractIssues_FlagPositionsAcrossPages(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()

	provider.SearchIssuesFn = func(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
		if pageToken == "" {
			return &port.ProviderPage{
				Body:          []byte(`{"issues": [{"id": "1", "key": "P-1"}, {"id": "2", "key": "P-2"}]}`),
				NextPageToken: "p2",
			}, nil
		}
		return &port.ProviderPage{
			Body:   []byte(`{"issues": [{"id": "3", "key": "P-3"}]}`),
			IsLast: true,
		}, nil
	}

	refs, err := e.ExtractIssues(context.Background(), run, "", time.Now().Add(-24*time.Hour), 100, false)
	require.NoError(t, err)
	require.Len(t, refs, 3)

	msgs := publisher.TransformJobs
	require.Len(t, msgs, 3)
	// Exactly one first_item, exactly one last_item, exactly one
	// last_job_item across the step (spec property 4).
	assert.True(t, msgs[0].FirstItem)
	assert.False(t, msgs[1].FirstItem)
	assert.False(t, msgs[2].FirstItem)
	assert.False(t, msgs[0].LastItem)
	assert.False(t, msgs[1].LastItem)
	assert.True(t, msgs[2].LastItem)
	assert.True(t, msgs[2].LastJobItem)
	for _, m := range msgs {
		require.NotNil(t, m.RawDataID)
		assert.Equal(t, run.Token, m.Token)
	}
}

func TestExtractIssues_DeferredLastJobItem(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()
	provider.SearchIssuesFn = func(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
		return &port.ProviderPage{Body: []byte(`{"issues": [{"id": "1", "key": "P-1"}]}`), IsLast: true}, nil
	}

	_, err := e.ExtractIssues(context.Background(), run, "", time.Now(), 100, true)
	require.NoError(t, err)
	require.Len(t, publisher.TransformJobs, 1)
	assert.True(t, publisher.TransformJobs[0].LastItem)
	assert.False(t, publisher.TransformJobs[0].LastJobItem)
}

func TestExtractIssues_ZeroIssuesPublishesFlag(t *testing.T) {
	e, _, publisher, run := newExtractorFixture()

	refs, err := e.ExtractIssues(context.Background(), run, "", time.Now(), 100, false)
	require.NoError(t, err)
	assert.Empty(t, refs)

	require.Len(t, publisher.TransformJobs, 1)
	flag := publisher.TransformJobs[0]
	assert.True(t, flag.IsCompletionMarker())
	assert.True(t, flag.FirstItem)
	assert.True(t, flag.LastItem)
	assert.True(t, flag.LastJobItem)
}

func TestExtractIssues_SkipsIssuesWithoutKey(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()
	provider.SearchIssuesFn = func(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
		return &port.ProviderPage{
			Body:   []byte(`{"issues": [{"id": "1"}, {"id": "2", "key": "P-2"}]}`),
			IsLast: true,
		}, nil
	}

	refs, err := e.ExtractIssues(context.Background(), run, "", time.Now(), 100, false)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "P-2", refs[0].Key)
	assert.Len(t, publisher.TransformJobs, 1)
}

// TestExtractIssues_S3_RateLimitMidPage mirrors spec scenario S3: two
// issues land before the provider answers 429, so two raw rows and two
// transform messages exist and the rate-limit error surfaces to the caller.
func TestExtractIssues_S3_RateLimitMidPage(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()

	resetAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	provider.SearchIssuesFn = func(ctx context.Context, creds domain.Credentials, baseURL, jql, pageToken string, maxResults int) (*port.ProviderPage, error) {
		if pageToken == "" {
			return &port.ProviderPage{
				Body:          []byte(`{"issues": [{"id": "1", "key": "P-1"}, {"id": "2", "key": "P-2"}]}`),
				NextPageToken: "p2",
			}, nil
		}
		return nil, &port.RateLimitError{ResetAt: resetAt}
	}

	refs, err := e.ExtractIssues(context.Background(), run, "", time.Now(), 100, false)
	require.Error(t, err)

	var rl *port.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.True(t, rl.ResetAt.Equal(resetAt))

	assert.Len(t, refs, 2)
	assert.Len(t, publisher.TransformJobs, 2)
}

func TestExtractDevStatus_EmptyIssuesPublishesTerminalFlag(t *testing.T) {
	e, _, publisher, run := newExtractorFixture()

	require.NoError(t, e.ExtractDevStatus(context.Background(), run, nil))

	require.Len(t, publisher.TransformJobs, 1)
	flag := publisher.TransformJobs[0]
	assert.True(t, flag.IsCompletionMarker())
	assert.True(t, flag.LastJobItem)
}

func TestExtractDevStatus_NoUsefulDataIsFlagNotPersisted(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()
	provider.DevStatusFn = func(ctx context.Context, creds domain.Credentials, baseURL, issueID string) ([]byte, error) {
		return []byte(`{"detail": [{"repositories": [], "pullRequests": [], "branches": []}]}`), nil
	}

	require.NoError(t, e.ExtractDevStatus(context.Background(), run, []IssueRef{{ExternalID: "1", Key: "P-1"}}))

	require.Len(t, publisher.TransformJobs, 1)
	assert.True(t, publisher.TransformJobs[0].IsCompletionMarker())
	assert.True(t, publisher.TransformJobs[0].LastJobItem)
}

func TestExtractDevStatus_UsefulDataPersistsAndTerminates(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()
	provider.DevStatusFn = func(ctx context.Context, creds domain.Credentials, baseURL, issueID string) ([]byte, error) {
		return []byte(`{"detail": [{"pullRequests": [{"id": "12"}], "repositories": [], "branches": []}]}`), nil
	}

	issues := []IssueRef{{ExternalID: "1", Key: "P-1"}, {ExternalID: "2", Key: "P-2"}}
	require.NoError(t, e.ExtractDevStatus(context.Background(), run, issues))

	msgs := publisher.TransformJobs
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].FirstItem)
	assert.False(t, msgs[0].LastJobItem)
	require.NotNil(t, msgs[0].RawDataID)
	assert.True(t, msgs[1].LastItem)
	assert.True(t, msgs[1].LastJobItem)
}

func TestExtractReferenceData_EmptyProjectsPublishesFlag(t *testing.T) {
	e, _, publisher, run := newExtractorFixture()

	require.NoError(t, e.ExtractReferenceData(context.Background(), run))

	require.Len(t, publisher.TransformJobs, 1)
	assert.True(t, publisher.TransformJobs[0].IsCompletionMarker())
	assert.Equal(t, "jira_projects_and_issue_types", publisher.TransformJobs[0].Type)
}

func TestExtractReferenceData_ProjectsThenPerProjectStatuses(t *testing.T) {
	e, provider, publisher, run := newExtractorFixture()
	provider.ProjectsWithIssueTypesFn = func(ctx context.Context, creds domain.Credentials, baseURL string) ([]byte, error) {
		return []byte(`{"values": [{"id": "10"}, {"id": "20"}]}`), nil
	}
	provider.StatusesByProjectFn = func(ctx context.Context, creds domain.Credentials, baseURL, projectID string) ([]byte, error) {
		return []byte(`[{"id": "3", "statuses": []}]`), nil
	}

	require.NoError(t, e.ExtractReferenceData(context.Background(), run))

	msgs := publisher.TransformJobs
	require.Len(t, msgs, 3)
	assert.Equal(t, "jira_projects_and_issue_types", msgs[0].Type)
	assert.Equal(t, "jira_statuses_and_relationships", msgs[1].Type)
	assert.Equal(t, "jira_statuses_and_relationships", msgs[2].Type)
	// The final per-project statuses message carries last_item (spec.md §4.5).
	assert.False(t, msgs[1].LastItem)
	assert.True(t, msgs[2].LastItem)
}
