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

func TestDispatcher_Handle_CompletionMarkerForwardsToEmbedding(t *testing.T) {
	publisher := mocks.NewMockQueuePublisher()
	d := New(publisher, nil, nil, nil, nil)

	env := &envelope.Envelope{
		TenantID: uuid.New(), IntegrationID: uuid.New(), JobID: uuid.New(),
		Token: "tok", Type: "jira_issues_with_changelogs", Provider: "jira",
		LastJobItem: true,
	}

	err := d.Handle(context.Background(), domain.TierFree, env)
	require.NoError(t, err)
	require.Len(t, publisher.EmbeddingJobs, 1)
	assert.Equal(t, env.JobID, publisher.EmbeddingJobs[0].JobID)
}

func TestDispatcher_Handle_UnknownTypeIsDroppedNotFatal(t *testing.T) {
	publisher := mocks.NewMockQueuePublisher()
	d := New(publisher, nil, nil, nil, nil)

	extID := "JIRA-1"
	env := &envelope.Envelope{
		TenantID: uuid.New(), IntegrationID: uuid.New(), JobID: uuid.New(),
		Token: "tok", Type: "not_a_real_type", Provider: "jira",
		ExternalID: &extID,
	}

	err := d.Handle(context.Background(), domain.TierFree, env)
	assert.NoError(t, err)
	assert.Empty(t, publisher.EmbeddingJobs)
}
