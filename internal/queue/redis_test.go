package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/envelope"
)

func newTestManager(t *testing.T) (*Manager, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	m := New(client, "worker-test")
	require.NoError(t, m.SetupQueues(context.Background()))
	return m, client
}

func testEnvelope() *envelope.Envelope {
	extID := "JIRA-1"
	return &envelope.Envelope{
		TenantID: uuid.New(), IntegrationID: uuid.New(), JobID: uuid.New(),
		Token: "tok", Type: "jira_issues_with_changelogs", Provider: "jira",
		ExternalID: &extID, FirstItem: true,
	}
}

func TestManager_SetupQueuesIsIdempotent(t *testing.T) {
	m, client := newTestManager(t)

	// Second call must swallow BUSYGROUP for every existing group.
	require.NoError(t, m.SetupQueues(context.Background()))

	// One stream per (step, tier).
	for _, step := range allSteps {
		for _, tier := range allTiers {
			stream := envelope.QueueName(step, tier)
			exists, err := client.Exists(context.Background(), stream).Result()
			require.NoError(t, err)
			assert.Equal(t, int64(1), exists, stream)
		}
	}
}

func TestManager_PublishConsumeAckRoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	env := testEnvelope()

	require.NoError(t, m.PublishTransformJob(ctx, domain.TierBasic, env))

	msg, err := m.GetSingleMessage(ctx, envelope.StepTransform, domain.TierBasic, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, env.JobID, msg.Envelope.JobID)
	assert.Equal(t, env.TenantID, msg.Envelope.TenantID)
	require.NotNil(t, msg.Envelope.ExternalID)
	assert.Equal(t, "JIRA-1", *msg.Envelope.ExternalID)
	assert.True(t, msg.Envelope.FirstItem)

	require.NoError(t, m.Ack(ctx, msg))

	// Acked: nothing further on the queue.
	again, err := m.GetSingleMessage(ctx, envelope.StepTransform, domain.TierBasic, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, again)
}

func TestManager_TierIsolation(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	require.NoError(t, m.PublishExtractionJob(ctx, domain.TierPremium, testEnvelope()))

	// A free-tier worker must not see a premium-tier message.
	msg, err := m.GetSingleMessage(ctx, envelope.StepExtraction, domain.TierFree, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, msg)

	msg, err = m.GetSingleMessage(ctx, envelope.StepExtraction, domain.TierPremium, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg)
}

func TestManager_PublishRejectsInvalidEnvelope(t *testing.T) {
	m, _ := newTestManager(t)

	err := m.PublishEmbeddingJob(context.Background(), domain.TierFree, &envelope.Envelope{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEnvelopeInvalid)
}

func TestManager_FIFOWithinQueue(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first := testEnvelope()
	second := testEnvelope()
	second.FirstItem = false
	second.LastItem = true

	require.NoError(t, m.PublishTransformJob(ctx, domain.TierFree, first))
	require.NoError(t, m.PublishTransformJob(ctx, domain.TierFree, second))

	msg1, err := m.GetSingleMessage(ctx, envelope.StepTransform, domain.TierFree, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg1)
	assert.True(t, msg1.Envelope.FirstItem)

	msg2, err := m.GetSingleMessage(ctx, envelope.StepTransform, domain.TierFree, 50*time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, msg2)
	assert.True(t, msg2.Envelope.LastItem)
}
