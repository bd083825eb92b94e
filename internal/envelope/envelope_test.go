package envelope

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
)

func validEnvelope() *Envelope {
	return &Envelope{
		TenantID:      uuid.New(),
		IntegrationID: uuid.New(),
		JobID:         uuid.New(),
		Token:         "job-token-1",
		Type:          "jira_issues_with_changelogs",
		Provider:      "jira",
	}
}

func TestEnvelope_Validate(t *testing.T) {
	t.Run("valid envelope passes", func(t *testing.T) {
		require.NoError(t, validEnvelope().Validate())
	})

	t.Run("missing tenant_id rejected", func(t *testing.T) {
		e := validEnvelope()
		e.TenantID = uuid.Nil
		assert.ErrorIs(t, e.Validate(), domain.ErrEnvelopeInvalid)
	})

	t.Run("missing token rejected", func(t *testing.T) {
		e := validEnvelope()
		e.Token = ""
		assert.ErrorIs(t, e.Validate(), domain.ErrEnvelopeInvalid)
	})
}

func TestEnvelope_IsCompletionMarker(t *testing.T) {
	e := validEnvelope()
	assert.True(t, e.IsCompletionMarker())

	id := "ABC-1"
	e.ExternalID = &id
	assert.False(t, e.IsCompletionMarker())
}

func TestEnvelope_MarshalUnmarshalRoundTrip(t *testing.T) {
	e := validEnvelope()
	e.FirstItem = true
	e.LastJobItem = true

	data, err := e.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, e.TenantID, got.TenantID)
	assert.True(t, got.FirstItem)
	assert.True(t, got.LastJobItem)
	assert.True(t, got.IsCompletionMarker())
}

func TestQueueName(t *testing.T) {
	assert.Equal(t, "extraction_queue_premium", QueueName(StepExtraction, domain.TierPremium))
	assert.Equal(t, "transform_queue_free", QueueName(StepTransform, domain.TierFree))
}
