package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/core/service/mocks"
	"github.com/orchestrix/tracksync/internal/envelope"
)

// ackRecorder implements port.QueueConsumer for handleOne tests; messages
// are fed directly, never polled.
type ackRecorder struct {
	mu    sync.Mutex
	acked []*port.QueueMessage
}

func (a *ackRecorder) GetSingleMessage(ctx context.Context, step envelope.Step, tier domain.Tier, timeout time.Duration) (*port.QueueMessage, error) {
	return nil, nil
}

func (a *ackRecorder) Ack(ctx context.Context, msg *port.QueueMessage) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, msg)
	return nil
}

func (a *ackRecorder) Nack(ctx context.Context, msg *port.QueueMessage) error { return nil }

func (a *ackRecorder) ackCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acked)
}

func testMessage() *port.QueueMessage {
	extID := "JIRA-1"
	return &port.QueueMessage{
		ID:     "1-0",
		Stream: "transform_queue_free",
		Envelope: &envelope.Envelope{
			TenantID: uuid.New(), IntegrationID: uuid.New(), JobID: uuid.New(),
			Token: "tok", Type: "jira_issues_with_changelogs", Provider: "jira",
			ExternalID: &extID,
		},
	}
}

func TestPool_SuccessAcksWithoutRetry(t *testing.T) {
	consumer := &ackRecorder{}
	publisher := mocks.NewMockQueuePublisher()
	p := NewPool(envelope.StepTransform, domain.TierFree, consumer, publisher, nil, nil,
		func(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error { return nil })

	p.handleOne(context.Background(), testMessage())

	assert.Equal(t, 1, consumer.ackCount())
	assert.Empty(t, publisher.TransformJobs)
}

func TestPool_TransientFailureSchedulesRetryWithIncrementedCount(t *testing.T) {
	consumer := &ackRecorder{}
	publisher := mocks.NewMockQueuePublisher()
	p := NewPool(envelope.StepTransform, domain.TierFree, consumer, publisher, nil, nil,
		func(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
			return errors.New("db hiccup")
		})

	msg := testMessage()
	p.handleOne(context.Background(), msg)

	// The failed delivery is acked (the retry is a fresh publish)...
	assert.Equal(t, 1, consumer.ackCount())
	// ...and the republish lands after the 2^(retry-1)s in-process delay.
	require.Eventually(t, func() bool {
		return len(publisher.TransformJobsSnapshot()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, publisher.TransformJobsSnapshot()[0].RetryCount)
}

func TestPool_ExhaustedRetriesDeadLetter(t *testing.T) {
	consumer := &ackRecorder{}
	publisher := mocks.NewMockQueuePublisher()
	failures := mocks.NewMockExtractionFailureRepository()
	p := NewPool(envelope.StepTransform, domain.TierFree, consumer, publisher, failures, nil,
		func(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
			return errors.New(strings.Repeat("x", 600))
		})

	msg := testMessage()
	msg.Envelope.RetryCount = 3 // already exhausted
	p.handleOne(context.Background(), msg)

	require.Len(t, failures.Failures, 1)
	f := failures.Failures[0]
	assert.Equal(t, msg.Envelope.TenantID, f.TenantID)
	assert.Equal(t, "jira_issues_with_changelogs", f.ExtractionType)
	assert.Len(t, f.ErrorMessage, 500)
	assert.NotEmpty(t, f.OriginalMessage)
	assert.Equal(t, 1, consumer.ackCount())
	assert.Empty(t, publisher.TransformJobs)
}

func TestPool_RateLimitNeitherRetriesNorDeadLetters(t *testing.T) {
	consumer := &ackRecorder{}
	publisher := mocks.NewMockQueuePublisher()
	failures := mocks.NewMockExtractionFailureRepository()
	p := NewPool(envelope.StepExtraction, domain.TierFree, consumer, publisher, failures, nil,
		func(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
			return &port.RateLimitError{ResetAt: time.Now().Add(time.Hour)}
		})

	p.handleOne(context.Background(), testMessage())

	assert.Empty(t, failures.Failures)
	assert.Empty(t, publisher.ExtractionJobs)
	assert.Equal(t, 1, consumer.ackCount())
}

func TestPool_StopReturnsWithinGracePeriod(t *testing.T) {
	consumer := &ackRecorder{}
	publisher := mocks.NewMockQueuePublisher()
	p := NewPool(envelope.StepTransform, domain.TierFree, consumer, publisher, nil, nil,
		func(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(4 * time.Second):
		t.Fatal("Stop did not return within the grace period")
	}
}

func TestTier_PoolSizes(t *testing.T) {
	assert.Equal(t, 1, domain.TierFree.PoolSize())
	assert.Equal(t, 3, domain.TierBasic.PoolSize())
	assert.Equal(t, 5, domain.TierPremium.PoolSize())
	assert.Equal(t, 10, domain.TierEnterprise.PoolSize())
}
