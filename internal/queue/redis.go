// Package queue implements C2, the Queue Manager: tier-based durable
// queues with broker-acknowledged delivery, backed by Redis Streams
// (grounded on the jordigilh-kubernaut retrieval pack's go-redis/v9
// dependency — the teacher itself has no queue of its own, so the shape
// below follows the teacher's repository-constructor convention:
// New(client) returning a struct that implements the matching port).
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
	"github.com/orchestrix/tracksync/pkg/observability"
)

// consumerGroup is the single consumer group every worker in a (step,
// tier) pool joins, so XREADGROUP fans messages out across the pool
// instead of delivering the same entry to every worker.
const consumerGroup = "tracksync-workers"

var allSteps = []envelope.Step{envelope.StepExtraction, envelope.StepTransform, envelope.StepEmbedding}
var allTiers = []domain.Tier{domain.TierFree, domain.TierBasic, domain.TierPremium, domain.TierEnterprise}

// Manager implements port.QueuePublisher and port.QueueConsumer over Redis
// Streams. One Manager is shared by every worker pool in the process.
type Manager struct {
	client   *redis.Client
	consumer string
}

// New creates a Manager bound to an existing Redis client. consumerName
// distinguishes this process's claims within the shared consumer group
// (used for XAUTOCLAIM-based recovery of another consumer's pending
// entries — see ReclaimStale).
func New(client *redis.Client, consumerName string) *Manager {
	return &Manager{client: client, consumer: consumerName}
}

// SetupQueues implements C2's setup_queues: idempotently ensures one
// durable stream + consumer group per (step, tier) exists. MKSTREAM
// creates the stream if absent; BUSYGROUP (group already exists) is
// swallowed, making repeated calls safe at every process start.
func (m *Manager) SetupQueues(ctx context.Context) error {
	for _, step := range allSteps {
		for _, tier := range allTiers {
			stream := envelope.QueueName(step, tier)
			err := m.client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
			if err != nil && !errors.Is(err, redis.Nil) && !isBusyGroup(err) {
				return fmt.Errorf("setup queue %s: %w", stream, err)
			}
		}
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

// PublishExtractionJob implements publish(extraction, tenant, msg) ->
// extraction_queue_{tier}.
func (m *Manager) PublishExtractionJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	return m.publish(ctx, envelope.StepExtraction, tier, env)
}

// PublishTransformJob implements publish(transform, tenant, msg) ->
// transform_queue_{tier}.
func (m *Manager) PublishTransformJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	return m.publish(ctx, envelope.StepTransform, tier, env)
}

// PublishEmbeddingJob implements publish(embedding, tenant, msg) ->
// embedding_queue_{tier}, the handoff into the out-of-scope embedding
// stage (spec.md §1).
func (m *Manager) PublishEmbeddingJob(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error {
	return m.publish(ctx, envelope.StepEmbedding, tier, env)
}

// publish serializes env and XADDs it, retried up to 3 times with
// exponential backoff (spec.md §4.2: "publish failure is retried up to 3
// times with backoff; terminal failure is surfaced to the caller").
func (m *Manager) publish(ctx context.Context, step envelope.Step, tier domain.Tier, env *envelope.Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	body, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEnvelopeInvalid, err)
	}

	stream := envelope.QueueName(step, tier)
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx) // first attempt plus up to 3 retries

	publishErr := backoff.Retry(func() error {
		return m.client.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			Values: map[string]any{"envelope": body},
		}).Err()
	}, bo)

	outcome := "ok"
	if publishErr != nil {
		outcome = "error"
	}
	observability.GetMetrics().PublishesTotal.WithLabelValues(string(step), outcome).Inc()
	return publishErr
}

// GetSingleMessage implements C2's get_single_message: poll one message
// from a (step, tier) queue via XREADGROUP with manual ack, blocking up
// to timeout.
func (m *Manager) GetSingleMessage(ctx context.Context, step envelope.Step, tier domain.Tier, timeout time.Duration) (*port.QueueMessage, error) {
	stream := envelope.QueueName(step, tier)
	res, err := m.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: m.consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    timeout,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // no message within timeout, not an error
		}
		return nil, err
	}
	if len(res) == 0 || len(res[0].Messages) == 0 {
		return nil, nil
	}

	msg := res[0].Messages[0]
	raw, ok := msg.Values["envelope"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: malformed queue entry %s", domain.ErrEnvelopeInvalid, msg.ID)
	}
	env, err := envelope.Unmarshal([]byte(raw))
	if err != nil {
		return nil, err
	}
	return &port.QueueMessage{ID: msg.ID, Stream: stream, Envelope: env}, nil
}

// Ack acknowledges successful processing, removing the entry from the
// consumer group's pending entries list.
func (m *Manager) Ack(ctx context.Context, msg *port.QueueMessage) error {
	return m.client.XAck(ctx, msg.Stream, consumerGroup, msg.ID).Err()
}

// Nack leaves the entry in the consumer group's pending list unacked.
// GetSingleMessage reads only new entries, so a pending entry comes back
// only through ReclaimStale once it has idled past minIdle; the worker
// pool does not call ReclaimStale. Redis Streams has no explicit "nack",
// so this is a no-op.
func (m *Manager) Nack(ctx context.Context, msg *port.QueueMessage) error {
	return nil
}

// ReclaimStale claims pending entries idle longer than minIdle from any
// consumer (including a crashed one) onto this Manager's consumer name,
// implementing the "worker crash -> message redelivery" half of C11's
// shared-pool model. Returns the reclaimed messages for reprocessing.
func (m *Manager) ReclaimStale(ctx context.Context, step envelope.Step, tier domain.Tier, minIdle time.Duration) ([]*port.QueueMessage, error) {
	stream := envelope.QueueName(step, tier)
	claimed, _, err := m.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   stream,
		Group:    consumerGroup,
		Consumer: m.consumer,
		MinIdle:  minIdle,
		Start:    "0",
		Count:    50,
	}).Result()
	if err != nil {
		return nil, err
	}

	out := make([]*port.QueueMessage, 0, len(claimed))
	for _, msg := range claimed {
		raw, ok := msg.Values["envelope"].(string)
		if !ok {
			continue
		}
		env, err := envelope.Unmarshal([]byte(raw))
		if err != nil {
			continue
		}
		out = append(out, &port.QueueMessage{ID: msg.ID, Stream: stream, Envelope: env})
	}
	return out, nil
}
