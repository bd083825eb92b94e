// Package status implements the publish side of spec.md §6's status
// broadcast contract: the extraction worker (when a job schedule reaches
// a terminal state) and C8 (transform dispatcher, on a last_job_item
// completion marker) emit an event here so the websocket hub can fan it
// out, independent of whichever process (worker or API) happened to
// observe the crossing.
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Channel is the Redis pub/sub channel status events travel over between
// the worker processes that observe flag crossings and the API process
// that hosts the websocket hub.
const Channel = "tracksync:status_events"

// Event is the {tenant_id, job_id, status_json} shape spec.md §6 defines.
type Event struct {
	TenantID  uuid.UUID `json:"tenant_id"`
	JobID     uuid.UUID `json:"job_id"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes Events onto Channel.
type Publisher struct {
	client *redis.Client
}

// NewPublisher builds a Publisher over an existing Redis client (the same
// one C2's queue.Manager uses; pub/sub and streams share a connection pool
// cleanly in go-redis).
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish emits one status event. Failures are non-fatal to the caller's
// pipeline step -- a dropped status update never blocks extraction or
// transform -- so callers should log, not propagate, a returned error.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	return p.client.Publish(ctx, Channel, body).Err()
}
