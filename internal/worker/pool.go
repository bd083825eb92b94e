// Package worker implements C11, the Worker Pool Manager: tier-sized
// shared pools, one per (step, tier) queue, applying the retry/DLQ
// middleware described in spec.md §4.11-§4.12.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/orchestrix/tracksync/internal/core/domain"
	"github.com/orchestrix/tracksync/internal/core/port"
	"github.com/orchestrix/tracksync/internal/envelope"
	"github.com/orchestrix/tracksync/pkg/observability"
)

const maxRetries = 3
const pollTimeout = 5 * time.Second

// Handler processes one envelope. A returned *port.RateLimitError is
// handled by the rate-limit policy (ack, no retry, no DLQ); any other
// error is treated as transient and retried up to maxRetries.
type Handler func(ctx context.Context, tier domain.Tier, env *envelope.Envelope) error

// Pool runs Size goroutines (tier.PoolSize() unless overridden) consuming exactly one (step, tier)
// queue, all tenants of that tier sharing it (spec.md §4.11).
type Pool struct {
	Step      envelope.Step
	Tier      domain.Tier
	Size      int
	Consumer  port.QueueConsumer
	Publisher port.QueuePublisher
	Failures  port.ExtractionFailureRepository
	Handle    Handler
	// Metrics is optional; when set, a dead-lettered message is recorded as
	// a dlq_rows_total data point (C17) so C15's alert rules can react to
	// dead-letter pressure.
	Metrics port.MetricService

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPool builds a Pool sized from tier's built-in default. Failures may be
// nil for steps that never dead-letter (embedding has none of its own in
// this system). metrics may be nil, in which case dead-letters go unrecorded.
func NewPool(step envelope.Step, tier domain.Tier, consumer port.QueueConsumer, publisher port.QueuePublisher, failures port.ExtractionFailureRepository, metrics port.MetricService, handle Handler) *Pool {
	return NewPoolSized(step, tier, tier.PoolSize(), consumer, publisher, failures, metrics, handle)
}

// NewPoolSized builds a Pool with an explicit worker count, typically
// sourced from PoolConfig so operators can override spec.md §4.11's
// defaults per deployment.
func NewPoolSized(step envelope.Step, tier domain.Tier, size int, consumer port.QueueConsumer, publisher port.QueuePublisher, failures port.ExtractionFailureRepository, metrics port.MetricService, handle Handler) *Pool {
	if size <= 0 {
		size = tier.PoolSize()
	}
	return &Pool{Step: step, Tier: tier, Size: size, Consumer: consumer, Publisher: publisher, Failures: failures, Metrics: metrics, Handle: handle, stop: make(chan struct{})}
}

// Start launches Size worker goroutines against ctx.
func (p *Pool) Start(ctx context.Context) {
	n := p.Size
	if n <= 0 {
		n = p.Tier.PoolSize()
	}
	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.run(ctx)
	}
}

// Stop signals every worker to exit after its current message, within the
// bounded grace period spec.md §4.11 allows.
func (p *Pool) Stop() {
	close(p.stop)
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
	}
}

func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := p.Consumer.GetSingleMessage(ctx, p.Step, p.Tier, pollTimeout)
		if err != nil {
			slog.ErrorContext(ctx, "queue poll failed", "step", p.Step, "tier", p.Tier, "error", err)
			continue
		}
		if msg == nil {
			continue
		}
		p.handleOne(ctx, msg)
	}
}

func (p *Pool) handleOne(ctx context.Context, msg *port.QueueMessage) {
	env := msg.Envelope

	om := observability.GetMetrics()
	om.WorkersBusy.WithLabelValues(string(p.Step), string(p.Tier)).Inc()
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "pipeline.handle_message")
	span.SetAttributes(
		attribute.String("pipeline.step", string(p.Step)),
		attribute.String("pipeline.tier", string(p.Tier)),
		attribute.String("pipeline.type", env.Type),
		attribute.String("tenant.id", env.TenantID.String()),
	)
	defer func() {
		span.End()
		om.WorkersBusy.WithLabelValues(string(p.Step), string(p.Tier)).Dec()
		om.MessageHandleDuration.WithLabelValues(string(p.Step), string(p.Tier)).Observe(time.Since(start).Seconds())
	}()

	err := p.Handle(ctx, p.Tier, env)
	if err == nil {
		om.MessagesTotal.WithLabelValues(string(p.Step), string(p.Tier), observability.OutcomeOK).Inc()
		if ackErr := p.Consumer.Ack(ctx, msg); ackErr != nil {
			slog.ErrorContext(ctx, "ack failed", "stream", msg.Stream, "error", ackErr)
		}
		return
	}

	var rl *port.RateLimitError
	if errors.As(err, &rl) {
		// The handler already applied spec.md §4.12's rate-limit policy
		// (JobSchedule -> RATE_LIMIT_REACHED). Ack so it neither retries
		// nor dead-letters.
		om.MessagesTotal.WithLabelValues(string(p.Step), string(p.Tier), observability.OutcomeRateLimited).Inc()
		_ = p.Consumer.Ack(ctx, msg)
		return
	}

	observability.RecordError(ctx, err)
	if env.RetryCount < maxRetries {
		om.MessagesTotal.WithLabelValues(string(p.Step), string(p.Tier), observability.OutcomeRetried).Inc()
		env.RetryCount++
		delay := time.Duration(1<<uint(env.RetryCount-1)) * time.Second
		slog.WarnContext(ctx, "transient failure, scheduling retry",
			"type", env.Type, "retry_count", env.RetryCount, "delay", delay, "error", err)
		time.AfterFunc(delay, func() {
			if pubErr := p.republish(context.Background(), env); pubErr != nil {
				slog.ErrorContext(context.Background(), "retry republish failed", "error", pubErr)
			}
		})
		_ = p.Consumer.Ack(ctx, msg)
		return
	}

	slog.ErrorContext(ctx, "terminal failure, dead-lettering", "type", env.Type, "job_id", env.JobID, "error", err)
	om.MessagesTotal.WithLabelValues(string(p.Step), string(p.Tier), observability.OutcomeDeadLetter).Inc()
	if p.Failures != nil {
		errMsg := err.Error()
		if len(errMsg) > 500 {
			errMsg = errMsg[:500]
		}
		body, _ := env.Marshal()
		failure := &domain.ExtractionFailure{
			TenantID: env.TenantID, IntegrationID: env.IntegrationID,
			ExtractionType: env.Type, OriginalMessage: body, ErrorMessage: errMsg, FailedAt: time.Now().UTC(),
		}
		if saveErr := p.Failures.Save(ctx, failure); saveErr != nil {
			slog.ErrorContext(ctx, "failed to persist dead letter", "error", saveErr)
		}
		p.recordDLQMetric(ctx, env)
	}
	_ = p.Consumer.Ack(ctx, msg)
}

// recordDLQMetric ingests one dlq_rows_total data point per dead-lettered
// message (spec.md §4.17/§4.15: C15's alert rules key off this name to
// page on dead-letter pressure). Best-effort; a metrics outage must never
// block the dead-letter write that already happened.
func (p *Pool) recordDLQMetric(ctx context.Context, env *envelope.Envelope) {
	if p.Metrics == nil {
		return
	}
	err := p.Metrics.Ingest(ctx, port.IngestMetricInput{
		TenantID: env.TenantID,
		Name:     domain.MetricDLQRows,
		Value:    1,
		Labels:   map[string]string{"step": string(p.Step), "tier": string(p.Tier), "type": env.Type},
	})
	if err != nil {
		slog.WarnContext(ctx, "dlq metric ingest failed", "error", err)
	}
}

func (p *Pool) republish(ctx context.Context, env *envelope.Envelope) error {
	switch p.Step {
	case envelope.StepExtraction:
		return p.Publisher.PublishExtractionJob(ctx, p.Tier, env)
	case envelope.StepTransform:
		return p.Publisher.PublishTransformJob(ctx, p.Tier, env)
	default:
		return p.Publisher.PublishEmbeddingJob(ctx, p.Tier, env)
	}
}
