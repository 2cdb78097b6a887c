// Package queue provides at-least-once message transport for the pipeline.
// Redis lists carry both the processing queue and the upload-event feed; an
// in-memory implementation backs tests. Delivery may be duplicated or
// reordered — consumers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"petavatar/internal/domain"
)

// ErrEmpty is returned by Pop when no message arrives within the block
// window. Consumers poll again.
var ErrEmpty = errors.New("queue: no message available")

// RawQueue moves opaque payloads. Push appends; Pop blocks for up to block
// before reporting ErrEmpty.
type RawQueue interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context, block time.Duration) ([]byte, error)
}

// ProcessingMessage asks the worker to drive one job through the agent.
type ProcessingMessage struct {
	JobID          string    `json:"job_id"`
	SourceLocation string    `json:"source_location"`
	Timestamp      time.Time `json:"timestamp"`
}

// ProcessingQueue is a typed wrapper over a RawQueue for processing messages.
type ProcessingQueue struct {
	q RawQueue
}

// NewProcessingQueue wraps q with the processing-message codec.
func NewProcessingQueue(q RawQueue) *ProcessingQueue {
	return &ProcessingQueue{q: q}
}

// Enqueue pushes a processing request.
func (p *ProcessingQueue) Enqueue(ctx context.Context, msg ProcessingMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "encode processing message", err)
	}
	if err := p.q.Push(ctx, payload); err != nil {
		return domain.Wrap(domain.KindDependency, "enqueue processing message", err)
	}
	return nil
}

// Dequeue pops the next processing request. A payload that does not decode is
// reported as a ValidationError so the consumer can drop it without touching
// any job record; missing fields are the consumer's concern.
func (p *ProcessingQueue) Dequeue(ctx context.Context, block time.Duration) (ProcessingMessage, error) {
	payload, err := p.q.Pop(ctx, block)
	if err != nil {
		return ProcessingMessage{}, err
	}
	var msg ProcessingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return ProcessingMessage{}, domain.Wrap(domain.KindValidation, "malformed processing message", err)
	}
	return msg, nil
}
