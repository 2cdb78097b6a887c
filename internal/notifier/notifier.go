// Package notifier reacts to completed uploads. Bucket notifications arrive
// as batches of storage events; each record is reconciled into the job store
// and queued for processing independently, so one bad record never blocks its
// siblings. Delivery is at-least-once and possibly out of order.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"petavatar/internal/blob"
	"petavatar/internal/jobstore"
	"petavatar/internal/queue"
)

// StorageEvent is one completed-upload notification.
type StorageEvent struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// Batch is the envelope bucket notifications arrive in.
type Batch struct {
	Records []StorageEvent `json:"records"`
}

// DecodeBatch parses a notification payload. A bare single-record object is
// accepted alongside the usual {"records": [...]} envelope.
func DecodeBatch(payload []byte) (Batch, error) {
	var batch Batch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return Batch{}, err
	}
	if batch.Records != nil {
		return batch, nil
	}
	var single StorageEvent
	if err := json.Unmarshal(payload, &single); err != nil {
		return Batch{}, err
	}
	if single.Key == "" {
		return Batch{}, errors.New("notification carries no records")
	}
	return Batch{Records: []StorageEvent{single}}, nil
}

// Outcome aggregates per-record results for one batch. Errors are
// observability data; the batch itself always succeeds.
type Outcome struct {
	Processed int
	Skipped   int
	Errored   int
}

// Notifier reconciles upload events into the job store and enqueues
// processing messages.
type Notifier struct {
	store  jobstore.Store
	queue  *queue.ProcessingQueue
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a Notifier.
func New(store jobstore.Store, pq *queue.ProcessingQueue, logger zerolog.Logger) *Notifier {
	return &Notifier{store: store, queue: pq, logger: logger, now: time.Now}
}

// HandleBatch processes every record of one notification batch. Record
// failures are logged and counted, never propagated: batch delivery is not
// retried wholesale.
func (n *Notifier) HandleBatch(ctx context.Context, events []StorageEvent) Outcome {
	var out Outcome
	for _, ev := range events {
		jobID, ok := blob.JobIDFromKey(ev.Key)
		if !ok {
			n.logger.Warn().Str("key", ev.Key).Msg("notifier: object key outside uploads namespace, ignoring")
			out.Skipped++
			continue
		}
		if err := n.handleEvent(ctx, jobID, ev); err != nil {
			n.logger.Error().Err(err).
				Str("job_id", jobID).
				Str("key", ev.Key).
				Msg("notifier: event failed")
			out.Errored++
			continue
		}
		out.Processed++
	}
	n.logger.Info().
		Int("processed", out.Processed).
		Int("skipped", out.Skipped).
		Int("errored", out.Errored).
		Msg("notifier: batch done")
	return out
}

func (n *Notifier) handleEvent(ctx context.Context, jobID string, ev StorageEvent) error {
	created, err := n.store.UpsertQueued(ctx, jobID, ev.Key)
	if err != nil {
		return err
	}
	if created {
		n.logger.Info().Str("job_id", jobID).Msg("notifier: created job record")
	} else {
		n.logger.Debug().Str("job_id", jobID).Msg("notifier: updated job record")
	}

	return n.queue.Enqueue(ctx, queue.ProcessingMessage{
		JobID:          jobID,
		SourceLocation: ev.Key,
		Timestamp:      n.now().UTC(),
	})
}

// Run consumes notification payloads from src until ctx is done. Payloads
// that do not decode are dropped with a log; everything else flows through
// HandleBatch.
func (n *Notifier) Run(ctx context.Context, src queue.RawQueue, block time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		payload, err := src.Pop(ctx, block)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			n.logger.Error().Err(err).Msg("notifier: pop failed")
			continue
		}

		batch, err := DecodeBatch(payload)
		if err != nil {
			n.logger.Warn().Err(err).Msg("notifier: dropping undecodable notification")
			continue
		}
		n.HandleBatch(ctx, batch.Records)
	}
}
