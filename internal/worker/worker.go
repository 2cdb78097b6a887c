// Package worker consumes processing messages and drives the job state
// machine: claim the record, fetch the source image, invoke the agent,
// persist the avatar, finish the record. The queue delivers at least once;
// the conditional claim in the store is what makes redelivery safe.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"petavatar/internal/agent"
	"petavatar/internal/blob"
	"petavatar/internal/domain"
	"petavatar/internal/jobstore"
	"petavatar/internal/queue"
)

// Progress checkpoints reported while a job is in flight.
const (
	progressClaimed  = 10
	progressFetched  = 30
	progressAnalyzed = 70
	progressStored   = 90
)

const (
	defaultBlock      = 5 * time.Second
	defaultSweepEvery = time.Hour
)

// Worker drains the processing queue one message at a time.
type Worker struct {
	store  jobstore.Store
	queue  *queue.ProcessingQueue
	bucket blob.Bucket
	agent  agent.Invoker
	logger zerolog.Logger

	block      time.Duration
	sweepEvery time.Duration
}

// New creates a Worker with default polling and sweep intervals.
func New(store jobstore.Store, pq *queue.ProcessingQueue, bucket blob.Bucket, inv agent.Invoker, logger zerolog.Logger) *Worker {
	return &Worker{
		store:      store,
		queue:      pq,
		bucket:     bucket,
		agent:      inv,
		logger:     logger,
		block:      defaultBlock,
		sweepEvery: defaultSweepEvery,
	}
}

// Run consumes messages until ctx is done. Expired job records are swept
// opportunistically between messages.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Msg("worker: started")
	lastSweep := time.Now()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if time.Since(lastSweep) >= w.sweepEvery {
			if removed, err := w.store.DeleteExpired(ctx, time.Now()); err != nil {
				w.logger.Error().Err(err).Msg("worker: expiry sweep failed")
			} else if removed > 0 {
				w.logger.Info().Int64("removed", removed).Msg("worker: swept expired jobs")
			}
			lastSweep = time.Now()
		}

		msg, err := w.queue.Dequeue(ctx, w.block)
		if err != nil {
			if errors.Is(err, queue.ErrEmpty) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Undecodable payloads are dropped without touching any record.
			if domain.KindOf(err) == domain.KindValidation {
				w.logger.Warn().Err(err).Msg("worker: dropping malformed message")
				continue
			}
			w.logger.Error().Err(err).Msg("worker: dequeue failed")
			continue
		}

		if err := w.Handle(ctx, msg); err != nil {
			w.logger.Error().Err(err).Str("job_id", msg.JobID).Msg("worker: job failed")
		}
	}
}

// Handle drives one message through the state machine. A returned error means
// the job was marked failed (or could not be updated at all); duplicates and
// malformed messages return nil after a log.
func (w *Worker) Handle(ctx context.Context, msg queue.ProcessingMessage) error {
	if msg.JobID == "" {
		w.logger.Warn().Msg("worker: message missing job_id, skipping")
		return nil
	}
	log := w.logger.With().Str("job_id", msg.JobID).Logger()

	claimed, err := w.store.MarkProcessing(ctx, msg.JobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("worker: no record for message, skipping")
			return nil
		}
		return err
	}
	if !claimed {
		// Duplicate delivery: the job already left queued. The agent must
		// not run twice for it.
		log.Info().Msg("worker: duplicate delivery, skipping")
		return nil
	}
	_ = w.store.SetProgress(ctx, msg.JobID, progressClaimed)

	sourceKey := msg.SourceLocation
	if sourceKey == "" {
		job, err := w.store.Get(ctx, msg.JobID)
		if err != nil {
			return w.fail(ctx, log, msg.JobID, err)
		}
		sourceKey = job.SourceLocation
	}

	img, err := w.fetchSource(ctx, sourceKey)
	if err != nil {
		return w.fail(ctx, log, msg.JobID, err)
	}
	_ = w.store.SetProgress(ctx, msg.JobID, progressFetched)

	result, err := w.agent.Invoke(ctx, img)
	if err != nil {
		return w.fail(ctx, log, msg.JobID, err)
	}
	_ = w.store.SetProgress(ctx, msg.JobID, progressAnalyzed)

	avatarKey := blob.AvatarKey(msg.JobID)
	if err := w.bucket.Put(ctx, avatarKey, "image/png", result.AvatarPNG); err != nil {
		return w.fail(ctx, log, msg.JobID, err)
	}
	_ = w.store.SetProgress(ctx, msg.JobID, progressStored)

	if err := w.store.MarkCompleted(ctx, msg.JobID, avatarKey, &result.Payload); err != nil {
		if domain.KindOf(err) == domain.KindConflict {
			// The record already moved on without us; nothing to rescue.
			log.Warn().Err(err).Msg("worker: completion superseded")
			return nil
		}
		// The claim gate blocks redelivery from rescuing this job, so a
		// record left in processing would be stuck forever. Fail it instead.
		return w.fail(ctx, log, msg.JobID, domain.Wrap(domain.KindDependency, "persist completion", err))
	}
	log.Info().Str("avatar", avatarKey).Msg("worker: job completed")
	return nil
}

func (w *Worker) fetchSource(ctx context.Context, key string) (agent.Image, error) {
	data, err := w.bucket.Get(ctx, key)
	if err != nil {
		return agent.Image{}, err
	}
	img := agent.Image{Data: data}
	if info, err := w.bucket.Head(ctx, key); err == nil {
		img.ContentType = info.ContentType
	}
	return img, nil
}

// fail records the structured reason on the job. Storage and agent errors
// carry their own kind; anything unclassified is a dependency failure from
// the job's point of view.
func (w *Worker) fail(ctx context.Context, log zerolog.Logger, jobID string, cause error) error {
	kind := domain.KindOf(cause)
	if kind == domain.KindInternal {
		kind = domain.KindDependency
	}
	jobErr := domain.JobError{Kind: string(kind), Message: cause.Error()}
	if err := w.store.MarkFailed(ctx, jobID, jobErr); err != nil {
		log.Error().Err(err).Msg("worker: mark failed errored")
	}
	return cause
}
