// Package jobstore persists job records and enforces the lifecycle rules that
// make concurrent writers safe: creation is upsert-idempotent, status only
// moves forward, and every transition is a single conditional update.
package jobstore

import (
	"context"
	"time"

	"petavatar/internal/domain"
)

// Store is the contract over the durable job record. All writes are
// conditional; no caller ever holds a lock.
type Store interface {
	// Get returns the job, or a NotFoundError when no record exists.
	Get(ctx context.Context, jobID string) (*domain.Job, error)

	// UpsertQueued creates the record in status queued if absent. When the
	// record already exists, only source_location and updated_at are touched;
	// status, results and errors are never regressed. Safe under duplicate
	// and out-of-order deliveries.
	UpsertQueued(ctx context.Context, jobID, sourceLocation string) (created bool, err error)

	// MarkProcessing transitions queued -> processing. claimed is false when
	// the record is already processing or terminal, which callers treat as a
	// duplicate delivery. Absent records yield a NotFoundError.
	MarkProcessing(ctx context.Context, jobID string) (claimed bool, err error)

	// SetProgress raises progress (never lowers it) while the job is
	// non-terminal.
	SetProgress(ctx context.Context, jobID string, progress int) error

	// MarkCompleted transitions processing -> completed, recording the result
	// location and payload atomically.
	MarkCompleted(ctx context.Context, jobID, resultLocation string, payload *domain.ResultPayload) error

	// MarkFailed transitions a non-terminal job to failed with a structured
	// reason. Terminal records are left untouched.
	MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error

	// DeleteExpired removes records whose retention window has lapsed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
