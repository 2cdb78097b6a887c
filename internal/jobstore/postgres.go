package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"petavatar/internal/domain"
)

// PostgresStore implements Store on a pgx pool. Conditional updates lean on
// the database's single-statement atomicity; there is no other concurrency
// primitive in the system.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a job store backed by PostgreSQL.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `
SELECT job_id, status, progress, source_location, result_location, result_payload,
       error_kind, error_message, created_at, updated_at, expires_at
FROM jobs
WHERE job_id = $1;
`
	row := s.pool.QueryRow(ctx, query, jobID)

	var (
		job          domain.Job
		resultLoc    *string
		payloadBytes []byte
		errKind      *string
		errMessage   *string
	)
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Progress,
		&job.SourceLocation,
		&resultLoc,
		&payloadBytes,
		&errKind,
		&errMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.ExpiresAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Wrap(domain.KindDependency, "query job", err)
	}
	if resultLoc != nil {
		job.ResultLocation = *resultLoc
	}
	if len(payloadBytes) > 0 {
		var payload domain.ResultPayload
		if err := json.Unmarshal(payloadBytes, &payload); err != nil {
			return nil, domain.Wrap(domain.KindInternal, "decode result payload", err)
		}
		job.ResultPayload = &payload
	}
	if errKind != nil {
		job.Error = &domain.JobError{Kind: *errKind}
		if errMessage != nil {
			job.Error.Message = *errMessage
		}
	}
	return &job, nil
}

func (s *PostgresStore) UpsertQueued(ctx context.Context, jobID, sourceLocation string) (bool, error) {
	// The conflict branch deliberately touches only source_location and
	// updated_at so a late or duplicate upload event can never regress a job
	// that has moved on.
	query := `
INSERT INTO jobs (job_id, status, progress, source_location, created_at, updated_at, expires_at)
VALUES ($1, 'queued', 0, $2, now(), now(), now() + make_interval(secs => $3))
ON CONFLICT (job_id) DO UPDATE
SET source_location = EXCLUDED.source_location,
    updated_at      = now()
RETURNING (xmax = 0) AS inserted;
`
	var inserted bool
	if err := s.pool.QueryRow(ctx, query, jobID, sourceLocation, domain.RetentionWindow.Seconds()).Scan(&inserted); err != nil {
		return false, domain.Wrap(domain.KindDependency, "upsert job", err)
	}
	return inserted, nil
}

func (s *PostgresStore) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	query := `
UPDATE jobs
SET status = 'processing', updated_at = now()
WHERE job_id = $1 AND status = 'queued';
`
	tag, err := s.pool.Exec(ctx, query, jobID)
	if err != nil {
		return false, domain.Wrap(domain.KindDependency, "mark processing", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	// Either the record is missing or another delivery got here first.
	if _, err := s.Get(ctx, jobID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) SetProgress(ctx context.Context, jobID string, progress int) error {
	query := `
UPDATE jobs
SET progress = GREATEST(progress, $2), updated_at = now()
WHERE job_id = $1 AND status IN ('queued', 'processing');
`
	if _, err := s.pool.Exec(ctx, query, jobID, clampProgress(progress)); err != nil {
		return domain.Wrap(domain.KindDependency, "set progress", err)
	}
	return nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, jobID, resultLocation string, payload *domain.ResultPayload) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return domain.Wrap(domain.KindInternal, "encode result payload", err)
	}
	query := `
UPDATE jobs
SET status = 'completed',
    progress = 100,
    result_location = $2,
    result_payload = $3,
    updated_at = now()
WHERE job_id = $1 AND status = 'processing';
`
	tag, err := s.pool.Exec(ctx, query, jobID, resultLocation, payloadBytes)
	if err != nil {
		return domain.Wrap(domain.KindDependency, "mark completed", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Ef(domain.KindConflict, "job %s not in processing state", jobID)
	}
	return nil
}

func (s *PostgresStore) MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error {
	query := `
UPDATE jobs
SET status = 'failed',
    error_kind = $2,
    error_message = $3,
    updated_at = now()
WHERE job_id = $1 AND status IN ('queued', 'processing');
`
	tag, err := s.pool.Exec(ctx, query, jobID, jobErr.Kind, jobErr.Message)
	if err != nil {
		return domain.Wrap(domain.KindDependency, "mark failed", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Ef(domain.KindConflict, "job %s already terminal", jobID)
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE expires_at < $1;`, now)
	if err != nil {
		return 0, domain.Wrap(domain.KindDependency, "delete expired", err)
	}
	return tag.RowsAffected(), nil
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

var _ Store = (*PostgresStore)(nil)
