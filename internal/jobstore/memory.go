package jobstore

import (
	"context"
	"sync"
	"time"

	"petavatar/internal/domain"
)

// MemoryStore is an in-process Store with the same conditional-write
// semantics as the Postgres implementation. It backs unit tests and local
// development without a database.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*domain.Job), now: time.Now}
}

// SetClock overrides the time source; tests use it to exercise expiry.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *MemoryStore) UpsertQueued(ctx context.Context, jobID, sourceLocation string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if job, ok := s.jobs[jobID]; ok {
		job.SourceLocation = sourceLocation
		job.UpdatedAt = now
		return false, nil
	}
	s.jobs[jobID] = &domain.Job{
		ID:             jobID,
		Status:         domain.JobStatusQueued,
		SourceLocation: sourceLocation,
		CreatedAt:      now,
		UpdatedAt:      now,
		ExpiresAt:      now.Add(domain.RetentionWindow),
	}
	return true, nil
}

func (s *MemoryStore) MarkProcessing(ctx context.Context, jobID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return false, nil
	}
	job.Status = domain.JobStatusProcessing
	job.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) SetProgress(ctx context.Context, jobID string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok || job.Status.Terminal() {
		return nil
	}
	if p := clampProgress(progress); p > job.Progress {
		job.Progress = p
	}
	job.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, jobID, resultLocation string, payload *domain.ResultPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status != domain.JobStatusProcessing {
		return domain.Ef(domain.KindConflict, "job %s not in processing state", jobID)
	}
	job.Status = domain.JobStatusCompleted
	job.Progress = 100
	job.ResultLocation = resultLocation
	job.ResultPayload = payload
	job.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) MarkFailed(ctx context.Context, jobID string, jobErr domain.JobError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if job.Status.Terminal() {
		return domain.Ef(domain.KindConflict, "job %s already terminal", jobID)
	}
	job.Status = domain.JobStatusFailed
	job.Error = &jobErr
	job.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, job := range s.jobs {
		if job.ExpiresAt.Before(now) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

var _ Store = (*MemoryStore)(nil)
