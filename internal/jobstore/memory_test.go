package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petavatar/internal/domain"
)

func TestUpsertQueuedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	created, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.UpsertQueued(ctx, "j1", "uploads/j1/retry")
	require.NoError(t, err)
	assert.False(t, created)

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)
	assert.Equal(t, "uploads/j1/retry", job.SourceLocation)
}

func TestUpsertQueuedNeverRegressesStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)
	claimed, err := store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)
	require.True(t, claimed)

	// A redelivered upload event must not reset the status.
	created, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)
	assert.False(t, created)

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
}

func TestMarkProcessingClaimsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)

	claimed, err := store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second delivery of the same message: the gate stays shut.
	claimed, err = store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, claimed)

	_, err = store.MarkProcessing(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSetProgressIsMonotonic(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)
	_, err = store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)

	require.NoError(t, store.SetProgress(ctx, "j1", 70))
	require.NoError(t, store.SetProgress(ctx, "j1", 30))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 70, job.Progress)

	// Out-of-range values are clamped, not rejected.
	require.NoError(t, store.SetProgress(ctx, "j1", 150))
	job, err = store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
}

func TestSetProgressIgnoresTerminalJobs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)
	_, err = store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)
	require.NoError(t, store.MarkCompleted(ctx, "j1", "generated/j1/avatar.png", &domain.ResultPayload{}))

	require.NoError(t, store.SetProgress(ctx, "j1", 50))
	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, 100, job.Progress)
}

func TestMarkCompletedRequiresProcessing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)

	err = store.MarkCompleted(ctx, "j1", "generated/j1/avatar.png", &domain.ResultPayload{})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)
	payload := &domain.ResultPayload{
		PetAnalysis: domain.PetAnalysis{Species: "cat"},
	}
	require.NoError(t, store.MarkCompleted(ctx, "j1", "generated/j1/avatar.png", payload))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	assert.Equal(t, "generated/j1/avatar.png", job.ResultLocation)
	require.NotNil(t, job.ResultPayload)
	assert.Equal(t, "cat", job.ResultPayload.PetAnalysis.Species)
	assert.Nil(t, job.Error)

	// completed is terminal: a late failure report is a conflict.
	err = store.MarkFailed(ctx, "j1", domain.JobError{Kind: "DependencyError", Message: "late"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestMarkFailedIsTerminal(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)
	_, err = store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)

	jobErr := domain.JobError{Kind: "DependencyError", Message: "agent timed out"}
	require.NoError(t, store.MarkFailed(ctx, "j1", jobErr))

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "agent timed out", job.Error.Message)
	assert.Empty(t, job.ResultLocation)
	assert.Nil(t, job.ResultPayload)

	// failed is terminal too.
	err = store.MarkCompleted(ctx, "j1", "generated/j1/avatar.png", &domain.ResultPayload{})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	claimed, err := store.MarkProcessing(ctx, "j1")
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestDeleteExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return base })

	_, err := store.UpsertQueued(ctx, "old", "uploads/old/original")
	require.NoError(t, err)

	store.SetClock(func() time.Time { return base.Add(time.Hour) })
	_, err = store.UpsertQueued(ctx, "fresh", "uploads/fresh/original")
	require.NoError(t, err)

	removed, err := store.DeleteExpired(ctx, base.Add(domain.RetentionWindow+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = store.Get(ctx, "old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Get(ctx, "fresh")
	assert.NoError(t, err)
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.UpsertQueued(ctx, "j1", "uploads/j1/original")
	require.NoError(t, err)

	job, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	job.Status = domain.JobStatusFailed

	again, err := store.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, again.Status)
}
