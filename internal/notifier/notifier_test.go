package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"petavatar/internal/domain"
	"petavatar/internal/jobstore"
	"petavatar/internal/queue"
)

// flakyStore fails UpsertQueued for selected job IDs and delegates everything
// else to an in-memory store.
type flakyStore struct {
	jobstore.Store
	failFor map[string]bool
}

func (s *flakyStore) UpsertQueued(ctx context.Context, jobID, sourceLocation string) (bool, error) {
	if s.failFor[jobID] {
		return false, errors.New("store unavailable")
	}
	return s.Store.UpsertQueued(ctx, jobID, sourceLocation)
}

func newTestNotifier() (*Notifier, *jobstore.MemoryStore, *queue.Memory) {
	store := jobstore.NewMemoryStore()
	raw := queue.NewMemory()
	n := New(store, queue.NewProcessingQueue(raw), zerolog.Nop())
	return n, store, raw
}

func TestHandleBatchQueuesMatchingUploads(t *testing.T) {
	ctx := context.Background()
	n, store, raw := newTestNotifier()

	out := n.HandleBatch(ctx, []StorageEvent{
		{Bucket: "pets", Key: "uploads/j1/original"},
	})
	if out.Processed != 1 || out.Skipped != 0 || out.Errored != 0 {
		t.Fatalf("outcome = %+v", out)
	}

	job, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if job.SourceLocation != "uploads/j1/original" {
		t.Errorf("source = %q", job.SourceLocation)
	}
	if raw.Len() != 1 {
		t.Errorf("queue length = %d, want 1", raw.Len())
	}
}

func TestHandleBatchSkipsForeignKeys(t *testing.T) {
	ctx := context.Background()
	n, store, raw := newTestNotifier()

	out := n.HandleBatch(ctx, []StorageEvent{
		{Key: "generated/j1/avatar.png"},
		{Key: "logs/2026/03/01.txt"},
		{Key: "uploads/j2/original"},
	})
	if out.Processed != 1 || out.Skipped != 2 || out.Errored != 0 {
		t.Fatalf("outcome = %+v", out)
	}
	if _, err := store.Get(ctx, "j2"); err != nil {
		t.Errorf("expected job j2 to exist: %v", err)
	}
	if raw.Len() != 1 {
		t.Errorf("queue length = %d, want 1", raw.Len())
	}
}

func TestHandleBatchDuplicateEvents(t *testing.T) {
	ctx := context.Background()
	n, store, raw := newTestNotifier()

	events := []StorageEvent{
		{Key: "uploads/j1/original"},
		{Key: "uploads/j1/original"},
	}
	out := n.HandleBatch(ctx, events)
	if out.Processed != 2 || out.Errored != 0 {
		t.Fatalf("outcome = %+v", out)
	}

	job, err := store.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("status = %s", job.Status)
	}
	// Two messages is fine: the worker's claim makes the second a no-op.
	if raw.Len() != 2 {
		t.Errorf("queue length = %d, want 2", raw.Len())
	}
}

func TestHandleBatchIsolatesRecordFailures(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{Store: jobstore.NewMemoryStore(), failFor: map[string]bool{"bad": true}}
	raw := queue.NewMemory()
	n := New(store, queue.NewProcessingQueue(raw), zerolog.Nop())

	out := n.HandleBatch(ctx, []StorageEvent{
		{Key: "uploads/good1/original"},
		{Key: "uploads/bad/original"},
		{Key: "uploads/good2/original"},
	})
	if out.Processed != 2 || out.Errored != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if raw.Len() != 2 {
		t.Errorf("queue length = %d, want 2", raw.Len())
	}
}

func TestDecodeBatch(t *testing.T) {
	batch, err := DecodeBatch([]byte(`{"records":[{"bucket":"pets","key":"uploads/j1/original","size":42}]}`))
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Key != "uploads/j1/original" {
		t.Errorf("records = %+v", batch.Records)
	}

	batch, err = DecodeBatch([]byte(`{"bucket":"pets","key":"uploads/j2/original"}`))
	if err != nil {
		t.Fatalf("bare record: %v", err)
	}
	if len(batch.Records) != 1 || batch.Records[0].Key != "uploads/j2/original" {
		t.Errorf("records = %+v", batch.Records)
	}

	if _, err := DecodeBatch([]byte(`not json`)); err == nil {
		t.Error("expected error for malformed payload")
	}
	if _, err := DecodeBatch([]byte(`{}`)); err == nil {
		t.Error("expected error for empty notification")
	}
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	n, store, _ := newTestNotifier()

	src := queue.NewMemory()
	payload := []byte(`{"records":[{"key":"uploads/j1/original"}]}`)
	if err := src.Push(context.Background(), payload); err != nil {
		t.Fatalf("Push: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := n.Run(ctx, src, time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v", err)
	}

	if _, err := store.Get(context.Background(), "j1"); err != nil {
		t.Errorf("job not created: %v", err)
	}
}
