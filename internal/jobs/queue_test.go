package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*TranscriptionJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*TranscriptionJob)}
}

func (m *memStore) LoadJobs(ctx context.Context) ([]*TranscriptionJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ret := make([]*TranscriptionJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		tmp := *j
		ret = append(ret, &tmp)
	}
	return ret, nil
}

func (m *memStore) UpsertJob(ctx context.Context, job *TranscriptionJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tmp := *job
	m.jobs[job.ID] = &tmp
	return nil
}

func (m *memStore) DeleteJob(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestEnqueueDeduplicatesActiveJobs(t *testing.T) {
	q := NewQueue(1, nil)

	first, added := q.Enqueue(EnqueueRequest{
		Source:    "scan",
		DedupeKey: "/media/ep01.mkv",
		Payload:   JobPayload{MediaFile: "/media/ep01.mkv"},
	})
	require.True(t, added)

	second, added := q.Enqueue(EnqueueRequest{
		Source:    "watch",
		DedupeKey: "/media/ep01.mkv",
		Payload:   JobPayload{MediaFile: "/media/ep01.mkv"},
	})
	assert.False(t, added)
	assert.Equal(t, first.ID, second.ID)
}

func TestWorkerRunsJobsToTerminalStatus(t *testing.T) {
	q := NewQueue(1, nil)
	defer q.Stop()

	var mu sync.Mutex
	seen := make([]string, 0)
	q.Start(context.Background(), func(ctx context.Context, job *TranscriptionJob) error {
		mu.Lock()
		seen = append(seen, job.Payload.MediaFile)
		mu.Unlock()
		return nil
	})

	job, added := q.Enqueue(EnqueueRequest{
		DedupeKey: "/media/ep02.mkv",
		Payload:   JobPayload{MediaFile: "/media/ep02.mkv", OutputFile: "/media/ep02.ja.srt"},
	})
	require.True(t, added)

	waitFor(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusSuccess
	})

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/media/ep02.mkv"}, seen)
}

func TestStopCancelsInFlightJob(t *testing.T) {
	q := NewQueue(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	q.Start(ctx, func(jobCtx context.Context, job *TranscriptionJob) error {
		close(started)
		<-jobCtx.Done()
		return jobCtx.Err()
	})

	job, added := q.Enqueue(EnqueueRequest{DedupeKey: "/media/ep05.mkv"})
	require.True(t, added)
	<-started

	// Stop would block on the in-flight run; cancelling the base context
	// must interrupt it.
	cancel()
	q.Stop()

	got, ok := q.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Contains(t, got.Error, context.Canceled.Error())
}

func TestQueuePersistsAndRehydrates(t *testing.T) {
	store := newMemStore()

	q := NewQueue(1, store)
	job, added := q.Enqueue(EnqueueRequest{
		DedupeKey: "/media/ep03.mkv",
		Payload:   JobPayload{MediaFile: "/media/ep03.mkv"},
	})
	require.True(t, added)

	// Simulate a crash mid-run: persist the running state without finishing.
	running := *job
	running.Status = StatusRunning
	require.NoError(t, store.UpsertJob(context.Background(), &running))

	q2 := NewQueue(1, store)
	got, ok := q2.Get(job.ID)
	require.True(t, ok)
	assert.Equal(t, StatusPending, got.Status, "interrupted jobs are requeued")

	// The dedupe key is still held by the requeued job.
	_, added = q2.Enqueue(EnqueueRequest{DedupeKey: "/media/ep03.mkv"})
	assert.False(t, added)
}

func TestFailedJobKeepsError(t *testing.T) {
	q := NewQueue(1, nil)
	defer q.Stop()

	q.Start(context.Background(), func(ctx context.Context, job *TranscriptionJob) error {
		return assert.AnError
	})

	job, _ := q.Enqueue(EnqueueRequest{DedupeKey: "/media/ep04.mkv"})
	waitFor(t, func() bool {
		got, ok := q.Get(job.ID)
		return ok && got.Status == StatusFailed
	})

	got, _ := q.Get(job.ID)
	assert.NotEmpty(t, got.Error)
}
