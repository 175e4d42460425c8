package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jimakugen/internal/jobs"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "jimakugen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestJobRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	job := &jobs.TranscriptionJob{
		ID:        "job-1",
		Source:    "scan",
		DedupeKey: "/media/ep01.mkv",
		Payload: jobs.JobPayload{
			MediaFile:  "/media/ep01.mkv",
			OutputFile: "/media/ep01.ja.srt",
		},
		Status:    jobs.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, store.UpsertJob(ctx, job))

	loaded, err := store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, job.ID, loaded[0].ID)
	assert.Equal(t, job.Payload, loaded[0].Payload)
	assert.Equal(t, jobs.StatusPending, loaded[0].Status)

	job.Status = jobs.StatusSuccess
	require.NoError(t, store.UpsertJob(ctx, job))
	loaded, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1, "upsert must not duplicate")
	assert.Equal(t, jobs.StatusSuccess, loaded[0].Status)

	require.NoError(t, store.DeleteJob(ctx, job.ID))
	loaded, err = store.LoadJobs(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestRunHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, store.SaveRun(ctx, RunRecord{
		MediaPath:   "/media/ep01.mkv",
		OutputPath:  "/media/ep01.ja.srt",
		ChunksTotal: 12,
		Accepted:    11,
		CacheHits:   4,
		Failed:      1,
		StartedAt:   started,
		FinishedAt:  started.Add(30 * time.Second),
	}))
	require.NoError(t, store.SaveRun(ctx, RunRecord{
		MediaPath:  "/media/ep01.mkv",
		OutputPath: "/media/ep01.ja.srt",
		Error:      "run aborted at chunk 3",
		StartedAt:  started.Add(time.Minute),
		FinishedAt: started.Add(2 * time.Minute),
	}))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.NotEmpty(t, runs[0].ID, "missing IDs are generated")
	assert.Equal(t, "run aborted at chunk 3", runs[0].Error, "newest first")

	last, ok, err := store.LastRunFor(ctx, "/media/ep01.mkv")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "run aborted at chunk 3", last.Error)

	_, ok, err = store.LastRunFor(ctx, "/media/other.mkv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jimakugen.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	assert.NoError(t, reopened.Close())
}
