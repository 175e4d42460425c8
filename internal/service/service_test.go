package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jimakugen/internal/config"
	"jimakugen/internal/jobs"
	"jimakugen/internal/library"
	"jimakugen/internal/persistence"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestScanAndEnqueueDeduplicates(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "ep01.mkv"))
	touch(t, filepath.Join(dir, "ep02.mkv"))

	cfg := config.Default()
	cfg.Library.Dirs = []string{dir}

	scanner := library.NewScanner(cfg.Library.Dirs, library.WithCacheTTL(0))
	queue := jobs.NewQueue(1, nil)
	svc := New(cfg, scanner, queue, nil, nil)

	added, err := svc.scanAndEnqueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	// Jobs are still pending, so a rescan must not enqueue them again.
	added, err = svc.scanAndEnqueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestExecuteRecordsRunHistory(t *testing.T) {
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "jimakugen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	var mu sync.Mutex
	ran := make([]string, 0)
	runner := func(ctx context.Context, mediaPath, outputPath string) (persistence.RunRecord, error) {
		mu.Lock()
		ran = append(ran, mediaPath)
		mu.Unlock()
		return persistence.RunRecord{
			MediaPath:   mediaPath,
			OutputPath:  outputPath,
			ChunksTotal: 3,
			Accepted:    3,
			StartedAt:   time.Now().UTC(),
			FinishedAt:  time.Now().UTC(),
		}, nil
	}

	cfg := config.Default()
	svc := New(cfg, library.NewScanner(nil), jobs.NewQueue(1, nil), store, runner)

	err = svc.execute(context.Background(), &jobs.TranscriptionJob{
		ID: "job-1",
		Payload: jobs.JobPayload{
			MediaFile:  "/media/ep01.mkv",
			OutputFile: "/media/ep01.ja.srt",
		},
	})
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"/media/ep01.mkv"}, ran)
	mu.Unlock()

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].Accepted)
}

func TestExecuteRecordsFailure(t *testing.T) {
	store, err := persistence.NewSQLiteStore(filepath.Join(t.TempDir(), "jimakugen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runner := func(ctx context.Context, mediaPath, outputPath string) (persistence.RunRecord, error) {
		return persistence.RunRecord{
			MediaPath: mediaPath,
			Error:     assert.AnError.Error(),
		}, assert.AnError
	}

	svc := New(config.Default(), library.NewScanner(nil), jobs.NewQueue(1, nil), store, runner)
	err = svc.execute(context.Background(), &jobs.TranscriptionJob{
		ID:      "job-1",
		Payload: jobs.JobPayload{MediaFile: "/media/ep01.mkv"},
	})
	require.Error(t, err)

	runs, err := store.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].Error)
}
