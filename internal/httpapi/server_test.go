package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jimakugen/internal/jobs"
	"jimakugen/internal/library"
)

func newTestServer(t *testing.T, dir string) (*Server, *jobs.Queue) {
	t.Helper()
	scanner := library.NewScanner([]string{dir}, library.WithCacheTTL(0))
	queue := jobs.NewQueue(1, nil)
	return NewServer(scanner, queue, nil), queue
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, t.TempDir())
	rec := get(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestJobsListAndFilter(t *testing.T) {
	s, queue := newTestServer(t, t.TempDir())
	queue.Enqueue(jobs.EnqueueRequest{
		DedupeKey: "/media/ep01.mkv",
		Payload:   jobs.JobPayload{MediaFile: "/media/ep01.mkv"},
	})

	rec := get(t, s, "/api/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []jobs.TranscriptionJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "/media/ep01.mkv", list[0].Payload.MediaFile)

	rec = get(t, s, "/api/jobs?status=success")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestCandidates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ep01.mkv"), []byte("x"), 0644))
	s, _ := newTestServer(t, dir)

	rec := get(t, s, "/api/candidates")
	require.Equal(t, http.StatusOK, rec.Code)
	var candidates []library.Candidate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &candidates))
	require.Len(t, candidates, 1)
}

func TestScanRequiresPost(t *testing.T) {
	s, _ := newTestServer(t, t.TempDir())
	rec := get(t, s, "/api/scan")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/scan", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRunsWithoutStore(t *testing.T) {
	s, _ := newTestServer(t, t.TempDir())
	rec := get(t, s, "/api/runs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
