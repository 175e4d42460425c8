package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestScanFindsMediaWithoutOutput(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "show", "ep01.mkv"))
	touch(t, filepath.Join(dir, "show", "ep02.mkv"))
	touch(t, filepath.Join(dir, "show", "ep02.ja.srt"))
	touch(t, filepath.Join(dir, "show", "notes.txt"))

	s := NewScanner([]string{dir}, WithCacheTTL(0))
	got, err := s.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, filepath.Join(dir, "show", "ep01.mkv"), got[0].MediaPath)
	assert.Equal(t, filepath.Join(dir, "show", "ep01.ja.srt"), got[0].OutputPath)
}

func TestScanSortsAcrossDirectories(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	touch(t, filepath.Join(dirB, "b.mp4"))
	touch(t, filepath.Join(dirA, "a.mkv"))

	s := NewScanner([]string{dirB, dirA}, WithCacheTTL(0))
	got, err := s.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].MediaPath < got[1].MediaPath)
}

func TestScanCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "ep01.mkv"))

	s := NewScanner([]string{dir}, WithCacheTTL(time.Hour))
	first, err := s.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	touch(t, filepath.Join(dir, "ep02.mkv"))

	cached, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached, 1, "within the TTL the cached result is served")

	s.Invalidate()
	fresh, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, fresh, 2)
}

func TestScanSkipsUnsettledFiles(t *testing.T) {
	dir := t.TempDir()
	settled := filepath.Join(dir, "ep01.mkv")
	fresh := filepath.Join(dir, "ep02.mkv")
	touch(t, settled)
	touch(t, fresh)
	old := time.Now().Add(-time.Minute)
	require.NoError(t, os.Chtimes(settled, old, old))

	s := NewScanner([]string{dir}, WithCacheTTL(0), WithSettleWindow(30*time.Second))
	got, err := s.Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, settled, got[0].MediaPath)
}

func TestScanSkipsMissingDirectory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "ep01.mkv"))

	s := NewScanner([]string{filepath.Join(dir, "nope"), dir}, WithCacheTTL(0))
	got, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
