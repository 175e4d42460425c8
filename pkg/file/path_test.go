package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "b.srt"), ReplaceExt(filepath.Join("a", "b.mkv"), ".srt"))
	assert.Equal(t, filepath.Join("a", "b.srt"), ReplaceExt(filepath.Join("a", "b.mkv"), "srt"))
	assert.Equal(t, ".hidden", ReplaceExt(".hidden", ""))
}

func TestSiblingWithSuffix(t *testing.T) {
	assert.Equal(t, filepath.Join("v", "ep01.ja.srt"),
		SiblingWithSuffix(filepath.Join("v", "ep01.mkv"), ".ja.srt"))
}

func TestIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	info, err := os.Stat(path)
	require.NoError(t, err)

	now := time.Now()
	assert.False(t, IsStable(info, time.Minute, now))
	assert.True(t, IsStable(info, time.Minute, now.Add(2*time.Minute)))
	assert.True(t, IsStable(info, 0, now), "zero window disables the check")
}
