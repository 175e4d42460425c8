package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 90, cfg.Chunking.TargetDurationS)
	assert.Equal(t, 2.0, cfg.Chunking.MaxGapS)
	assert.Equal(t, int64(700), cfg.Chunking.PaddingMS)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, ChunkErrorAbort, cfg.Pipeline.OnChunkError)
	assert.Equal(t, 25.0, cfg.Validation.MaxCPS)
	assert.Equal(t, 0.2, cfg.Validation.MinCPS)
	assert.Equal(t, 13.0, cfg.Validation.MaxDurationS)
	assert.Equal(t, "cache", cfg.Cache.Dir)
	assert.Equal(t, "ffmpeg", cfg.Media.FFmpegPath)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jimakugen.toml")
	content := `
[chunking]
target_duration_s = 60

[pipeline]
on_chunk_error = "skip"
max_retries = 5

[cache]
dir = "/tmp/jimaku-cache"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Chunking.TargetDurationS)
	assert.Equal(t, ChunkErrorSkip, cfg.Pipeline.OnChunkError)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	assert.Equal(t, "/tmp/jimaku-cache", cfg.Cache.Dir)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2.0, cfg.Chunking.MaxGapS)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("JIMAKUGEN_MODEL", "gemini-test-model")
	t.Setenv("JIMAKUGEN_MAX_RETRIES", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-test-model", cfg.Transcribe.Model)
	assert.Equal(t, 7, cfg.Pipeline.MaxRetries)
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\non_chunk_error = \"explode\"\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_chunk_error")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestRedactedMasksAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Transcribe.APIKey = "secret-key"
	assert.NotContains(t, cfg.Redacted(), "secret-key")
}
