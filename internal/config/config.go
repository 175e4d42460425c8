package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds the full application configuration. It is built once at
// startup and treated as immutable afterwards; components receive it
// (or a sub-struct) at construction and never consult process state.
//
// Values are resolved in three layers, later layers win:
//  1. built-in defaults (Default)
//  2. an optional TOML file (Load)
//  3. environment variables
//
// Environment Variables:
//   - GEMINI_API_KEY: API key for the transcription service (required for runs)
//   - JIMAKUGEN_MODEL: model name override
//   - JIMAKUGEN_CACHE_DIR: chunk cache directory
//   - JIMAKUGEN_DB_PATH: daemon queue database path
//   - JIMAKUGEN_LOG_LEVEL: debug|info|warn|error
type Config struct {
	Transcribe TranscribeConfig `toml:"transcribe"`
	Chunking   ChunkingConfig   `toml:"chunking"`
	Validation ValidationConfig `toml:"validation"`
	Pipeline   PipelineConfig   `toml:"pipeline"`
	Cache      CacheConfig      `toml:"cache"`
	Media      MediaConfig      `toml:"media"`
	Library    LibraryConfig    `toml:"library"`
	Log        LogConfig        `toml:"log"`
}

// TranscribeConfig configures the Gemini transcription client.
type TranscribeConfig struct {
	APIKey string `toml:"api_key"`
	Model  string `toml:"model"`
	// UploadPollIntervalS is the sleep between file-state polls while an
	// uploaded clip is still processing upstream.
	UploadPollIntervalS int `toml:"upload_poll_interval_s"`
	// UploadPollTimeoutS bounds the poll loop; exceeding it fails the chunk.
	UploadPollTimeoutS int `toml:"upload_poll_timeout_s"`
	// RequestsPerMinute throttles generate calls against the shared quota.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// ChunkingConfig controls dialogue clustering and audio cutting.
type ChunkingConfig struct {
	// TargetDurationS is the soft upper bound on a chunk's dialogue span.
	TargetDurationS int `toml:"target_duration_s"`
	// MaxGapS is the minimum silence between cues required to split.
	MaxGapS float64 `toml:"max_gap_s"`
	// PaddingMS widens the cut audio range on both sides of a cluster.
	PaddingMS int64 `toml:"padding_ms"`
}

// ValidationConfig holds the plausibility thresholds for transcribed lines.
type ValidationConfig struct {
	MaxCPS       float64 `toml:"max_cps"`
	MinCPS       float64 `toml:"min_cps"`
	MaxDurationS float64 `toml:"max_duration_s"`
}

// ChunkErrorPolicy selects what a transcription or extraction failure on
// one chunk does to the rest of the run.
type ChunkErrorPolicy string

const (
	// ChunkErrorAbort stops the whole run, keeping accepted chunks.
	ChunkErrorAbort ChunkErrorPolicy = "abort"
	// ChunkErrorSkip drops the failing chunk and continues.
	ChunkErrorSkip ChunkErrorPolicy = "skip"
)

// PipelineConfig controls the per-chunk retry state machine.
type PipelineConfig struct {
	MaxRetries int `toml:"max_retries"`
	// OnChunkError decides abort-vs-skip for non-rate-limit chunk errors.
	// Rate limits always stop the run.
	OnChunkError ChunkErrorPolicy `toml:"on_chunk_error"`
	KeepTemp     bool             `toml:"keep_temp"`
	// Limit stops after N chunks when > 0; used for smoke runs.
	Limit int `toml:"limit"`
}

// CacheConfig locates the durable chunk transcription cache.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// MediaConfig configures the ffmpeg/ffprobe backend.
type MediaConfig struct {
	FFmpegPath   string `toml:"ffmpeg_path"`
	FFprobePath  string `toml:"ffprobe_path"`
	AudioCodec   string `toml:"audio_codec"`
	AudioBitrate string `toml:"audio_bitrate"`
}

// LibraryConfig configures daemon-mode library scanning.
type LibraryConfig struct {
	Dirs     []string `toml:"dirs"`
	CronExpr string   `toml:"cron_expr"`
	DBPath   string   `toml:"db_path"`
	// HTTPAddr enables the daemon status API when non-empty.
	HTTPAddr string `toml:"http_addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the documented built-in configuration.
func Default() Config {
	return Config{
		Transcribe: TranscribeConfig{
			Model:               "gemini-2.0-flash-exp",
			UploadPollIntervalS: 2,
			UploadPollTimeoutS:  120,
			RequestsPerMinute:   10,
		},
		Chunking: ChunkingConfig{
			TargetDurationS: 90,
			MaxGapS:         2.0,
			PaddingMS:       700,
		},
		Validation: ValidationConfig{
			MaxCPS:       25.0,
			MinCPS:       0.2,
			MaxDurationS: 13.0,
		},
		Pipeline: PipelineConfig{
			MaxRetries:   3,
			OnChunkError: ChunkErrorAbort,
		},
		Cache: CacheConfig{
			Dir: "cache",
		},
		Media: MediaConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			AudioCodec:   "aac",
			AudioBitrate: "128k",
		},
		Library: LibraryConfig{
			CronExpr: "0 3 * * *",
			DBPath:   "jimakugen.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds a Config from defaults, the optional TOML file at path and
// the environment. An empty path skips the file layer; a named file that
// does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Transcribe.APIKey = getEnvString("GEMINI_API_KEY", c.Transcribe.APIKey)
	c.Transcribe.Model = getEnvString("JIMAKUGEN_MODEL", c.Transcribe.Model)
	c.Cache.Dir = getEnvString("JIMAKUGEN_CACHE_DIR", c.Cache.Dir)
	c.Library.DBPath = getEnvString("JIMAKUGEN_DB_PATH", c.Library.DBPath)
	c.Log.Level = getEnvString("JIMAKUGEN_LOG_LEVEL", c.Log.Level)
	c.Pipeline.MaxRetries = getEnvInt("JIMAKUGEN_MAX_RETRIES", c.Pipeline.MaxRetries)
}

func (c *Config) validate() error {
	if c.Chunking.TargetDurationS <= 0 {
		return fmt.Errorf("chunking.target_duration_s must be positive")
	}
	if c.Chunking.MaxGapS < 0 {
		return fmt.Errorf("chunking.max_gap_s must not be negative")
	}
	if c.Chunking.PaddingMS < 0 {
		return fmt.Errorf("chunking.padding_ms must not be negative")
	}
	if c.Pipeline.MaxRetries < 1 {
		return fmt.Errorf("pipeline.max_retries must be at least 1")
	}
	switch c.Pipeline.OnChunkError {
	case ChunkErrorAbort, ChunkErrorSkip:
	default:
		return fmt.Errorf("pipeline.on_chunk_error must be %q or %q", ChunkErrorAbort, ChunkErrorSkip)
	}
	if c.Validation.MaxCPS <= c.Validation.MinCPS {
		return fmt.Errorf("validation.max_cps must exceed validation.min_cps")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// Redacted renders the config for logging with the API key masked.
func (c Config) Redacted() string {
	masked := c
	if masked.Transcribe.APIKey != "" {
		masked.Transcribe.APIKey = strings.Repeat("*", 8)
	}
	return fmt.Sprintf("%+v", masked)
}
