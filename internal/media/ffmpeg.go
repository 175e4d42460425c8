package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"

	"jimakugen/internal/config"
	"jimakugen/pkg/log"
)

type ffmpeg struct {
	ffmpegCmd    string
	ffprobeCmd   string
	audioCodec   string
	audioBitrate string
	filePath     string
	fileName     string
}

// NewBackend returns a Backend bound to mediaPath, driven by the ffmpeg
// and ffprobe binaries named in cfg.
func NewBackend(cfg config.MediaConfig, mediaPath string) Backend {
	mediaPath = filepath.Clean(mediaPath)
	return &ffmpeg{
		ffmpegCmd:    cfg.FFmpegPath,
		ffprobeCmd:   cfg.FFprobePath,
		audioCodec:   cfg.AudioCodec,
		audioBitrate: cfg.AudioBitrate,
		filePath:     mediaPath,
		fileName:     filepath.Base(mediaPath),
	}
}

// ProbeStreams lists all streams of the bound file with the tags used by
// track scoring.
func (ff *ffmpeg) ProbeStreams(ctx context.Context) ([]Stream, error) {
	cmdPath, err := exec.LookPath(ff.ffprobeCmd)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	args := []string{
		"-v", "error",
		"-show_entries", "stream=index,codec_type:stream_tags=title,language,NUMBER_OF_FRAMES",
		"-of", "json",
		ff.filePath,
	}
	output, err := exec.CommandContext(ctx, cmdPath, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", ff.fileName, err)
	}

	var probeResult struct {
		Streams []Stream `json:"streams"`
	}
	if err := json.Unmarshal(output, &probeResult); err != nil {
		return nil, fmt.Errorf("parse ffprobe output for %s: %w", ff.fileName, err)
	}

	return probeResult.Streams, nil
}

// ExtractSubtitleTrack demuxes the subtitle stream at streamIndex into
// outPath. The container format is inferred from the output extension.
func (ff *ffmpeg) ExtractSubtitleTrack(ctx context.Context, streamIndex int, outPath string) error {
	cmdPath, err := exec.LookPath(ff.ffmpegCmd)
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	args := []string{
		"-y",
		"-i", ff.filePath,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		outPath,
	}
	log.Debug("Extracting subtitle stream %d from %s", streamIndex, ff.fileName)
	if out, err := exec.CommandContext(ctx, cmdPath, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("extract subtitle stream %d from %s: %w (%s)", streamIndex, ff.fileName, err, tail(out))
	}
	return nil
}

// ExtractAudioRange cuts [startMS, endMS) of the audio stream at
// streamIndex into an encoded clip at outPath.
func (ff *ffmpeg) ExtractAudioRange(ctx context.Context, streamIndex int, startMS, endMS int64, outPath string) error {
	cmdPath, err := exec.LookPath(ff.ffmpegCmd)
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	durationS := float64(endMS-startMS) / 1000.0
	args := []string{
		"-y",
		"-ss", formatSeekTime(startMS),
		"-i", ff.filePath,
		"-map", fmt.Sprintf("0:%d", streamIndex),
		"-t", fmt.Sprintf("%.3f", durationS),
		"-vn",
		"-c:a", ff.audioCodec,
		"-b:a", ff.audioBitrate,
		outPath,
	}
	log.Debug("Cutting audio %s..%s (stream %d) from %s",
		formatSeekTime(startMS), formatSeekTime(endMS), streamIndex, ff.fileName)
	if out, err := exec.CommandContext(ctx, cmdPath, args...).CombinedOutput(); err != nil {
		return fmt.Errorf("extract audio range %d-%dms from %s: %w (%s)", startMS, endMS, ff.fileName, err, tail(out))
	}
	return nil
}

// formatSeekTime renders milliseconds as H:MM:SS.mmm for ffmpeg -ss.
func formatSeekTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	return fmt.Sprintf("%d:%02d:%02d.%03d",
		totalSeconds/3600,
		(totalSeconds%3600)/60,
		totalSeconds%60,
		ms%1000)
}

// tail keeps the last part of a process's combined output for error
// messages; ffmpeg banners are long and the failure is always at the end.
func tail(out []byte) string {
	const max = 300
	s := string(out)
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
