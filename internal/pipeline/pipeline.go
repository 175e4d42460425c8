package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"

	"jimakugen/internal/cache"
	"jimakugen/internal/cluster"
	"jimakugen/internal/config"
	"jimakugen/internal/gemini"
	"jimakugen/internal/media"
	"jimakugen/internal/subtitle"
	"jimakugen/internal/transcript"
	"jimakugen/pkg/file"
	"jimakugen/pkg/log"
)

// ChunkState is the lifecycle stage a chunk last reached.
type ChunkState string

const (
	StatePending      ChunkState = "pending"
	StateCacheHit     ChunkState = "cache_hit"
	StateExtracting   ChunkState = "extracting"
	StateTranscribing ChunkState = "transcribing"
	StateParsing      ChunkState = "parsing"
	StateValidating   ChunkState = "validating"
	StateAccepted     ChunkState = "accepted"
	StateRetrying     ChunkState = "retrying"
	StateFailed       ChunkState = "failed"
	StateAborted      ChunkState = "aborted"
)

// ChunkResult records the outcome of one chunk for the run report.
type ChunkResult struct {
	Index    int
	StartMS  int64
	EndMS    int64
	State    ChunkState
	Attempts int
	Lines    int
	Err      error
}

// Report summarizes a full run. Counts are derived from Chunks.
type Report struct {
	Source string
	Output string
	Chunks []ChunkResult
}

// Accepted returns how many chunks produced output, cache hits included.
func (r *Report) Accepted() int {
	return r.count(StateAccepted, StateCacheHit)
}

// CacheHits returns how many chunks were served without an external call.
func (r *Report) CacheHits() int {
	return r.count(StateCacheHit)
}

// Failed returns how many chunks were given up on.
func (r *Report) Failed() int {
	return r.count(StateFailed, StateAborted)
}

// Unattempted returns how many chunks were never started because the run
// stopped early.
func (r *Report) Unattempted() int {
	return r.count(StatePending)
}

func (r *Report) count(states ...ChunkState) int {
	n := 0
	for _, c := range r.Chunks {
		for _, s := range states {
			if c.State == s {
				n++
			}
		}
	}
	return n
}

// Options names one run's inputs and output.
type Options struct {
	MediaPath string
	// OutputPath defaults to the media path with a ".ja.srt" suffix.
	OutputPath string
	// SeriesContext is optional background text included in every prompt.
	SeriesContext string
}

// Orchestrator runs the full transcription pipeline for one media file:
// reference track selection and filtering, dialogue clustering, per-chunk
// audio extraction, transcription, parsing and validation, and final
// track serialization. Chunks are processed strictly sequentially.
type Orchestrator struct {
	cfg  config.Config
	opts Options

	backend     media.Backend
	transcriber gemini.Transcriber
	store       *cache.Store
	parser      transcript.Parser
	validator   *transcript.Validator
	writer      subtitle.Writer

	sourceBase string
}

// New wires an Orchestrator from its collaborators. The backend must be
// bound to opts.MediaPath.
func New(cfg config.Config, opts Options, backend media.Backend, transcriber gemini.Transcriber, store *cache.Store, writer subtitle.Writer) *Orchestrator {
	if opts.OutputPath == "" {
		opts.OutputPath = file.SiblingWithSuffix(opts.MediaPath, ".ja.srt")
	}
	return &Orchestrator{
		cfg:         cfg,
		opts:        opts,
		backend:     backend,
		transcriber: transcriber,
		store:       store,
		parser:      transcript.NewLenientParser(),
		validator:   transcript.NewValidator(cfg.Validation),
		writer:      writer,
		sourceBase:  file.StripExt(filepath.Base(opts.MediaPath)),
	}
}

// Run executes the pipeline. A non-nil Report is returned alongside any
// error so callers can see per-chunk outcomes of a partial run. Output
// accepted before an abort is always written.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{Source: o.opts.MediaPath, Output: o.opts.OutputPath}

	streams, err := o.backend.ProbeStreams(ctx)
	if err != nil {
		return report, &ExtractionError{Err: err}
	}

	subTrack, ok := media.BestSubtitleTrack(streams)
	if !ok {
		return report, fmt.Errorf("no subtitle track found in %s", o.opts.MediaPath)
	}
	audioTrack, ok := media.BestAudioTrack(streams)
	if !ok {
		return report, fmt.Errorf("no audio track found in %s", o.opts.MediaPath)
	}
	log.Info("Selected subtitle stream %d (%s %q) and audio stream %d (%s %q)",
		subTrack.Index, subTrack.Lang, subTrack.Title,
		audioTrack.Index, audioTrack.Lang, audioTrack.Title)

	tempDir, err := os.MkdirTemp("", "jimakugen-*")
	if err != nil {
		return report, fmt.Errorf("create temp directory: %w", err)
	}
	defer func() {
		if o.cfg.Pipeline.KeepTemp {
			log.Info("Keeping temp directory %s", tempDir)
			return
		}
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			log.Warn("Failed to remove temp directory %s: %v", tempDir, rmErr)
		}
	}()

	cues, err := o.referenceCues(ctx, subTrack.Index, tempDir)
	if err != nil {
		return report, err
	}
	if len(cues) == 0 {
		return report, fmt.Errorf("no usable dialogue in subtitle track of %s", o.opts.MediaPath)
	}

	clusters := cluster.Group(cues, cluster.Options{
		TargetDurationS: o.cfg.Chunking.TargetDurationS,
		MaxGapS:         o.cfg.Chunking.MaxGapS,
	})
	if limit := o.cfg.Pipeline.Limit; limit > 0 && limit < len(clusters) {
		log.Info("Limiting run to the first %d of %d chunks", limit, len(clusters))
		clusters = clusters[:limit]
	}

	report.Chunks = make([]ChunkResult, len(clusters))
	for i, cl := range clusters {
		report.Chunks[i] = ChunkResult{
			Index:   i,
			StartMS: cl.StartMS(),
			EndMS:   cl.EndMS(),
			State:   StatePending,
		}
	}

	track := &subtitle.Track{}
	var runErr error

	for i, cl := range clusters {
		result, events := o.processChunk(ctx, i, cl, audioTrack.Index, tempDir)
		report.Chunks[i] = result
		track.Append(events...)

		if result.State == StateAborted {
			if gemini.IsRateLimit(result.Err) {
				log.Error("Rate limited on chunk %d, stopping run: %v", i, result.Err)
			} else {
				log.Error("Chunk %d failed, aborting run: %v", i, result.Err)
			}
			runErr = &AbortError{ChunkIndex: i, Err: result.Err}
			break
		}
		if result.State == StateFailed {
			log.Warn("Skipping chunk %d [%s - %s]: %v", i,
				transcript.FormatClockTime(result.StartMS),
				transcript.FormatClockTime(result.EndMS), result.Err)
		}
	}

	if track.Len() > 0 {
		if err := o.writer.Write(o.opts.OutputPath, track); err != nil {
			return report, fmt.Errorf("write output track: %w", err)
		}
		log.Info("Wrote %d lines to %s (%d/%d chunks accepted, %d from cache)",
			track.Len(), o.opts.OutputPath, report.Accepted(), len(report.Chunks), report.CacheHits())
	} else if runErr == nil {
		runErr = fmt.Errorf("no chunks produced output for %s", o.opts.MediaPath)
	}

	return report, runErr
}

// referenceCues extracts the chosen subtitle track into tempDir and
// filters it down to timed English dialogue.
func (o *Orchestrator) referenceCues(ctx context.Context, streamIndex int, tempDir string) ([]subtitle.Cue, error) {
	assPath := filepath.Join(tempDir, o.sourceBase+".ass")
	if err := o.backend.ExtractSubtitleTrack(ctx, streamIndex, assPath); err != nil {
		return nil, &ExtractionError{Err: err}
	}

	cues, err := subtitle.ReadDialogue(assPath)
	if err != nil {
		return nil, fmt.Errorf("read reference dialogue: %w", err)
	}

	if tag := subtitle.DetectLanguage(cues); tag != language.English && tag != language.Und {
		log.Warn("Reference track of %s looks like %s, not English; results may suffer", o.sourceBase, tag)
	}
	return cues, nil
}

// processChunk drives one chunk through its state machine and returns the
// outcome plus any accepted events in absolute video time.
func (o *Orchestrator) processChunk(ctx context.Context, index int, cl cluster.Cluster, audioIndex int, tempDir string) (ChunkResult, []subtitle.Event) {
	result := ChunkResult{Index: index, StartMS: cl.StartMS(), EndMS: cl.EndMS()}

	startMS := cl.StartMS() - o.cfg.Chunking.PaddingMS
	if startMS < 0 {
		startMS = 0
	}
	endMS := cl.EndMS() + o.cfg.Chunking.PaddingMS
	key := cache.Key{SourceBase: o.sourceBase, StartMS: startMS, EndMS: endMS}

	if events, ok := o.tryCache(key, startMS); ok {
		log.Debug("Chunk %d served from cache (%s)", index, key)
		result.State = StateCacheHit
		result.Lines = len(events)
		return result, events
	}

	result.State = StateExtracting
	// The clip depends only on the padded range, so it is cut once and
	// reused across retry attempts.
	clipPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%03d.m4a", index))
	if err := o.backend.ExtractAudioRange(ctx, audioIndex, startMS, endMS, clipPath); err != nil {
		result.Err = &ExtractionError{Err: err}
		result.State = o.failureState()
		return result, nil
	}

	prompt := gemini.Prompt{
		SeriesContext:  o.opts.SeriesContext,
		EnglishContext: gemini.BuildEnglishContext(cl, startMS),
	}

	var lastErr error
	var callFailed bool
	for attempt := 1; attempt <= o.cfg.Pipeline.MaxRetries; attempt++ {
		result.Attempts = attempt
		if attempt > 1 {
			log.Info("Retrying chunk %d (attempt %d/%d): %v", index, attempt, o.cfg.Pipeline.MaxRetries, lastErr)
		}

		result.State = StateTranscribing
		raw, err := o.transcriber.TranscribeChunk(ctx, clipPath, prompt)
		if err != nil {
			if gemini.IsRateLimit(err) || ctx.Err() != nil {
				result.Err = err
				result.State = StateAborted
				return result, nil
			}
			lastErr = err
			callFailed = true
			continue
		}

		result.State = StateParsing
		events := o.parser.Parse(raw, startMS)
		if len(events) == 0 {
			lastErr = fmt.Errorf("no parsable lines in response")
			callFailed = false
			continue
		}

		result.State = StateValidating
		if err := o.validator.Validate(events); err != nil {
			lastErr = fmt.Errorf("validation: %w", err)
			callFailed = false
			continue
		}

		if err := o.store.Put(key, raw); err != nil {
			log.Warn("Failed to cache chunk %d: %v", index, err)
		}
		result.State = StateAccepted
		result.Lines = len(events)
		return result, events
	}

	result.Err = &TranscriptionError{Attempts: o.cfg.Pipeline.MaxRetries, Err: lastErr}
	if callFailed {
		result.State = o.failureState()
	} else {
		// The model answered but produced nothing usable for this clip.
		// That condemns only this chunk, so the run continues regardless
		// of the error policy.
		result.State = StateFailed
	}
	return result, nil
}

// tryCache parses and validates a cached raw response. A stale entry that
// no longer passes validation is invalidated so the chunk is re-transcribed.
func (o *Orchestrator) tryCache(key cache.Key, offsetMS int64) ([]subtitle.Event, bool) {
	raw, hit, err := o.store.Get(key)
	if err != nil {
		log.Warn("Cache read for %s failed: %v", key, err)
		return nil, false
	}
	if !hit {
		return nil, false
	}

	events := o.parser.Parse(raw, offsetMS)
	if len(events) == 0 {
		log.Warn("Cached entry %s has no parsable lines, invalidating", key)
		o.invalidate(key)
		return nil, false
	}
	if err := o.validator.Validate(events); err != nil {
		log.Warn("Cached entry %s failed validation (%v), invalidating", key, err)
		o.invalidate(key)
		return nil, false
	}
	return events, true
}

func (o *Orchestrator) invalidate(key cache.Key) {
	if err := o.store.Invalidate(key); err != nil {
		log.Warn("Failed to invalidate cache entry %s: %v", key, err)
	}
}

// failureState maps a chunk whose extraction or transcription call failed
// to skip-and-continue or abort-the-run according to the configured policy.
func (o *Orchestrator) failureState() ChunkState {
	if o.cfg.Pipeline.OnChunkError == config.ChunkErrorSkip {
		return StateFailed
	}
	return StateAborted
}
