package pipeline

import (
	"errors"
	"fmt"
)

// ExtractionError marks an ffmpeg failure while cutting a chunk's audio
// or pulling the subtitle track. Extraction failures are environmental
// (missing binary, corrupt container) and are not retried.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("media extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// TranscriptionError marks a chunk whose retry budget ran out without an
// accepted transcription. Err holds the last attempt's failure.
type TranscriptionError struct {
	Attempts int
	Err      error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// AbortError wraps the chunk failure that stopped a run under the abort
// policy. Output written before the abort is kept.
type AbortError struct {
	ChunkIndex int
	Err        error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted at chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// IsExtraction reports whether err stems from a media extraction failure.
func IsExtraction(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
