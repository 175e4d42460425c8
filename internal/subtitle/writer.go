package subtitle

import (
	"bufio"
	"fmt"
	"os"
)

// SRTWriter serializes a Track in the numbered-block SubRip format.
type SRTWriter struct{}

// NewSRTWriter creates a new subtitle track writer.
func NewSRTWriter() Writer {
	return &SRTWriter{}
}

// Write serializes the track to path. Events are written 1-indexed in
// track order; no re-sorting is performed.
func (w *SRTWriter) Write(path string, track *Track) error {
	if track == nil {
		return fmt.Errorf("subtitle track is empty")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	defer writer.Flush()

	for i, event := range track.Events {
		fmt.Fprintf(writer, "%d\n", i+1)
		fmt.Fprintf(writer, "%s --> %s\n", FormatSRTTime(event.StartMS), FormatSRTTime(event.EndMS))
		fmt.Fprintf(writer, "%s\n\n", event.Text)
	}

	return nil
}

// FormatSRTTime renders milliseconds as HH:MM:SS,mmm.
func FormatSRTTime(ms int64) string {
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	millis := ms % 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}
