package gemini

import (
	"strings"

	"jimakugen/internal/cluster"
	"jimakugen/internal/transcript"
)

const systemInstruction = "You are an expert Japanese media transcriber."

// formatInstruction pins the response shape; the parser is lenient but a
// consistent prompt keeps deviation rare.
const formatInstruction = "Transcribe the Japanese dialogue accurately. " +
	"You MUST use the following timestamp format for EVERY line: [MM:SS,mmm - MM:SS,mmm] Dialogue. " +
	"Do not use any other format. Example: [00:01,250 - 00:03,100] こんにちは"

// Prompt carries everything sent alongside one audio clip.
type Prompt struct {
	// SeriesContext is optional background (characters, terminology)
	// helping the model spell names correctly.
	SeriesContext string
	// EnglishContext is the chunk's reference dialogue rendered in
	// chunk-relative time.
	EnglishContext string
}

// BuildEnglishContext renders each cue of the cluster as
// "[MM:SS,mmm - MM:SS,mmm] text" relative to the chunk start, one per
// line, giving the model timing anchors inside the clip.
func BuildEnglishContext(c cluster.Cluster, chunkStartMS int64) string {
	lines := make([]string, 0, len(c.Cues))
	for _, cue := range c.Cues {
		lines = append(lines,
			"["+transcript.FormatClockTime(cue.StartMS-chunkStartMS)+
				" - "+transcript.FormatClockTime(cue.EndMS-chunkStartMS)+
				"] "+cue.Text)
	}
	return strings.Join(lines, "\n")
}

// Render assembles the full prompt text.
func (p Prompt) Render() string {
	var parts []string
	if p.SeriesContext != "" {
		parts = append(parts, "Series Information:\n"+p.SeriesContext)
	}
	parts = append(parts, formatInstruction)
	parts = append(parts, "English Context Reference:\n"+p.EnglishContext)
	return strings.Join(parts, "\n\n")
}
