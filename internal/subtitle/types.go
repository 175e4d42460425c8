package subtitle

// Cue is a single timed dialogue entry mined from the reference track.
// Cues are immutable once produced by the ASS filter.
type Cue struct {
	StartMS int64  // start time in milliseconds
	EndMS   int64  // end time in milliseconds
	Text    string // cleaned dialogue text
}

// DurationMS returns the cue length in milliseconds.
func (c Cue) DurationMS() int64 {
	return c.EndMS - c.StartMS
}

// Event is a final output subtitle line in absolute video time.
// Same shape as Cue but produced by the transcript parser.
type Event struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// Track is the ordered final subtitle track, append-only during a run.
type Track struct {
	Events []Event
}

// Append adds events in processing order; no re-sorting is performed.
func (t *Track) Append(events ...Event) {
	t.Events = append(t.Events, events...)
}

func (t *Track) Len() int {
	return len(t.Events)
}

// Writer is the interface for serializing a finished track.
type Writer interface {
	Write(path string, track *Track) error
}
