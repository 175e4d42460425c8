package transcript

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"jimakugen/internal/subtitle"
)

// Parser converts a raw transcription response into subtitle events in
// absolute video time. The default implementation is deliberately lenient
// about the model's formatting; a stricter grammar-based parser can be
// swapped in behind this interface without touching the pipeline.
type Parser interface {
	Parse(raw string, offsetMS int64) []subtitle.Event
}

// timestampRe matches the leading "<time> - <time>" span the service is
// instructed to emit. The time atoms allow mixed ':', '.' and ','
// separators plus an optional trailing "s", since the model frequently
// drifts from the requested format into bare seconds.
var timestampRe = regexp.MustCompile(`(\d+[:\d\.,]*s?)\s*-\s*(\d+[:\d\.,]*s?)`)

// LenientParser extracts "[start - end] text" lines from freeform output.
type LenientParser struct{}

func NewLenientParser() Parser {
	return &LenientParser{}
}

// Parse scans raw line by line. Lines with unparsable times or empty
// remaining content are skipped without aborting the batch; offsetMS is
// added to every timestamp to map chunk-relative times into video time.
func (p *LenientParser) Parse(raw string, offsetMS int64) []subtitle.Event {
	var events []subtitle.Event

	for _, line := range strings.Split(raw, "\n") {
		line = strings.ReplaceAll(strings.TrimSpace(line), "`", "")
		if line == "" {
			continue
		}

		loc := timestampRe.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		startStr := line[loc[2]:loc[3]]
		endStr := line[loc[4]:loc[5]]

		content := strings.TrimLeft(line[loc[1]:], "]: ")
		if content == "" {
			continue
		}

		startMS, err := ParseClockTime(startStr)
		if err != nil {
			continue
		}
		endMS, err := ParseClockTime(endStr)
		if err != nil {
			continue
		}

		content = RemoveCJKSpaces(content)
		if content == "" {
			continue
		}

		events = append(events, subtitle.Event{
			StartMS: startMS + offsetMS,
			EndMS:   endMS + offsetMS,
			Text:    content,
		})
	}

	return events
}

// ParseClockTime converts a loosely formatted time string to milliseconds.
// Commas count as decimal points and a trailing "s" unit is tolerated.
// Three colon-separated parts are H:M:S, two are M:S, a bare number is
// seconds.
func ParseClockTime(ts string) (int64, error) {
	ts = strings.TrimSpace(ts)
	ts = strings.ReplaceAll(ts, ",", ".")
	ts = strings.TrimSuffix(ts, "s")

	parts := strings.Split(ts, ":")
	switch len(parts) {
	case 3:
		h, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid hours in %q", ts)
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil {
			return 0, fmt.Errorf("invalid minutes in %q", ts)
		}
		s, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid seconds in %q", ts)
		}
		return int64((float64(h*3600+m*60) + s) * 1000), nil
	case 2:
		m, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, fmt.Errorf("invalid minutes in %q", ts)
		}
		s, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid seconds in %q", ts)
		}
		return int64((float64(m*60) + s) * 1000), nil
	case 1:
		s, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid seconds value %q", ts)
		}
		return int64(s * 1000), nil
	default:
		return 0, fmt.Errorf("unrecognized time format %q", ts)
	}
}

// FormatClockTime renders milliseconds as MM:SS,mmm, the format the
// transcription prompt mandates for context lines and responses.
func FormatClockTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	m := ms / 60000
	s := (ms % 60000) / 1000
	frac := ms % 1000
	return fmt.Sprintf("%02d:%02d,%03d", m, s, frac)
}
