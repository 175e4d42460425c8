package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"jimakugen/pkg/log"
)

// Style names carrying any of these tokens are typesetting, not dialogue.
var styleBlacklist = []string{"op", "ed", "song", "sign", "title", "credit", "note"}

// Override tags that mark positioned/animated typesetting lines.
var typesettingTags = []string{`\pos`, `\move`, `\fad`, `\fade`}

var (
	drawingRe  = regexp.MustCompile(`\\p[1-9]`)
	overrideRe = regexp.MustCompile(`\{.*?\}`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// ReadDialogue parses the ASS file at path and returns the dialogue cues
// that survive filtering, in file order.
func ReadDialogue(path string) ([]Cue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subtitle file: %w", err)
	}
	defer f.Close()
	return ParseDialogue(f)
}

// ParseDialogue reads ASS-format subtitle text and extracts dialogue cues.
// Non-dialogue cues (typesetting, songs and signs, drawings, non-English
// text) are dropped; a cue with a malformed timestamp is dropped on its
// own without failing the rest of the input.
func ParseDialogue(r io.Reader) ([]Cue, error) {
	var (
		cues       []Cue
		inEvents   bool
		formatCols []string
	)

	stats := struct{ total, style, typeset, empty, nonEnglish, badTime, kept int }{}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "[") {
			inEvents = strings.EqualFold(line, "[Events]")
			continue
		}
		if !inEvents {
			continue
		}

		if strings.HasPrefix(line, "Format:") {
			formatCols = splitFormat(line)
			continue
		}
		if !strings.HasPrefix(line, "Dialogue:") || len(formatCols) == 0 {
			continue
		}

		stats.total++

		// The Text field may itself contain commas, so the split is
		// bounded to the declared column count.
		parts := strings.SplitN(strings.TrimSpace(line[len("Dialogue:"):]), ",", len(formatCols))
		fields := make(map[string]string, len(formatCols))
		for i, col := range formatCols {
			if i < len(parts) {
				fields[col] = parts[i]
			}
		}

		style := strings.ToLower(fields["Style"])
		rawText := fields["Text"]

		if matchesBlacklist(style) {
			stats.style++
			continue
		}
		if containsTypesetting(rawText) {
			stats.typeset++
			continue
		}

		cleaned := CleanASSText(rawText)
		if cleaned == "" {
			stats.empty++
			continue
		}
		if !isMostlyEnglish(cleaned) {
			stats.nonEnglish++
			continue
		}

		startMS, err := ParseASSTime(fields["Start"])
		if err != nil {
			log.Debug("Dropping cue with bad start time %q: %v", fields["Start"], err)
			stats.badTime++
			continue
		}
		endMS, err := ParseASSTime(fields["End"])
		if err != nil {
			log.Debug("Dropping cue with bad end time %q: %v", fields["End"], err)
			stats.badTime++
			continue
		}

		cues = append(cues, Cue{StartMS: startMS, EndMS: endMS, Text: cleaned})
		stats.kept++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read subtitle stream: %w", err)
	}

	log.Debug("ASS filter: total=%d style=%d typeset=%d empty=%d non_english=%d bad_time=%d kept=%d",
		stats.total, stats.style, stats.typeset, stats.empty, stats.nonEnglish, stats.badTime, stats.kept)

	return cues, nil
}

func splitFormat(line string) []string {
	raw := strings.Split(strings.TrimSpace(line[len("Format:"):]), ",")
	cols := make([]string, 0, len(raw))
	for _, c := range raw {
		cols = append(cols, strings.TrimSpace(c))
	}
	return cols
}

func matchesBlacklist(style string) bool {
	for _, token := range styleBlacklist {
		if strings.Contains(style, token) {
			return true
		}
	}
	return false
}

func containsTypesetting(text string) bool {
	for _, tag := range typesettingTags {
		if strings.Contains(text, tag) {
			return true
		}
	}
	return false
}

// CleanASSText strips drawing commands and inline override tags, turns
// escaped line breaks into spaces and collapses whitespace runs.
// Drawing lines reduce to the empty string.
func CleanASSText(text string) string {
	if drawingRe.MatchString(text) {
		return ""
	}
	text = overrideRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\N`, " ")
	text = strings.ReplaceAll(text, `\n`, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// isMostlyEnglish keeps only letters and requires more than 80% of them
// to be ASCII. Digits, punctuation and symbols carry no signal either way.
func isMostlyEnglish(text string) bool {
	var letters, ascii int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r < 128 {
			ascii++
		}
	}
	if letters == 0 {
		return false
	}
	return float64(ascii)/float64(letters) > 0.8
}

// ParseASSTime converts an ASS H:MM:SS.cc timecode (centisecond precision)
// to milliseconds.
func ParseASSTime(ts string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(ts), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid ASS timestamp %q", ts)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", ts)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in %q", ts)
	}
	secParts := strings.SplitN(parts[2], ".", 2)
	if len(secParts) != 2 {
		return 0, fmt.Errorf("missing centiseconds in %q", ts)
	}
	s, err := strconv.Atoi(secParts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q", ts)
	}
	cc, err := strconv.Atoi(secParts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid centiseconds in %q", ts)
	}
	return int64(h*3600+m*60+s)*1000 + int64(cc)*10, nil
}
