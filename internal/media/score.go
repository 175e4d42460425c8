package media

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// BestSubtitleTrack scores the container's subtitle streams and returns
// the most promising English dialogue track. English and full-dialogue
// titles score up, signs-and-songs tracks score down, and a frame-count
// bonus prefers the densest track when titles are uninformative.
func BestSubtitleTrack(streams []Stream) (TrackChoice, bool) {
	var candidates []TrackChoice

	for _, stream := range streams {
		if stream.CodecType != "subtitle" {
			continue
		}

		lang := strings.ToLower(stream.Tags.Language)
		title := strings.ToLower(stream.Tags.Title)

		frames := 0
		if stream.Tags.NumberOfFrames != "" {
			if n, err := strconv.Atoi(stream.Tags.NumberOfFrames); err == nil {
				frames = n
			}
		}

		score := 0.0
		switch lang {
		case "eng", "en":
			score += 10
		case "jpn", "ja":
			score += 5
		}
		if strings.Contains(title, "dialogue") || strings.Contains(title, "full") {
			score += 5
		}
		if strings.Contains(title, "sign") || strings.Contains(title, "song") {
			score -= 10
		}
		score += float64(frames) / 20

		candidates = append(candidates, TrackChoice{
			Index:   stream.Index,
			Score:   score,
			Lang:    lang,
			LangTag: makeLangTag(lang),
			Title:   title,
			Frames:  frames,
		})
	}

	if len(candidates) == 0 {
		return TrackChoice{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return candidates[0], true
}

// BestAudioTrack prefers the Japanese-tagged audio stream, the one the
// transcription actually listens to. Earlier streams win score ties.
func BestAudioTrack(streams []Stream) (TrackChoice, bool) {
	var candidates []TrackChoice

	for _, stream := range streams {
		if stream.CodecType != "audio" {
			continue
		}

		lang := strings.ToLower(stream.Tags.Language)
		title := strings.ToLower(stream.Tags.Title)

		score := 0.0
		if lang == "jpn" || lang == "ja" {
			score += 10
		} else if strings.Contains(title, "japanese") {
			score += 5
		}

		candidates = append(candidates, TrackChoice{
			Index:   stream.Index,
			Score:   score,
			Lang:    lang,
			LangTag: makeLangTag(lang),
			Title:   title,
		})
	}

	if len(candidates) == 0 {
		return TrackChoice{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Index < candidates[j].Index
	})
	return candidates[0], true
}

func makeLangTag(lang string) language.Tag {
	if lang == "" {
		return language.Und
	}
	return language.All.Make(lang)
}
