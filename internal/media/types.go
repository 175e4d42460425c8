package media

import (
	"context"

	"golang.org/x/text/language"
)

// Stream describes one stream in a media container as reported by ffprobe.
type Stream struct {
	Index     int    `json:"index"`
	CodecType string `json:"codec_type"`
	Tags      struct {
		Language       string `json:"language"`
		Title          string `json:"title"`
		NumberOfFrames string `json:"NUMBER_OF_FRAMES"`
	} `json:"tags"`
}

// TrackChoice is a scored candidate stream from track selection.
type TrackChoice struct {
	Index   int
	Score   float64
	Lang    string
	LangTag language.Tag
	Title   string
	Frames  int
}

// Backend is the media collaborator the pipeline drives: probing streams,
// pulling the subtitle track and cutting audio sub-ranges. Invocation
// mechanics (process arguments, codecs) stay behind this interface.
type Backend interface {
	ProbeStreams(ctx context.Context) ([]Stream, error)
	ExtractSubtitleTrack(ctx context.Context, streamIndex int, outPath string) error
	ExtractAudioRange(ctx context.Context, streamIndex int, startMS, endMS int64, outPath string) error
}
