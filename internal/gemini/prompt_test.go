package gemini

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"jimakugen/internal/cluster"
	"jimakugen/internal/subtitle"
)

func TestBuildEnglishContextChunkRelative(t *testing.T) {
	c := cluster.Cluster{Cues: []subtitle.Cue{
		{StartMS: 61250, EndMS: 63100, Text: "Hello there."},
		{StartMS: 64000, EndMS: 65500, Text: "General greeting."},
	}}

	got := BuildEnglishContext(c, 60000)

	want := "[00:01,250 - 00:03,100] Hello there.\n" +
		"[00:04,000 - 00:05,500] General greeting."
	assert.Equal(t, want, got)
}

func TestBuildEnglishContextEmptyCluster(t *testing.T) {
	assert.Equal(t, "", BuildEnglishContext(cluster.Cluster{}, 0))
}

func TestPromptRenderWithSeriesContext(t *testing.T) {
	p := Prompt{
		SeriesContext:  "The protagonist is named Tanaka.",
		EnglishContext: "[00:00,000 - 00:02,000] Good morning.",
	}

	got := p.Render()

	assert.True(t, strings.HasPrefix(got, "Series Information:\nThe protagonist is named Tanaka."))
	assert.Contains(t, got, "[MM:SS,mmm - MM:SS,mmm]")
	assert.True(t, strings.HasSuffix(got, "English Context Reference:\n[00:00,000 - 00:02,000] Good morning."))
}

func TestPromptRenderWithoutSeriesContext(t *testing.T) {
	p := Prompt{EnglishContext: "[00:00,000 - 00:02,000] Good morning."}

	got := p.Render()

	assert.NotContains(t, got, "Series Information:")
	assert.Contains(t, got, "English Context Reference:")
}
