package seriesctx

import (
	"context"
	"fmt"
	"strings"

	"jimakugen/pkg/log"
)

// SummaryProvider looks up encyclopedic background for a series title.
type SummaryProvider interface {
	Summary(ctx context.Context, title string) (PageSummary, error)
}

// TextGenerator produces a text completion for a prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// Generator builds a reusable series context block: character names in
// their canonical Japanese spellings, recurring terminology and a short
// synopsis. The block is passed to every transcription prompt of that
// series so names come out consistently.
type Generator struct {
	wiki SummaryProvider
	gen  TextGenerator
}

func NewGenerator(wiki SummaryProvider, gen TextGenerator) *Generator {
	return &Generator{wiki: wiki, gen: gen}
}

// Generate returns the context block for series. Background lookup is
// best effort; the model can usually produce usable context from the
// title alone.
func (g *Generator) Generate(ctx context.Context, series string) (string, error) {
	if strings.TrimSpace(series) == "" {
		return "", fmt.Errorf("series title is required")
	}

	var background string
	if g.wiki != nil {
		summary, err := g.wiki.Summary(ctx, series)
		if err != nil {
			log.Warn("No encyclopedia background for %q: %v", series, err)
		} else {
			background = summary.Extract
		}
	}

	text, err := g.gen.GenerateText(ctx, buildPrompt(series, background))
	if err != nil {
		return "", fmt.Errorf("generate series context: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func buildPrompt(series, background string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Produce a concise reference document for the series %q, ", series)
	b.WriteString("to be used while transcribing its Japanese audio. Include:\n")
	b.WriteString("- Main character names with their correct Japanese spellings\n")
	b.WriteString("- Recurring in-universe terminology and place names\n")
	b.WriteString("- A one-paragraph synopsis\n")
	b.WriteString("Answer in plain text without markdown.")
	if background != "" {
		b.WriteString("\n\nEncyclopedia background:\n")
		b.WriteString(background)
	}
	return b.String()
}
