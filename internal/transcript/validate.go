package transcript

import (
	"fmt"
	"unicode/utf8"

	"jimakugen/internal/config"
	"jimakugen/internal/subtitle"
)

// Validator applies characters-per-second and duration plausibility
// heuristics to the events parsed from one chunk. A chunk is rejected
// as a whole: one bad line means the model mis-timed the response and
// nothing in it can be trusted.
type Validator struct {
	cfg config.ValidationConfig
}

func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate returns nil when every event passes, or an error describing
// the first failing event. Character counts are rune counts so Japanese
// text is measured per character, not per byte.
func (v *Validator) Validate(events []subtitle.Event) error {
	for _, ev := range events {
		durationS := float64(ev.EndMS-ev.StartMS) / 1000.0
		if durationS <= 0 {
			return fmt.Errorf("zero or negative duration for %q", ev.Text)
		}
		if durationS > v.cfg.MaxDurationS {
			return fmt.Errorf("duration %.2fs exceeds limit %.1fs for %q", durationS, v.cfg.MaxDurationS, ev.Text)
		}

		cps := float64(utf8.RuneCountInString(ev.Text)) / durationS
		if cps > v.cfg.MaxCPS {
			return fmt.Errorf("implausibly high CPS %.2f for %q (%.3fs)", cps, ev.Text, durationS)
		}
		if cps < v.cfg.MinCPS {
			return fmt.Errorf("implausibly low CPS %.2f for %q (%.3fs)", cps, ev.Text, durationS)
		}
	}
	return nil
}
