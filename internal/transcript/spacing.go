package transcript

import "regexp"

// Japanese character ranges:
// Hiragana: ぀-ゟ
// Katakana: ゠-ヿ
// Kanji: 一-鿿
// CJK symbols and punctuation: 　-〿
// Full-width alphanumeric: ＀-￯
const cjkRange = `[\x{3040}-\x{309f}\x{30a0}-\x{30ff}\x{4e00}-\x{9fff}\x{3000}-\x{303f}\x{ff00}-\x{ffef}]`

var (
	cjkSpaceRe      = regexp.MustCompile(`(` + cjkRange + `)\s+(` + cjkRange + `)`)
	cjkPunctAfterRe = regexp.MustCompile(`(` + cjkRange + `)\s+([!?.,:;])`)
	cjkPunctBeforRe = regexp.MustCompile(`([!?.,:;])\s+(` + cjkRange + `)`)
)

// RemoveCJKSpaces strips the whitespace transcription models like to
// insert between adjacent Japanese characters, and between Japanese
// characters and nearby punctuation. The target script is not naturally
// space-separated, so these spaces are always artifacts.
func RemoveCJKSpaces(text string) string {
	if text == "" {
		return text
	}

	// Replacements can overlap (a space flanked by two CJK characters
	// consumes both), so run to fixpoint.
	for {
		next := cjkSpaceRe.ReplaceAllString(text, "$1$2")
		next = cjkPunctAfterRe.ReplaceAllString(next, "$1$2")
		next = cjkPunctBeforRe.ReplaceAllString(next, "$1$2")
		if next == text {
			return next
		}
		text = next
	}
}
