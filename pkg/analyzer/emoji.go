package analyzer

import (
	"unicode/utf8"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"
)

// Emojis returns every emoji glyph in text, in order, repeats included.
// Text is split into grapheme clusters first so that ZWJ sequences, skin
// tone modifiers, flags and keycaps each count as a single glyph.
func Emojis(text string) []string {
	if isASCII(text) {
		return nil
	}

	var found []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cluster := g.Str()
		if IsEmoji(cluster) {
			found = append(found, cluster)
		}
	}
	return found
}

// IsEmoji reports whether a grapheme cluster is an emoji rendered with
// emoji presentation. Text-presentation symbols such as U+00A9 or a bare
// U+2764 are in the emoji set but render one column wide, so they are
// rejected unless a variation selector makes them wide.
func IsEmoji(cluster string) bool {
	if isASCII(cluster) || uniseg.StringWidth(cluster) != 2 {
		return false
	}
	_, err := gomoji.GetInfo(cluster)
	return err == nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
