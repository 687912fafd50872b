// Package normalize canonicalizes chat message text so that downstream
// matching is resistant to visual and character-substitution evasion
// ("fr33 f0ll0w3rs" and friends).
//
// Normalization is deterministic and pure, and idempotent: applying it to
// its own output is a no-op.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Result carries the canonical text plus bookkeeping the scorer and audit
// trail care about.
type Result struct {
	// Canonical form of the input.
	Text string
	// Rune count of Text.
	StrippedLen int
	// Number of lookalike substitutions and invisible-character removals
	// applied. A high count on a short message is itself an evasion signal.
	Substitutions int
}

// Visually-confusable characters mapped to the canonical lower-case letter.
// Digits and symbols cover leetspeak; the Cyrillic and Greek entries cover
// homoglyph swaps.
var lookalikes = map[rune]rune{
	'@': 'a', '4': 'a', 'α': 'a', 'а': 'a',
	'8': 'b', 'ь': 'b', 'в': 'b', 'ß': 'b',
	'(': 'c', 'с': 'c', '¢': 'c', '©': 'c',
	'ԁ': 'd',
	'3': 'e', 'є': 'e', 'е': 'e',
	'ƒ': 'f',
	'9': 'g',
	'һ': 'h',
	'1': 'i', '!': 'i', 'і': 'i', 'ї': 'i', '|': 'i', '¡': 'i',
	'ј': 'j',
	'κ': 'k',
	'м': 'm',
	'п': 'n',
	'0': 'o', 'о': 'o', 'ø': 'o',
	'р': 'p', 'ρ': 'p',
	'ԛ': 'q',
	'г': 'r',
	'$': 's', '5': 's', 'ѕ': 's', '§': 's',
	'7': 't', '+': 't', 'т': 't', '†': 't',
	'υ': 'u',
	'ν': 'v', 'ѵ': 'v',
	'ω': 'w',
	'х': 'x', '×': 'x',
	'у': 'y',
}

// Zero-width and invisible code points used to split words past filters.
var invisibles = map[rune]bool{
	'\u200b': true, // zero width space
	'\u200c': true, // zero width non-joiner
	'\u200d': true, // zero width joiner
	'\u2060': true, // word joiner
	'\ufeff': true, // BOM / zero width no-break space
	'\u00ad': true, // soft hyphen
	'\ufe0f': true, // variation selector
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize canonicalizes raw text: case fold, lookalike substitution,
// accent/combining-mark strip, invisible-character removal, and whitespace
// collapse, in that order. Never fails; empty input yields an empty Result.
func Normalize(text string) Result {
	if text == "" {
		return Result{}
	}

	subs := 0
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if invisibles[r] {
			subs++
			continue
		}
		if canon, ok := lookalikes[r]; ok {
			r = canon
			subs++
		}
		b.WriteRune(r)
	}

	// NFD decompose, drop combining marks (accents and zalgo alike), then
	// recompose. Chain must be built per call: transform.Chain carries state.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, b.String())
	if err != nil {
		folded = b.String()
	}

	out := strings.TrimSpace(whitespaceRun.ReplaceAllString(folded, " "))
	return Result{
		Text:          out,
		StrippedLen:   len([]rune(out)),
		Substitutions: subs,
	}
}

// Text is shorthand for Normalize(text).Text.
func Text(text string) string {
	return Normalize(text).Text
}
