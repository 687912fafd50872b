// Package feature computes independent spam signals for one message. Each
// signal is reported separately so the decision layer can tell moderators
// exactly why a verdict fired.
package feature

import (
	"strings"
	"unicode"

	"github.com/chatward/chatward/normalize"
)

// EmoteSet is the externally-supplied emote vocabulary.
type EmoteSet interface {
	Contains(token string) bool
}

// MapEmoteSet is a vocabulary backed by a plain map, for tests and static
// config.
type MapEmoteSet map[string]bool

func (m MapEmoteSet) Contains(token string) bool { return m[token] }

// FeatureSet carries every scored signal for one message. Ratios are
// percentages in [0, 100].
type FeatureSet struct {
	Length      int
	CapsRatio   float64
	CapsExempt  bool
	SymbolRatio float64
	EmoteCount  int

	HasLink        bool
	Domains        []string
	ObfuscatedLink bool

	// Longest identical-rune run relative to message length.
	RepetitionRatio float64
	// Highest repeat count of any single token.
	MaxTokenRepeat int

	// Combining characters riding on the text (zalgo).
	ZalgoCount int

	// Lookalike substitutions the normalizer had to apply.
	Substitutions int

	// Named high-confidence spam phrases matched against the raw or
	// normalized text.
	PatternHits []string
}

// Score computes the full feature set. Pure: no I/O, no hidden state.
// capsMinLength exempts short excited messages from the caps ratio.
func Score(raw string, norm normalize.Result, capsMinLength int, emotes EmoteSet) FeatureSet {
	runes := []rune(raw)
	fs := FeatureSet{
		Length:        len(runes),
		Substitutions: norm.Substitutions,
	}

	fs.CapsRatio, fs.CapsExempt = capsRatio(runes, capsMinLength)
	fs.SymbolRatio = symbolRatio(runes)
	fs.EmoteCount = countEmotes(raw, emotes)
	fs.Domains = ExtractDomains(raw)
	fs.HasLink = len(fs.Domains) > 0
	fs.ObfuscatedLink = obfuscatedURLPattern.MatchString(raw)
	fs.RepetitionRatio = repetitionRatio(runes)
	fs.MaxTokenRepeat = maxTokenRepeat(raw)
	fs.ZalgoCount = zalgoCount(runes)
	fs.PatternHits = matchSpamPatterns(raw, norm.Text)

	return fs
}

func capsRatio(runes []rune, minLength int) (float64, bool) {
	if len(runes) < minLength {
		return 0, true
	}
	letters, upper := 0, 0
	for _, r := range runes {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters == 0 {
		return 0, false
	}
	return float64(upper) / float64(letters) * 100, false
}

func symbolRatio(runes []rune) float64 {
	if len(runes) < 5 {
		return 0
	}
	total, symbols := 0, 0
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total) * 100
}

func countEmotes(raw string, emotes EmoteSet) int {
	if emotes == nil {
		return 0
	}
	count := 0
	for _, tok := range strings.Fields(raw) {
		if emotes.Contains(tok) {
			count++
		}
	}
	return count
}

func repetitionRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > longest {
				longest = run
			}
		} else {
			run = 1
		}
	}
	return float64(longest) / float64(len(runes)) * 100
}

func maxTokenRepeat(raw string) int {
	words := strings.Fields(strings.ToLower(raw))
	if len(words) < 3 {
		return 0
	}
	counts := make(map[string]int, len(words))
	max := 0
	for _, w := range words {
		if len(w) <= 2 {
			continue
		}
		counts[w]++
		if counts[w] > max {
			max = counts[w]
		}
	}
	return max
}

func zalgoCount(runes []rune) int {
	count := 0
	for _, r := range runes {
		if unicode.Is(unicode.Mn, r) {
			count++
		}
	}
	return count
}
