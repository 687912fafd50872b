package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBasics(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"hello world", "hello world"},
		{"HELLO World", "hello world"},
		{"FR33 F0LL0WERS", "free followers"},
		{"fr33   f0ll0w3rs", "free followers"},
		{"ch3ck   my   b10", "check my bio"},
		{"café", "cafe"},
		{"frée föllowers", "free followers"},
		{"  spaced   out  ", "spaced out"},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.want, Text(fix.raw), "raw: %q", fix.raw)
	}
}

func TestNormalizeInvisibles(t *testing.T) {
	assert := assert.New(t)

	res := Normalize("fr​ee fol‍lowers")
	assert.Equal("free followers", res.Text)
	assert.Equal(2, res.Substitutions)
}

func TestNormalizeHomoglyphs(t *testing.T) {
	assert := assert.New(t)

	// Cyrillic о and е in "free"
	assert.Equal("free followers", Text("frее fоllоwers"))
}

func TestNormalizeZalgoStrip(t *testing.T) {
	assert := assert.New(t)

	// combining marks are dropped entirely
	assert.Equal("hello", Text("h́êl̃l̄o̅"))
}

func TestNormalizeIdempotent(t *testing.T) {
	assert := assert.New(t)

	inputs := []string{
		"",
		"plain text",
		"FR33 F0LL0WERS CLICK NOW!!!",
		"z̀ál͂g̓o text",
		"Сyrilliс міх",
		"  a   b\tc  ",
		"discord.gg/abc123",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(once, Text(once), "input: %q", in)
	}
}

func TestNormalizeCounts(t *testing.T) {
	assert := assert.New(t)

	res := Normalize("FR33")
	assert.Equal("free", res.Text)
	assert.Equal(4, res.StrippedLen)
	assert.Equal(2, res.Substitutions)

	clean := Normalize("free")
	assert.Equal(0, clean.Substitutions)
}
