package corpus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegex_Match(t *testing.T) {
	tests := []struct {
		pattern string
		flags   RegexFlags
		input   string
		want    bool
	}{
		{"c.t", 0, "cat", true},
		{"c.t", 0, "cats", false},
		{"c.t", 0, "scat", false},
		{"cat|dog", 0, "dog", true},
		{"cat", 0, "CAT", false},
		{"cat", IgnoreCase, "CAT", true},
		{"Straße", IgnoreCase, "STRASSE", false},
		{"[a-z]+", IgnoreCase, "ABC", true},
		{"cafe", 0, "café", false},
		{"cafe", IgnoreDiacritics, "café", true},
		{"café", IgnoreDiacritics, "cafe", true},
		{"CAFE", IgnoreCase | IgnoreDiacritics, "café", true},
		{".*", 0, "", true},
		{"a+", 0, "", false},
	}
	for _, tt := range tests {
		re, err := CompileRegex(tt.pattern, tt.flags)
		require.NoError(t, err, tt.pattern)
		assert.Equal(t, tt.want, re.MatchString(tt.input), "%q%%%s on %q", tt.pattern, tt.flags, tt.input)
	}
}

func TestRegex_MatchesAll(t *testing.T) {
	assert.True(t, MustCompileRegex(".*", 0).MatchesAll())
	assert.False(t, MustCompileRegex(".+", 0).MatchesAll())
}

func TestRegex_CompileError(t *testing.T) {
	_, err := CompileRegex("(", 0)
	assert.Error(t, err)
}

func TestParseRegexFlags(t *testing.T) {
	f, err := ParseRegexFlags("%cd")
	require.NoError(t, err)
	assert.Equal(t, IgnoreCase|IgnoreDiacritics, f)
	assert.Equal(t, "cd", f.String())

	_, err = ParseRegexFlags("x")
	assert.Error(t, err)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "naive", Fold("Naïve", IgnoreCase|IgnoreDiacritics))
	assert.Equal(t, "Naive", Fold("Naïve", IgnoreDiacritics))
	assert.Equal(t, "naïve", Fold("Naïve", IgnoreCase))
	assert.Equal(t, "Naïve", Fold("Naïve", 0))
}
