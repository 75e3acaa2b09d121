package processing_test

import (
	"testing"

	"github.com/DeafMist/biaslens/internal/processing"
	"github.com/stretchr/testify/require"
)

func TestCollapseWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "only spaces", input: " \t\n ", want: ""},
		{name: "collapse", input: "foo\n\nbar\t baz", want: "foo bar baz"},
		{name: "trim", input: "  Title.  Body.  ", want: "Title. Body."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, processing.CollapseWhitespace(tt.input))
		})
	}
}

func TestIsBlank(t *testing.T) {
	require.True(t, processing.IsBlank(""))
	require.True(t, processing.IsBlank(" \t\n"))
	require.False(t, processing.IsBlank(" x "))
}

func TestWordCount(t *testing.T) {
	require.Equal(t, 0, processing.WordCount(""))
	require.Equal(t, 0, processing.WordCount("   "))
	require.Equal(t, 3, processing.WordCount(" one\ttwo\nthree "))
}

func TestTruncateRunes(t *testing.T) {
	require.Equal(t, "", processing.TruncateRunes("abc", 0))
	require.Equal(t, "abc", processing.TruncateRunes("abc", 5))
	require.Equal(t, "ab", processing.TruncateRunes("abc", 2))
	require.Equal(t, "мир", processing.TruncateRunes("мир дружба", 3))
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "", want: ""},
		{input: "left", want: "Left"},
		{input: "neutral", want: "Neutral"},
		{input: "mIxed", want: "MIxed"},
		{input: "éclair", want: "Éclair"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, processing.Capitalize(tt.input))
	}
}
