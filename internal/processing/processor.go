// Package processing has the text helpers shared by the analysis packages.
package processing

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespace = regexp.MustCompile(`\s+`)

// CollapseWhitespace squeezes whitespace runs to a single space and trims the ends.
func CollapseWhitespace(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// IsBlank reports whether input is empty or whitespace only.
func IsBlank(input string) bool {
	return strings.TrimSpace(input) == ""
}

// WordCount returns the number of whitespace separated tokens.
func WordCount(input string) int {
	return len(strings.Fields(input))
}

// TruncateRunes returns at most limit leading runes of input.
func TruncateRunes(input string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(input) <= limit {
		return input
	}
	n := 0
	for i := range input {
		if n == limit {
			return input[:i]
		}
		n++
	}
	return input
}

// Capitalize upper-cases the first letter and leaves the rest untouched.
func Capitalize(input string) string {
	r, size := utf8.DecodeRuneInString(input)
	if r == utf8.RuneError {
		return input
	}
	return string(unicode.ToUpper(r)) + input[size:]
}

