// Package summarize returns short texts unchanged and asks a model for
// length-bounded summaries of longer ones.
package summarize

import (
	"context"
	"errors"
	"fmt"

	"github.com/DeafMist/biaslens/internal/processing"
)

// MinWords is the shortest input, in whitespace tokens, that gets summarized.
const MinWords = 30

// Request carries the length bounds handed to the summarization model.
type Request struct {
	Text      string
	MinLength int
	MaxLength int
	DoSample  bool
}

// Model produces a summary within the requested bounds.
type Model interface {
	Summarize(ctx context.Context, req Request) (string, error)
}

// Summarizer applies the length policy around a summarization model.
type Summarizer struct {
	model Model
}

// NewSummarizer wraps a summarization model.
func NewSummarizer(model Model) *Summarizer {
	return &Summarizer{model: model}
}

// Bounds returns the min and max length for an input of words tokens.
// The maximum is the token count with a floor of 50, so inputs of 30 to 49
// tokens may come back longer than they went in. The minimum always ends up
// equal to the maximum for inputs that get summarized.
func Bounds(words int) (minLength, maxLength int) {
	maxLength = max(50, words)
	minLength = max(25, maxLength)
	return minLength, maxLength
}

// Summarize returns "" for empty input and text unchanged below MinWords.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", nil
	}

	words := processing.WordCount(text)
	if words < MinWords {
		return text, nil
	}
	if s == nil || s.model == nil {
		return "", errors.New("summarization model is not configured")
	}

	minLength, maxLength := Bounds(words)
	summary, err := s.model.Summarize(ctx, Request{
		Text:      text,
		MinLength: minLength,
		MaxLength: maxLength,
	})
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return summary, nil
}
