// Package sentiment maps model sentiment labels onto the three service labels.
package sentiment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DeafMist/biaslens/internal/models"
	"github.com/DeafMist/biaslens/internal/processing"
)

// MaxInputRunes is the longest prefix handed to the model.
const MaxInputRunes = 512

// Model returns the native label of a sentiment model, e.g. "POSITIVE" or "LABEL_2".
type Model interface {
	Sentiment(ctx context.Context, text string) (string, error)
}

// Classifier maps text to the positive/negative/neutral taxonomy.
type Classifier struct {
	model Model
}

// NewClassifier wraps a sentiment model.
func NewClassifier(model Model) *Classifier {
	return &Classifier{model: model}
}

// Classify returns neutral for blank text without consulting the model. Longer
// text is cut to MaxInputRunes.
func (c *Classifier) Classify(ctx context.Context, text string) (models.Sentiment, error) {
	if processing.IsBlank(text) {
		return models.SentimentNeutral, nil
	}
	if c == nil || c.model == nil {
		return "", errors.New("sentiment model is not configured")
	}

	label, err := c.model.Sentiment(ctx, processing.TruncateRunes(text, MaxInputRunes))
	if err != nil {
		return "", fmt.Errorf("classify sentiment: %w", err)
	}
	return FromLabel(label), nil
}

// FromLabel maps a native model label by substring.
func FromLabel(label string) models.Sentiment {
	label = strings.ToLower(label)
	switch {
	case strings.Contains(label, "positive"):
		return models.SentimentPositive
	case strings.Contains(label, "negative"):
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}
