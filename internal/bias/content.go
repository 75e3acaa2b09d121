package bias

import (
	"context"
	"errors"
	"fmt"

	"github.com/DeafMist/biaslens/internal/models"
	"github.com/DeafMist/biaslens/internal/processing"
)

// Prediction is one row of a content model's output: the predicted label and
// the posterior distribution it was chosen from.
type Prediction struct {
	Label         string    `json:"label"`
	Probabilities []float64 `json:"probabilities"`
}

// Model scores a batch of texts. Predictions are returned in input order.
type Model interface {
	Predict(ctx context.Context, texts []string) ([]Prediction, error)
}

// ContentClassifier infers a leaning from article text alone.
type ContentClassifier struct {
	model Model
}

// NewContentClassifier wraps a content model.
func NewContentClassifier(model Model) *ContentClassifier {
	return &ContentClassifier{model: model}
}

// Text builds the classifier input for one article.
func Text(f models.TextFields) string {
	return processing.CollapseWhitespace(f.Title + ". " + f.Description + ". " + f.Content)
}

// Classify scores the whole batch in one model call. It never returns a partial
// result: either every article gets a bias or the call fails.
func (c *ContentClassifier) Classify(ctx context.Context, articles []models.TextFields) ([]models.ContentBias, error) {
	if len(articles) == 0 {
		return []models.ContentBias{}, nil
	}
	if c == nil || c.model == nil {
		return nil, errors.New("content bias model is not configured")
	}

	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = Text(a)
	}

	preds, err := c.model.Predict(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("predict bias: %w", err)
	}
	if len(preds) != len(texts) {
		return nil, fmt.Errorf("predict bias: got %d predictions for %d articles", len(preds), len(texts))
	}

	out := make([]models.ContentBias, len(preds))
	for i, p := range preds {
		label := models.BiasLabel(p.Label)
		if !label.Valid() {
			return nil, fmt.Errorf("predict bias: article %d: unexpected label %q", i, p.Label)
		}
		if len(p.Probabilities) == 0 {
			return nil, fmt.Errorf("predict bias: article %d: empty distribution", i)
		}
		out[i] = models.ContentBias{Label: label, Confidence: maxOf(p.Probabilities)}
	}

	return out, nil
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
