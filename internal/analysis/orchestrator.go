// Package analysis composes normalization, bias detection, sentiment,
// summarization and translation into per-article and per-batch results.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/models"
	"github.com/DeafMist/biaslens/internal/normalize"
	"github.com/DeafMist/biaslens/internal/processing"
)

// Client input errors.
var (
	ErrEmptyBatch         = errors.New("articles must be a non-empty list")
	ErrMissingQuery       = errors.New("query is required")
	ErrMissingTranslation = errors.New("missing text or target language")
)

// NewsSource finds articles for a free-text query.
type NewsSource interface {
	Search(ctx context.Context, query string) ([]models.RawArticle, error)
	Raw(ctx context.Context, query string) (json.RawMessage, error)
}

// BiasTable resolves the leaning of the site hosting a URL.
type BiasTable interface {
	Lookup(rawURL string) models.BiasLabel
}

// ContentClassifier infers leanings from article text, one call per batch.
type ContentClassifier interface {
	Classify(ctx context.Context, articles []models.TextFields) ([]models.ContentBias, error)
}

// SentimentClassifier labels text as positive, negative or neutral.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (models.Sentiment, error)
}

// Summarizer shortens text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Translator translates text and reports failures in-band.
type Translator interface {
	Translate(ctx context.Context, text, lang string) string
}

// Deps wires the collaborators of an Orchestrator.
type Deps struct {
	Source     NewsSource
	Table      BiasTable
	Content    ContentClassifier
	Sentiment  SentimentClassifier
	Summarizer Summarizer
	Translator Translator
	// Concurrency bounds the per-article fan-out of SearchAndAnalyze.
	Concurrency int
	Logger      *slog.Logger
}

// Orchestrator runs the analysis operations.
type Orchestrator struct {
	source      NewsSource
	table       BiasTable
	content     ContentClassifier
	sentiment   SentimentClassifier
	summarizer  Summarizer
	translator  Translator
	concurrency int
	log         *slog.Logger
}

// New builds an Orchestrator. Concurrency below 1 means sequential.
func New(deps Deps) *Orchestrator {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Orchestrator{
		source:      deps.Source,
		table:       deps.Table,
		content:     deps.Content,
		sentiment:   deps.Sentiment,
		summarizer:  deps.Summarizer,
		translator:  deps.Translator,
		concurrency: concurrency,
		log:         logger.OrDiscard(deps.Logger),
	}
}

// AnalyzeArticle summarizes one article, labels its sentiment and resolves
// its bias from the URL's domain. Sentiment and bias are capitalized.
func (o *Orchestrator) AnalyzeArticle(ctx context.Context, in models.ArticleInput) (models.AnalysisResult, error) {
	fullText := in.Title + " " + in.Content

	summary, err := o.summarizer.Summarize(ctx, fullText)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("analyze article: %w", err)
	}

	sentiment, err := o.sentiment.Classify(ctx, fullText)
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("analyze article: %w", err)
	}

	bias := "Unknown"
	if label := o.DetectBias(in.URL); label != "" {
		bias = processing.Capitalize(string(label))
	}

	return models.AnalysisResult{
		Summary:   summary,
		Sentiment: processing.Capitalize(string(sentiment)),
		Bias:      bias,
	}, nil
}

// AnalyzeBatch classifies every article's leaning from its text in a single
// classifier call. Each result is a copy of the input mapping with a "bias"
// entry added; order is preserved.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, articles []map[string]any) ([]map[string]any, error) {
	if len(articles) == 0 {
		return nil, ErrEmptyBatch
	}

	fields := make([]models.TextFields, len(articles))
	for i, a := range articles {
		fields[i] = normalize.Fields(a)
	}

	preds, err := o.content.Classify(ctx, fields)
	if err != nil {
		return nil, fmt.Errorf("analyze batch: %w", err)
	}

	out := make([]map[string]any, len(articles))
	for i, a := range articles {
		merged := make(map[string]any, len(a)+1)
		maps.Copy(merged, a)
		merged["bias"] = preds[i]
		out[i] = merged
	}

	o.log.Debug("batch analyzed", slog.Int("articles", len(out)))
	return out, nil
}

// SearchAndAnalyze fetches articles for query and labels each one with its
// sentiment and domain bias. Results keep the order of the news source.
func (o *Orchestrator) SearchAndAnalyze(ctx context.Context, query string) ([]models.ListingArticle, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrMissingQuery
	}
	if o.source == nil {
		return nil, errors.New("news source is not configured")
	}

	raw, err := o.source.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}

	results := make([]models.ListingArticle, len(raw))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i, art := range raw {
		g.Go(func() error {
			// A sibling already failed; the listing is discarded.
			if err := gctx.Err(); err != nil {
				return err
			}
			rec := normalize.Article(art)

			sentiment, err := o.sentiment.Classify(gctx, rec.Title+" "+rec.Content)
			if err != nil {
				return fmt.Errorf("article %d: %w", i, err)
			}

			results[i] = models.ListingArticle{
				Title:     rec.Title,
				Original:  rec.Description,
				Source:    rec.DisplaySource(),
				URL:       rec.URL,
				Sentiment: sentiment,
				Bias:      o.DetectBias(rec.URL),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze listing: %w", err)
	}

	o.log.Debug("listing analyzed", slog.String("query", query), slog.Int("articles", len(results)))
	return results, nil
}

// RawSearch relays the news source response for query unchanged.
func (o *Orchestrator) RawSearch(ctx context.Context, query string) (json.RawMessage, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrMissingQuery
	}
	if o.source == nil {
		return nil, errors.New("news source is not configured")
	}

	raw, err := o.source.Raw(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search news: %w", err)
	}
	return raw, nil
}

// DetectBias resolves the leaning of the site hosting rawURL.
func (o *Orchestrator) DetectBias(rawURL string) models.BiasLabel {
	if o.table == nil {
		return models.BiasUnknown
	}
	return o.table.Lookup(rawURL)
}

// DetectBiasText infers one article's leaning from its text.
func (o *Orchestrator) DetectBiasText(ctx context.Context, f models.TextFields) (models.ContentBias, error) {
	preds, err := o.content.Classify(ctx, []models.TextFields{f})
	if err != nil {
		return models.ContentBias{}, fmt.Errorf("detect bias: %w", err)
	}
	if len(preds) == 0 {
		return models.ContentBias{}, errors.New("detect bias: empty prediction")
	}
	return preds[0], nil
}

// Translate translates text into lang. Translation failures are part of the
// returned text; only missing input is an error.
func (o *Orchestrator) Translate(ctx context.Context, text, lang string) (string, error) {
	if text == "" || lang == "" {
		return "", ErrMissingTranslation
	}
	return o.translator.Translate(ctx, text, lang), nil
}

// IsClientError reports whether err was caused by invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrMissingQuery) ||
		errors.Is(err, ErrMissingTranslation)
}
