// Package translate translates English text through per-language model
// pipelines that are loaded once and cached.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/metrics"
)

const (
	// SourceLanguage is the language articles are written in; translating to
	// it is the identity.
	SourceLanguage = "en"
	// MaxLength bounds the length of a translation.
	MaxLength = 512
)

var models = map[string]string{
	"hi": "Helsinki-NLP/opus-mt-en-hi",
	"fr": "Helsinki-NLP/opus-mt-en-fr",
	"de": "Helsinki-NLP/opus-mt-en-de",
	"es": "Helsinki-NLP/opus-mt-en-es",
	"zh": "Helsinki-NLP/opus-mt-en-zh",
}

// Model returns the model identifier for a target language.
func Model(lang string) (string, bool) {
	m, ok := models[lang]
	return m, ok
}

// Task returns the pipeline task name for a target language.
func Task(lang string) string {
	return "translation_en_to_" + lang
}

// Translator translates English text. Failures are reported in the returned
// text rather than as errors.
type Translator struct {
	cache *PipelineCache
	log   *slog.Logger
}

// NewTranslator uses cache to obtain pipelines.
func NewTranslator(cache *PipelineCache, log *slog.Logger) *Translator {
	return &Translator{cache: cache, log: logger.OrDiscard(log)}
}

// Translate returns text in lang. English is returned unchanged, unknown codes
// yield "Unsupported language: <code>" and failures "Translation failed: <err>".
func (t *Translator) Translate(ctx context.Context, text, lang string) string {
	if lang == SourceLanguage {
		return text
	}
	if _, ok := Model(lang); !ok {
		return "Unsupported language: " + lang
	}

	out, err := t.translate(ctx, text, lang)
	if err != nil {
		t.log.Warn("translation failed", slog.String("language", lang), slog.Any("err", err))
		return fmt.Sprintf("Translation failed: %v", err)
	}
	return out
}

func (t *Translator) translate(ctx context.Context, text, lang string) (out string, err error) {
	if t.cache == nil {
		return "", errors.New("translation cache is not configured")
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
		metrics.ObserveInference("translate", start, err)
	}()

	p, err := t.cache.GetOrCreate(ctx, lang)
	if err != nil {
		return "", err
	}
	return p.Translate(ctx, text, MaxLength)
}
