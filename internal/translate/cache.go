package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/metrics"
)

// ErrUnsupportedLanguage is returned for target languages without a model.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Pipeline is a loaded translation model.
type Pipeline interface {
	Translate(ctx context.Context, text string, maxLength int) (string, error)
}

// Loader constructs a pipeline for a task and model identifier. Loading is
// expensive and happens at most once per language per process.
type Loader interface {
	LoadPipeline(ctx context.Context, task, model string) (Pipeline, error)
}

// PipelineCache owns the translation pipelines of the process. Pipelines are
// built lazily on first use and kept until the process exits.
type PipelineCache struct {
	loader Loader
	log    *slog.Logger

	mu        sync.RWMutex
	pipelines map[string]Pipeline
	group     singleflight.Group
}

// NewPipelineCache creates an empty cache backed by loader.
func NewPipelineCache(loader Loader, log *slog.Logger) *PipelineCache {
	return &PipelineCache{
		loader:    loader,
		log:       logger.OrDiscard(log),
		pipelines: make(map[string]Pipeline),
	}
}

// GetOrCreate returns the pipeline for lang, building it if needed. Concurrent
// callers for the same uncached language share one construction and observe
// the same instance. Failed constructions are not cached.
func (c *PipelineCache) GetOrCreate(ctx context.Context, lang string) (Pipeline, error) {
	if p, ok := c.lookup(lang); ok {
		return p, nil
	}

	model, ok := Model(lang)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	if c.loader == nil {
		return nil, errors.New("translation loader is not configured")
	}

	// One caller's cancellation must not fail the others sharing the load.
	loadCtx := context.WithoutCancel(ctx)

	v, err, _ := c.group.Do(lang, func() (any, error) {
		if p, ok := c.lookup(lang); ok {
			return p, nil
		}

		start := time.Now()
		p, err := c.loader.LoadPipeline(loadCtx, Task(lang), model)
		if err != nil {
			return nil, fmt.Errorf("load %s pipeline: %w", lang, err)
		}

		c.mu.Lock()
		c.pipelines[lang] = p
		size := len(c.pipelines)
		c.mu.Unlock()

		metrics.TranslationPipelinesBuilt.WithLabelValues(lang).Inc()
		metrics.TranslationPipelinesCached.Set(float64(size))
		c.log.Info("translation pipeline loaded",
			slog.String("language", lang),
			slog.String("model", model),
			slog.Duration("took", time.Since(start)),
		)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Pipeline), nil
}

// Len returns the number of cached pipelines.
func (c *PipelineCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pipelines)
}

func (c *PipelineCache) lookup(lang string) (Pipeline, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.pipelines[lang]
	return p, ok
}
