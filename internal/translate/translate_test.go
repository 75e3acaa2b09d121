package translate_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DeafMist/biaslens/internal/translate"
	"github.com/stretchr/testify/require"
)

type fakePipeline struct {
	lang string
	err  error
	hit  atomic.Int32
}

func (p *fakePipeline) Translate(_ context.Context, text string, maxLength int) (string, error) {
	p.hit.Add(1)
	if p.err != nil {
		return "", p.err
	}
	if maxLength != translate.MaxLength {
		return "", errors.New("unexpected max length")
	}
	return "[" + p.lang + "] " + text, nil
}

type fakeLoader struct {
	mu       sync.Mutex
	loads    map[string]int
	tasks    []string
	delay    time.Duration
	err      error
	pipeline func(lang string) *fakePipeline
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{loads: make(map[string]int)}
}

func (l *fakeLoader) LoadPipeline(ctx context.Context, task, model string) (translate.Pipeline, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	lang := task[len("translation_en_to_"):]

	l.mu.Lock()
	l.loads[lang]++
	l.tasks = append(l.tasks, task+"|"+model)
	l.mu.Unlock()

	if l.err != nil {
		return nil, l.err
	}
	if l.pipeline != nil {
		return l.pipeline(lang), nil
	}
	return &fakePipeline{lang: lang}, nil
}

func (l *fakeLoader) count(lang string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[lang]
}

func TestEnglishIsIdentity(t *testing.T) {
	loader := newFakeLoader()
	tr := translate.NewTranslator(translate.NewPipelineCache(loader, nil), nil)

	for _, text := range []string{"", "Hello", "  spaced  "} {
		require.Equal(t, text, tr.Translate(context.Background(), text, "en"))
	}
	require.Empty(t, loader.tasks)
}

func TestUnsupportedLanguage(t *testing.T) {
	loader := newFakeLoader()
	tr := translate.NewTranslator(translate.NewPipelineCache(loader, nil), nil)

	require.Equal(t, "Unsupported language: xx", tr.Translate(context.Background(), "Hello", "xx"))
	require.Equal(t, "Unsupported language: ", tr.Translate(context.Background(), "Hello", ""))
	require.Empty(t, loader.tasks)
}

func TestTranslateBuildsPipelineOnce(t *testing.T) {
	loader := newFakeLoader()
	cache := translate.NewPipelineCache(loader, nil)
	tr := translate.NewTranslator(cache, nil)

	require.Equal(t, "[fr] Hello", tr.Translate(context.Background(), "Hello", "fr"))
	require.Equal(t, "[fr] World", tr.Translate(context.Background(), "World", "fr"))
	require.Equal(t, "[de] Hello", tr.Translate(context.Background(), "Hello", "de"))

	require.Equal(t, 1, loader.count("fr"))
	require.Equal(t, 1, loader.count("de"))
	require.Equal(t, 2, cache.Len())
	require.Contains(t, loader.tasks, "translation_en_to_fr|Helsinki-NLP/opus-mt-en-fr")
}

func TestConcurrentFirstUseBuildsOnePipeline(t *testing.T) {
	loader := newFakeLoader()
	loader.delay = 20 * time.Millisecond
	cache := translate.NewPipelineCache(loader, nil)

	const callers = 32
	results := make([]translate.Pipeline, callers)
	errs := make([]error, callers)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = cache.GetOrCreate(context.Background(), "es")
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, loader.count("es"))
	for i, p := range results {
		require.NoError(t, errs[i])
		require.Same(t, results[0], p)
	}
}

func TestLoadFailureIsInBandAndNotCached(t *testing.T) {
	loader := newFakeLoader()
	loader.err = errors.New("model download failed")
	cache := translate.NewPipelineCache(loader, nil)
	tr := translate.NewTranslator(cache, nil)

	got := tr.Translate(context.Background(), "Hello", "hi")
	require.Equal(t, "Translation failed: load hi pipeline: model download failed", got)
	require.Equal(t, 0, cache.Len())

	loader.err = nil
	require.Equal(t, "[hi] Hello", tr.Translate(context.Background(), "Hello", "hi"))
	require.Equal(t, 2, loader.count("hi"))
}

func TestPipelineErrorIsInBand(t *testing.T) {
	loader := newFakeLoader()
	loader.pipeline = func(lang string) *fakePipeline {
		return &fakePipeline{lang: lang, err: errors.New("CUDA out of memory")}
	}
	tr := translate.NewTranslator(translate.NewPipelineCache(loader, nil), nil)

	require.Equal(t, "Translation failed: CUDA out of memory", tr.Translate(context.Background(), "Hello", "zh"))
}

type panickingPipeline struct{}

func (panickingPipeline) Translate(context.Context, string, int) (string, error) {
	panic("index out of range")
}

type staticLoader struct{ p translate.Pipeline }

func (s staticLoader) LoadPipeline(context.Context, string, string) (translate.Pipeline, error) {
	return s.p, nil
}

func TestPipelinePanicIsInBand(t *testing.T) {
	tr := translate.NewTranslator(translate.NewPipelineCache(staticLoader{p: panickingPipeline{}}, nil), nil)
	require.Equal(t, "Translation failed: pipeline panic: index out of range", tr.Translate(context.Background(), "Hello", "fr"))
}

func TestGetOrCreateUnsupported(t *testing.T) {
	cache := translate.NewPipelineCache(newFakeLoader(), nil)
	_, err := cache.GetOrCreate(context.Background(), "xx")
	require.ErrorIs(t, err, translate.ErrUnsupportedLanguage)
}

func TestCanceledCallerDoesNotPoisonLoad(t *testing.T) {
	loader := newFakeLoader()
	cache := translate.NewPipelineCache(loader, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := cache.GetOrCreate(ctx, "de")
	require.NoError(t, err)
	require.NotNil(t, p)
}
