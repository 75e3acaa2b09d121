package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/biaslens/internal/analysis"
	"github.com/DeafMist/biaslens/internal/bias"
	"github.com/DeafMist/biaslens/internal/config"
	"github.com/DeafMist/biaslens/internal/elasticsearch"
	"github.com/DeafMist/biaslens/internal/inference"
	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/newsapi"
	"github.com/DeafMist/biaslens/internal/sentiment"
	"github.com/DeafMist/biaslens/internal/summarize"
	"github.com/DeafMist/biaslens/internal/translate"
)

func main() {
	log := logger.New("api")
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	table, err := bias.LoadFile(cfg.BiasTablePath)
	if err != nil {
		log.Error("load bias table", slog.Any("err", err))
		os.Exit(1)
	}

	source, err := newNewsSource(cfg, log)
	if err != nil {
		log.Error("init news source", slog.Any("err", err))
		os.Exit(1)
	}

	infer := inference.NewClient(cfg.Inference.URL, cfg.Inference.APIKey, cfg.Inference.Timeout, log)
	pipelines := translate.NewPipelineCache(infer, log)

	svc := analysis.New(analysis.Deps{
		Source:      source,
		Table:       table,
		Content:     bias.NewContentClassifier(infer),
		Sentiment:   sentiment.NewClassifier(infer),
		Summarizer:  summarize.NewSummarizer(infer),
		Translator:  translate.NewTranslator(pipelines, log),
		Concurrency: cfg.SearchConcurrency,
		Logger:      log,
	})

	srv := &server{log: log, svc: svc}
	if rc, ok := source.(readinessChecker); ok {
		srv.ready = rc
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           newRouter(srv, cfg.CORSAllowedOrigins, cfg.RequestTimeout),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		log.Info("api server starting",
			slog.String("addr", cfg.BindAddr),
			slog.String("news_source", cfg.News.Source),
			slog.Int("bias_domains", table.Len()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

func newNewsSource(cfg *config.API, log *slog.Logger) (analysis.NewsSource, error) {
	switch cfg.News.Source {
	case config.NewsSourceAPI:
		return newsapi.NewClient(
			cfg.News.APIURL,
			cfg.News.APIKey,
			cfg.News.Language,
			&http.Client{Timeout: cfg.RequestTimeout},
		), nil
	case config.NewsSourceElasticsearch:
		es, err := elasticsearch.New(cfg.News.ElasticsearchAddr, cfg.News.ElasticsearchIndex, cfg.News.SearchSize, log)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := es.Ping(ctx); err != nil {
			log.Warn("elasticsearch not reachable yet", slog.Any("err", err))
		}
		return es, nil
	default:
		return nil, fmt.Errorf("unknown news source %q", cfg.News.Source)
	}
}
