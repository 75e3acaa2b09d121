package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/biaslens/internal/analysis"
	"github.com/DeafMist/biaslens/internal/bias"
	"github.com/DeafMist/biaslens/internal/config"
	"github.com/DeafMist/biaslens/internal/dedupe"
	"github.com/DeafMist/biaslens/internal/inference"
	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/metrics"
	"github.com/DeafMist/biaslens/internal/models"
	"github.com/DeafMist/biaslens/internal/sentiment"
	"github.com/DeafMist/biaslens/internal/summarize"
)

const dlqAttempts = 5

type analyzer interface {
	AnalyzeArticle(ctx context.Context, in models.ArticleInput) (models.AnalysisResult, error)
}

type publisher interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type processor struct {
	log     *slog.Logger
	svc     analyzer
	results publisher
	seen    *dedupe.Cache
	now     func() time.Time
	// backoff returns the wait before DLQ attempt n+1.
	backoff func(attempt int) time.Duration
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	table, err := bias.LoadFile(cfg.BiasTablePath)
	if err != nil {
		log.Error("load bias table", slog.Any("err", err))
		os.Exit(1)
	}

	infer := inference.NewClient(cfg.Inference.URL, cfg.Inference.APIKey, cfg.Inference.Timeout, log)
	svc := analysis.New(analysis.Deps{
		Table:      table,
		Sentiment:  sentiment.NewClassifier(infer),
		Summarizer: summarize.NewSummarizer(infer),
		Logger:     log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.QueueCapacity,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit only
	})
	defer reader.Close()

	resultWriter := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaResultTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}
	defer resultWriter.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlqWriter := &kafka.Writer{
		Addr:        kafka.TCP(cfg.KafkaBrokers...),
		Topic:       dlqTopic,
		MaxAttempts: 3,
	}
	defer dlqWriter.Close()

	p := &processor{
		log:     log,
		svc:     svc,
		results: resultWriter,
		seen:    dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL),
		now:     time.Now,
		backoff: func(attempt int) time.Duration { return time.Duration(1<<uint(attempt)) * time.Second },
	}

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("result_topic", cfg.KafkaResultTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
		slog.Int("bias_domains", table.Len()),
	)

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("context canceled, stopping")
				return
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := p.process(ctx, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)

			sent, dlqErr := p.deadLetter(ctx, dlqWriter, msg, err)
			if dlqErr != nil {
				log.Info("context canceled during DLQ retry")
				return
			}
			// Uncommitted messages are redelivered after a restart.
			if !sent {
				log.Error("DLQ write exhausted retries, message may be lost if later messages commit",
					slog.Int("partition", msg.Partition),
					slog.Int64("offset", msg.Offset),
				)
				continue
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// process analyzes one request and publishes its envelope keyed by request
// id. Returned errors send the message to the DLQ.
func (p *processor) process(ctx context.Context, msg kafka.Message) error {
	var req models.AnalysisRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		metrics.WorkerMessages.WithLabelValues("invalid").Inc()
		return fmt.Errorf("decode request: %w", err)
	}

	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	if !p.seen.Remember(req.ID) {
		metrics.WorkerMessages.WithLabelValues("duplicate").Inc()
		p.log.Debug("duplicate analysis request", slog.String("id", req.ID))
		return nil
	}

	env := models.AnalysisEnvelope{ID: req.ID}
	result, analyzeErr := p.svc.AnalyzeArticle(ctx, req.ArticleInput)
	if analyzeErr != nil {
		env.Error = analyzeErr.Error()
	} else {
		env.Result = &result
	}
	env.AnalyzedAt = p.now().UTC()

	if err := p.publish(ctx, env); err != nil {
		p.seen.Forget(req.ID)
		metrics.WorkerMessages.WithLabelValues("failure").Inc()
		return err
	}

	// The failed request is kept out of the dedupe window so a DLQ replay runs again.
	if analyzeErr != nil {
		p.seen.Forget(req.ID)
		metrics.WorkerMessages.WithLabelValues("failure").Inc()
		return fmt.Errorf("analyze %s: %w", req.ID, analyzeErr)
	}

	metrics.WorkerMessages.WithLabelValues("success").Inc()
	p.log.Info("analysis published",
		slog.String("id", req.ID),
		slog.String("sentiment", result.Sentiment),
		slog.String("bias", result.Bias),
	)
	return nil
}

func (p *processor) publish(ctx context.Context, env models.AnalysisEnvelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err := p.results.WriteMessages(ctx, kafka.Message{Key: []byte(env.ID), Value: value}); err != nil {
		return fmt.Errorf("publish result %s: %w", env.ID, err)
	}
	return nil
}

// deadLetter copies msg to the DLQ with error context, retrying with
// exponential backoff. It reports whether the copy was written; a non-nil
// error means ctx ended first.
func (p *processor) deadLetter(ctx context.Context, w publisher, msg kafka.Message, cause error) (bool, error) {
	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(append([]kafka.Header(nil), msg.Headers...),
			kafka.Header{Key: "original_topic", Value: []byte(msg.Topic)},
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(p.now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range dlqAttempts {
		dlqErr := w.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			p.log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true, nil
		}

		wait := p.backoff(attempt)
		p.log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", wait),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return false, nil
}
