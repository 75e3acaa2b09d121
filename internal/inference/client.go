// Package inference talks to the model server that hosts the sentiment,
// summarization, translation and content bias models.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/DeafMist/biaslens/internal/bias"
	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/metrics"
	"github.com/DeafMist/biaslens/internal/sentiment"
	"github.com/DeafMist/biaslens/internal/summarize"
	"github.com/DeafMist/biaslens/internal/translate"
)

const breakerName = "inference"

// StatusError is returned when the model server answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inference server returned %d", e.Code)
	}
	return fmt.Sprintf("inference server returned %d: %s", e.Code, e.Body)
}

// Client implements every model contract of the analysis pipeline against one
// model server.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	cb       *gobreaker.CircuitBreaker[struct{}]
	log      *slog.Logger
}

var (
	_ sentiment.Model  = (*Client)(nil)
	_ summarize.Model  = (*Client)(nil)
	_ bias.Model       = (*Client)(nil)
	_ translate.Loader = (*Client)(nil)
)

// NewClient creates a client for the model server at endpoint.
func NewClient(endpoint, apiKey string, timeout time.Duration, log *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	log = logger.OrDiscard(log)

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Rejected inputs say nothing about server health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Code < http.StatusInternalServerError
			}
			// The caller gave up; the server may be fine.
			var ce *callerDoneError
			if errors.As(err, &ce) {
				return true
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("inference circuit breaker state change",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
		cb:       cb,
		log:      log,
	}
}

// Sentiment returns the native label for text.
func (c *Client) Sentiment(ctx context.Context, text string) (label string, err error) {
	defer observe("sentiment", time.Now(), &err)

	var resp struct {
		Label string `json:"label"`
	}
	if err := c.post(ctx, "/sentiment", map[string]any{"text": text}, &resp); err != nil {
		return "", err
	}
	return resp.Label, nil
}

// Summarize returns a summary within the requested bounds.
func (c *Client) Summarize(ctx context.Context, req summarize.Request) (summary string, err error) {
	defer observe("summarize", time.Now(), &err)

	payload := map[string]any{
		"text":       req.Text,
		"min_length": req.MinLength,
		"max_length": req.MaxLength,
		"do_sample":  req.DoSample,
	}

	var resp struct {
		SummaryText string `json:"summary_text"`
	}
	if err := c.post(ctx, "/summarize", payload, &resp); err != nil {
		return "", err
	}
	return resp.SummaryText, nil
}

// Predict scores a batch of texts with the content bias model.
func (c *Client) Predict(ctx context.Context, texts []string) (preds []bias.Prediction, err error) {
	defer observe("bias", time.Now(), &err)

	var resp struct {
		Predictions []bias.Prediction `json:"predictions"`
	}
	if err := c.post(ctx, "/bias/predict", map[string]any{"texts": texts}, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

// LoadPipeline asks the server to load a translation model and returns a
// handle bound to it.
func (c *Client) LoadPipeline(ctx context.Context, task, model string) (p translate.Pipeline, err error) {
	defer observe("load_pipeline", time.Now(), &err)

	var resp struct {
		PipelineID string `json:"pipeline_id"`
	}
	if err := c.post(ctx, "/pipelines", map[string]any{"task": task, "model": model}, &resp); err != nil {
		return nil, err
	}
	if resp.PipelineID == "" {
		return nil, fmt.Errorf("load pipeline %s: empty pipeline id", model)
	}
	return &Pipeline{client: c, id: resp.PipelineID}, nil
}

// Pipeline is a translation model loaded on the server.
type Pipeline struct {
	client *Client
	id     string
}

// Translate runs the pipeline on text.
func (p *Pipeline) Translate(ctx context.Context, text string, maxLength int) (string, error) {
	var resp struct {
		TranslationText string `json:"translation_text"`
	}
	path := "/pipelines/" + url.PathEscape(p.id) + "/translate"
	if err := p.client.post(ctx, path, map[string]any{"text": text, "max_length": maxLength}, &resp); err != nil {
		return "", err
	}
	return resp.TranslationText, nil
}

// callerDoneError marks a failure that happened after the caller's context
// ended, so the breaker does not count it against the server.
type callerDoneError struct {
	err error
}

func (e *callerDoneError) Error() string { return e.err.Error() }

func (e *callerDoneError) Unwrap() error { return e.err }

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := c.cb.Execute(func() (struct{}, error) {
		err := c.do(ctx, path, payload, v)
		if err != nil && ctx.Err() != nil {
			return struct{}{}, &callerDoneError{err: err}
		}
		return struct{}{}, err
	})

	var ce *callerDoneError
	if errors.As(err, &ce) {
		return ce.err
	}
	return err
}

func (c *Client) do(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveInference(operation, start, *err)
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
