// Package elasticsearch searches articles held in an Elasticsearch index.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/DeafMist/biaslens/internal/logger"
	"github.com/DeafMist/biaslens/internal/metrics"
	"github.com/DeafMist/biaslens/internal/models"
)

const sourceName = "elasticsearch"

// Client searches an index of previously ingested articles. It never writes.
type Client struct {
	es    *elasticsearch.Client
	index string
	size  int
	log   *slog.Logger
}

// ArticleDocument is the indexed shape of an article.
type ArticleDocument struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Content     string    `json:"content"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`
}

// New instantiates the Elasticsearch client. size caps the hits per search.
func New(addr, index string, size int, log *slog.Logger) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{addr},
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if size <= 0 {
		size = 100
	}

	return &Client{es: es, index: index, size: size, log: logger.OrDiscard(log)}, nil
}

// Ping checks if Elasticsearch is available.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("ping elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping failed: %s", res.Status())
	}

	return nil
}

// Search returns the articles best matching query.
func (c *Client) Search(ctx context.Context, query string) (articles []models.RawArticle, err error) {
	defer func() {
		metrics.NewsSearches.WithLabelValues(sourceName, metrics.Outcome(err)).Inc()
	}()

	docs, _, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}

	articles = make([]models.RawArticle, 0, len(docs))
	for _, d := range docs {
		articles = append(articles, d.toRaw())
	}
	return articles, nil
}

// Raw returns the hits for query in the News API response layout.
func (c *Client) Raw(ctx context.Context, query string) (json.RawMessage, error) {
	docs, total, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}

	articles := make([]models.RawArticle, 0, len(docs))
	for _, d := range docs {
		articles = append(articles, d.toRaw())
	}

	payload, err := json.Marshal(map[string]any{
		"status":       "ok",
		"totalResults": total,
		"articles":     articles,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal raw response: %w", err)
	}
	return payload, nil
}

func (c *Client) search(ctx context.Context, query string) ([]ArticleDocument, int64, error) {
	body := map[string]any{
		"size":             c.size,
		"track_total_hits": true,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "description", "content"},
			},
		},
		"sort": []any{
			"_score",
			map[string]any{"published_at": map[string]any{"order": "desc", "unmapped_type": "date"}},
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal search body: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return nil, 0, models.NewUpstreamError(sourceName, res.StatusCode, data)
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source ArticleDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	docs := make([]ArticleDocument, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		docs = append(docs, hit.Source)
	}

	c.log.Debug("elasticsearch search", slog.String("query", query), slog.Int("hits", len(docs)))
	return docs, parsed.Hits.Total.Value, nil
}

// Ready reports whether the article index can serve searches: the cluster
// answers and its health for the index is not red.
func (c *Client) Ready(ctx context.Context) error {
	res, err := c.es.Cluster.Health(
		c.es.Cluster.Health.WithContext(ctx),
		c.es.Cluster.Health.WithIndex(c.index),
	)
	if err != nil {
		return fmt.Errorf("cluster health: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		data, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return models.NewUpstreamError(sourceName, res.StatusCode, data)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(res.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode cluster health: %w", err)
	}
	if health.Status == "red" {
		return fmt.Errorf("index %s health is red", c.index)
	}
	return nil
}

func (d ArticleDocument) toRaw() models.RawArticle {
	raw := models.RawArticle{
		Source:      models.RawSource{Name: d.Source},
		Author:      d.Author,
		Title:       d.Title,
		Description: d.Description,
		URL:         d.URL,
		Content:     d.Content,
	}
	if !d.PublishedAt.IsZero() {
		raw.PublishedAt = d.PublishedAt.UTC().Format(time.RFC3339)
	}
	return raw
}
