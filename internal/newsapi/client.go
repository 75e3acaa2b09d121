// Package newsapi searches articles through the newsapi.org "everything" endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DeafMist/biaslens/internal/metrics"
	"github.com/DeafMist/biaslens/internal/models"
)

const sourceName = "newsapi"

// Client queries the News API.
type Client struct {
	endpoint string
	apiKey   string
	language string
	http     *http.Client
}

// NewClient builds a client for endpoint. A nil httpClient gets a 20s timeout.
func NewClient(endpoint, apiKey, language string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		language: language,
		http:     httpClient,
	}
}

// Search returns the articles matching query, restricted to the configured language.
func (c *Client) Search(ctx context.Context, query string) (articles []models.RawArticle, err error) {
	defer func() {
		metrics.NewsSearches.WithLabelValues(sourceName, metrics.Outcome(err)).Inc()
	}()

	params := url.Values{}
	params.Set("q", query)
	if c.language != "" {
		params.Set("language", c.language)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Articles []models.RawArticle `json:"articles"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}
	if parsed.Articles == nil {
		parsed.Articles = []models.RawArticle{}
	}
	return parsed.Articles, nil
}

// Raw returns the upstream response body for query unchanged.
func (c *Client) Raw(ctx context.Context, query string) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("news source returned invalid json")
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid news endpoint %s: %w", c.endpoint, err)
	}
	params.Set("apiKey", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "biaslens/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request news: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("read news response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewUpstreamError(sourceName, resp.StatusCode, body)
	}
	return body, nil
}
