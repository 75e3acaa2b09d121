// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	NewsSourceAPI           = "newsapi"
	NewsSourceElasticsearch = "elasticsearch"
)

// Inference locates the model server.
type Inference struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// News selects and configures the news source.
type News struct {
	Source             string
	APIURL             string
	APIKey             string
	Language           string
	ElasticsearchAddr  string
	ElasticsearchIndex string
	SearchSize         int
}

// Common contains settings shared by every binary.
type Common struct {
	Inference     Inference
	BiasTablePath string
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	News               News
	BindAddr           string
	RequestTimeout     time.Duration
	SearchConcurrency  int
	CORSAllowedOrigins []string
}

// Worker holds configuration for the Kafka analysis worker.
type Worker struct {
	Common
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaResultTopic string
	KafkaConsumer    string
	DedupeCapacity   int
	DedupeTTL        time.Duration
	QueueCapacity    int
}

// LoadDotEnv reads DOTENV_PATH (default ".env") into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv() error {
	path := getEnv("DOTENV_PATH", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	c := &API{
		Common: loadCommon(),
		News: News{
			Source:             strings.ToLower(getEnv("NEWS_SOURCE", NewsSourceAPI)),
			APIURL:             getEnv("NEWS_API_URL", "https://newsapi.org/v2/everything"),
			APIKey:             getEnv("NEWS_API_KEY", ""),
			Language:           getEnv("NEWS_LANGUAGE", "en"),
			ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
			ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "articles"),
			SearchSize:         getInt("NEWS_SEARCH_SIZE", 100),
		},
		BindAddr:           getEnv("API_BIND_ADDR", "0.0.0.0:8000"),
		RequestTimeout:     getDuration("API_REQUEST_TIMEOUT", "60s"),
		SearchConcurrency:  getInt("SEARCH_CONCURRENCY", 4),
		CORSAllowedOrigins: splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}

	if err := c.Common.validate(); err != nil {
		return nil, err
	}

	switch c.News.Source {
	case NewsSourceAPI:
		if c.News.APIKey == "" {
			return nil, fmt.Errorf("NEWS_API_KEY is required when NEWS_SOURCE=%s", NewsSourceAPI)
		}
	case NewsSourceElasticsearch:
		if c.News.ElasticsearchAddr == "" {
			return nil, fmt.Errorf("ELASTICSEARCH_ADDR is required when NEWS_SOURCE=%s", NewsSourceElasticsearch)
		}
	default:
		return nil, fmt.Errorf("NEWS_SOURCE must be %s or %s, got %q", NewsSourceAPI, NewsSourceElasticsearch, c.News.Source)
	}

	if c.News.SearchSize <= 0 {
		return nil, fmt.Errorf("NEWS_SEARCH_SIZE must be positive")
	}
	if c.SearchConcurrency <= 0 {
		return nil, fmt.Errorf("SEARCH_CONCURRENCY must be positive")
	}
	if c.RequestTimeout <= 0 {
		return nil, fmt.Errorf("API_REQUEST_TIMEOUT must be positive")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	c := &Worker{
		Common:           loadCommon(),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "analysis_requests"),
		KafkaResultTopic: getEnv("KAFKA_RESULT_TOPIC", "analysis_results"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "analysis-worker"),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "1h"),
		QueueCapacity:    getInt("WORKER_QUEUE_CAPACITY", 10),
	}

	if err := c.Common.validate(); err != nil {
		return nil, err
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.KafkaTopic == c.KafkaResultTopic {
		return nil, fmt.Errorf("KAFKA_RESULT_TOPIC must differ from KAFKA_TOPIC")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.QueueCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_QUEUE_CAPACITY must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		Inference: Inference{
			URL:     getEnv("INFERENCE_URL", "http://inference:8500"),
			APIKey:  getEnv("INFERENCE_API_KEY", ""),
			Timeout: getDuration("INFERENCE_TIMEOUT", "90s"),
		},
		BiasTablePath: getEnv("BIAS_TABLE_PATH", ""),
	}
}

func (c Common) validate() error {
	if c.Inference.URL == "" {
		return fmt.Errorf("INFERENCE_URL must not be empty")
	}
	if c.Inference.Timeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
