package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DeafMist/biaslens/internal/config"
	"github.com/stretchr/testify/require"
)

func noDotEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DOTENV_PATH", filepath.Join(t.TempDir(), "absent.env"))
}

func TestLoadAPIDefaults(t *testing.T) {
	noDotEnv(t)
	t.Setenv("NEWS_API_KEY", "key")
	t.Setenv("NEWS_SOURCE", "")
	t.Setenv("API_BIND_ADDR", "")
	t.Setenv("INFERENCE_URL", "")
	t.Setenv("INFERENCE_TIMEOUT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:8000", cfg.BindAddr)
	require.Equal(t, config.NewsSourceAPI, cfg.News.Source)
	require.Equal(t, "https://newsapi.org/v2/everything", cfg.News.APIURL)
	require.Equal(t, "en", cfg.News.Language)
	require.Equal(t, "http://inference:8500", cfg.Inference.URL)
	require.Equal(t, 90*time.Second, cfg.Inference.Timeout)
	require.Equal(t, 60*time.Second, cfg.RequestTimeout)
	require.Equal(t, 4, cfg.SearchConcurrency)
	require.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	require.Empty(t, cfg.BiasTablePath)
}

func TestLoadAPIOverrides(t *testing.T) {
	noDotEnv(t)
	t.Setenv("NEWS_SOURCE", "ElasticSearch")
	t.Setenv("NEWS_API_KEY", "")
	t.Setenv("ELASTICSEARCH_ADDR", "http://localhost:9200")
	t.Setenv("ELASTICSEARCH_INDEX", "news-archive")
	t.Setenv("NEWS_SEARCH_SIZE", "30")
	t.Setenv("API_BIND_ADDR", ":9090")
	t.Setenv("API_REQUEST_TIMEOUT", "2m")
	t.Setenv("SEARCH_CONCURRENCY", "8")
	t.Setenv("INFERENCE_URL", "http://gpu:8500")
	t.Setenv("INFERENCE_TIMEOUT", "bogus")
	t.Setenv("BIAS_TABLE_PATH", "/etc/biaslens/table.yaml")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com")

	cfg, err := config.LoadAPI()
	require.NoError(t, err)

	require.Equal(t, config.NewsSourceElasticsearch, cfg.News.Source)
	require.Equal(t, "http://localhost:9200", cfg.News.ElasticsearchAddr)
	require.Equal(t, "news-archive", cfg.News.ElasticsearchIndex)
	require.Equal(t, 30, cfg.News.SearchSize)
	require.Equal(t, ":9090", cfg.BindAddr)
	require.Equal(t, 2*time.Minute, cfg.RequestTimeout)
	require.Equal(t, 8, cfg.SearchConcurrency)
	require.Equal(t, "http://gpu:8500", cfg.Inference.URL)
	require.Equal(t, 90*time.Second, cfg.Inference.Timeout, "invalid duration falls back")
	require.Equal(t, "/etc/biaslens/table.yaml", cfg.BiasTablePath)
	require.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadAPIValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing news key", env: map[string]string{"NEWS_API_KEY": ""}},
		{name: "unknown source", env: map[string]string{"NEWS_API_KEY": "k", "NEWS_SOURCE": "rss"}},
		{name: "bad concurrency", env: map[string]string{"NEWS_API_KEY": "k", "SEARCH_CONCURRENCY": "-1"}},
		{name: "bad search size", env: map[string]string{"NEWS_API_KEY": "k", "NEWS_SEARCH_SIZE": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noDotEnv(t)
			t.Setenv("NEWS_SOURCE", "")
			t.Setenv("SEARCH_CONCURRENCY", "")
			t.Setenv("NEWS_SEARCH_SIZE", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := config.LoadAPI()
			require.Error(t, err)
		})
	}
}

func TestLoadWorkerDefaults(t *testing.T) {
	noDotEnv(t)
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("KAFKA_TOPIC", "")
	t.Setenv("KAFKA_RESULT_TOPIC", "")
	t.Setenv("KAFKA_CONSUMER_GROUP", "")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, "analysis_requests", cfg.KafkaTopic)
	require.Equal(t, "analysis_results", cfg.KafkaResultTopic)
	require.Equal(t, "analysis-worker", cfg.KafkaConsumer)
	require.Equal(t, 20000, cfg.DedupeCapacity)
	require.Equal(t, time.Hour, cfg.DedupeTTL)
	require.Equal(t, 10, cfg.QueueCapacity)
}

func TestLoadWorkerOverrides(t *testing.T) {
	noDotEnv(t)
	t.Setenv("KAFKA_BROKERS", "broker-a:29092,broker-b:29093")
	t.Setenv("KAFKA_TOPIC", "in")
	t.Setenv("KAFKA_RESULT_TOPIC", "out")
	t.Setenv("KAFKA_CONSUMER_GROUP", "custom-group")
	t.Setenv("WORKER_DEDUPE_CAPACITY", "5")
	t.Setenv("WORKER_DEDUPE_TTL", "48h")
	t.Setenv("WORKER_QUEUE_CAPACITY", "3")

	cfg, err := config.LoadWorker()
	require.NoError(t, err)

	require.Equal(t, []string{"broker-a:29092", "broker-b:29093"}, cfg.KafkaBrokers)
	require.Equal(t, "in", cfg.KafkaTopic)
	require.Equal(t, "out", cfg.KafkaResultTopic)
	require.Equal(t, "custom-group", cfg.KafkaConsumer)
	require.Equal(t, 5, cfg.DedupeCapacity)
	require.Equal(t, 48*time.Hour, cfg.DedupeTTL)
	require.Equal(t, 3, cfg.QueueCapacity)
}

func TestLoadWorkerRejectsSameTopics(t *testing.T) {
	noDotEnv(t)
	t.Setenv("KAFKA_TOPIC", "same")
	t.Setenv("KAFKA_RESULT_TOPIC", "same")

	_, err := config.LoadWorker()
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("BIASLENS_DOTENV_PROBE=from-file\nBIASLENS_DOTENV_KEEP=from-file\n"), 0o600))
	t.Setenv("DOTENV_PATH", path)
	t.Setenv("BIASLENS_DOTENV_KEEP", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("BIASLENS_DOTENV_PROBE") })

	require.NoError(t, config.LoadDotEnv())
	require.Equal(t, "from-file", os.Getenv("BIASLENS_DOTENV_PROBE"))
	require.Equal(t, "from-env", os.Getenv("BIASLENS_DOTENV_KEEP"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	noDotEnv(t)
	require.NoError(t, config.LoadDotEnv())
}
