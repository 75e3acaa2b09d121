package newsapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DeafMist/biaslens/internal/models"
	"github.com/DeafMist/biaslens/internal/newsapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "status": "ok",
  "totalResults": 2,
  "articles": [
    {
      "source": {"id": "cnn", "name": "CNN"},
      "author": null,
      "title": "Senate passes bill",
      "description": "Lawmakers voted.",
      "url": "https://www.cnn.com/politics/story",
      "urlToImage": null,
      "publishedAt": "2024-05-01T10:00:00Z",
      "content": null
    },
    {
      "source": {"id": null, "name": "Wire"},
      "title": "Markets calm",
      "url": "notaurl"
    }
  ]
}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "election", q.Get("q"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "key", q.Get("apiKey"))
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	client := newsapi.NewClient(srv.URL+"/v2/everything", "key", "en", srv.Client())
	articles, err := client.Search(context.Background(), "election")
	require.NoError(t, err)
	require.Len(t, articles, 2)

	require.Equal(t, models.RawArticle{
		Source:      models.RawSource{ID: "cnn", Name: "CNN"},
		Title:       "Senate passes bill",
		Description: "Lawmakers voted.",
		URL:         "https://www.cnn.com/politics/story",
		PublishedAt: "2024-05-01T10:00:00Z",
	}, articles[0])
	require.Equal(t, "Wire", articles[1].Source.Name)
	require.Equal(t, "", articles[1].Content)
}

func TestSearchNoArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","totalResults":0}`))
	}))
	defer srv.Close()

	articles, err := newsapi.NewClient(srv.URL, "key", "en", nil).Search(context.Background(), "x")
	require.NoError(t, err)
	require.NotNil(t, articles)
	require.Empty(t, articles)
}

func TestSearchUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	_, err := newsapi.NewClient(srv.URL, "bad", "en", nil).Search(context.Background(), "x")

	var upstream *models.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.Equal(t, http.StatusUnauthorized, upstream.Status)
	require.JSONEq(t, `{"status":"error","code":"apiKeyInvalid"}`, string(upstream.Details))
}

func TestUpstreamFailureWithPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newsapi.NewClient(srv.URL, "key", "", nil).Raw(context.Background(), "x")

	var upstream *models.UpstreamError
	require.True(t, errors.As(err, &upstream))
	require.JSONEq(t, `"bad gateway"`, string(upstream.Details))
}

func TestRaw(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	raw, err := newsapi.NewClient(srv.URL, "key", "en", nil).Raw(context.Background(), "x")
	require.NoError(t, err)
	require.JSONEq(t, sample, string(raw))
}
