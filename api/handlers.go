package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DeafMist/biaslens/internal/analysis"
	"github.com/DeafMist/biaslens/internal/models"
)

const maxBodyBytes = 1 << 20

// service is the subset of the orchestrator the handlers call.
type service interface {
	AnalyzeArticle(ctx context.Context, in models.ArticleInput) (models.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, articles []map[string]any) ([]map[string]any, error)
	SearchAndAnalyze(ctx context.Context, query string) ([]models.ListingArticle, error)
	RawSearch(ctx context.Context, query string) (json.RawMessage, error)
	DetectBias(rawURL string) models.BiasLabel
	DetectBiasText(ctx context.Context, f models.TextFields) (models.ContentBias, error)
	Translate(ctx context.Context, text, lang string) (string, error)
}

// readinessChecker is implemented by news sources that can report whether
// they are able to serve searches.
type readinessChecker interface {
	Ready(ctx context.Context) error
}

type server struct {
	log   *slog.Logger
	svc   service
	ready readinessChecker
}

type errorResponse struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

func newRouter(s *server, origins []string, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Get("/", s.handleListing)
		r.Get("/news", s.handleRawSearch)
		r.Get("/search", s.handleRawSearch)
		r.Post("/bias", s.handleBias)
		r.Post("/detect-bias-text", s.handleBiasText)
		r.HandleFunc("/analyze", s.handleAnalyze)
		r.Post("/analyze/batch", s.handleBatch)
		r.Post("/translate", s.handleTranslate)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := s.ready.Ready(ctx); err != nil {
			s.log.Warn("news source not ready", slog.Any("err", err))
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *server) handleListing(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		query = strings.TrimSpace(r.URL.Query().Get("query"))
	}
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"articles": []models.ListingArticle{},
			"error":    "No query provided",
		})
		return
	}

	articles, err := s.svc.SearchAndAnalyze(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

func (s *server) handleRawSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Query parameter 'q' is required"})
		return
	}

	raw, err := s.svc.RawSearch(r.Context(), query)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, raw)
}

func (s *server) handleBias(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.BiasLabel{"bias": s.svc.DetectBias(req.URL)})
}

func (s *server) handleBiasText(w http.ResponseWriter, r *http.Request) {
	var req models.TextFields
	if !s.decode(w, r, &req) {
		return
	}

	pred, err := s.svc.DetectBiasText(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]models.ContentBias{"bias": pred})
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request"})
		return
	}

	var req models.ArticleInput
	if !s.decode(w, r, &req) {
		return
	}

	result, err := s.svc.AnalyzeArticle(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Articles json.RawMessage `json:"articles"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	// Anything other than a list of objects is rejected like an empty list.
	var articles []map[string]any
	if len(req.Articles) > 0 {
		if err := json.Unmarshal(req.Articles, &articles); err != nil {
			s.fail(w, r, analysis.ErrEmptyBatch)
			return
		}
	}

	results, err := s.svc.AnalyzeBatch(r.Context(), articles)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string `json:"text"`
		TargetLang string `json:"target_lang"`
	}
	if !s.decode(w, r, &req) {
		return
	}

	translated, err := s.svc.Translate(r.Context(), req.Text, req.TargetLang)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"translated_text": translated})
}

// decode reads a JSON body into v and answers 400 when it cannot.
func (s *server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, err error) {
	if analysis.IsClientError(err) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	s.log.Error("request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("err", err),
	)

	var upstream *models.UpstreamError
	if errors.As(err, &upstream) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "News API failed", Details: upstream.Details})
		return
	}

	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
