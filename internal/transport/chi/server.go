// Package chi is the HTTP transport: one search endpoint plus health and
// metrics.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/loomindex/loomindex/internal/domain"
	healthuc "github.com/loomindex/loomindex/internal/usecase/health"
)

// SearchService runs the query pipeline.
type SearchService interface {
	Search(ctx context.Context, rawQuery string, expand bool) (domain.SearchResponse, error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// Server holds the HTTP handlers.
type Server struct {
	search SearchService
	health HealthService
	logger *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(search SearchService, health HealthService, logger *zap.Logger) *Server {
	return &Server{search: search, health: health, logger: logger}
}

// Routes registers all endpoints on the router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/", s.handleRoot)
	r.Get("/search", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"message": "API is running"})
}

// handleSearch handles GET /search?query=...&expand=true|false.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter is required")
		return
	}

	expand := true
	if raw := r.URL.Query().Get("expand"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "expand must be a boolean")
			return
		}
		expand = parsed
	}

	resp, err := s.search.Search(r.Context(), query, expand)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "query must not be blank")
			return
		}
		s.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal Server Error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, Sanitize(searchPayload(resp)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// searchPayload renders the response as the generic structure the sanitizer
// walks. The item object carries all original catalog attributes.
func searchPayload(resp domain.SearchResponse) map[string]any {
	results := make([]any, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]any{
			"item":  r.Item.Attributes(),
			"score": r.Score,
		}
	}

	related := make([]any, len(resp.RelatedItems))
	for i, rel := range resp.RelatedItems {
		related[i] = map[string]any{
			"title":  rel.Title,
			"review": rel.Review,
		}
	}

	return map[string]any{
		"query":            resp.Query,
		"expanded_queries": resp.ExpandedQueries,
		"results":          results,
		"related_items":    related,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"code":    http.StatusText(status),
		"message": msg,
	})
}
