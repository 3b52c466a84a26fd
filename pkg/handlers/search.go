package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/services"
)

// DefaultTopK is the number of results returned when top_k is omitted.
const DefaultTopK = 10

// SearchResponse carries the matched columns for a search query.
type SearchResponse struct {
	Results []models.Column `json:"results"`
	Total   int             `json:"total"`
	Query   string          `json:"query"`
}

// SearchHandler answers semantic search requests over indexed columns.
type SearchHandler struct {
	svc    services.SearchService
	logger *zap.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(svc services.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers the search route on the given mux.
func (h *SearchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/search", h.Search)
}

// Search handles POST /api/v1/search.
// Query parameters: query (required free text), top_k (integer in [1,100],
// default 10). Searching before any successful extraction is a 400.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	topK := DefaultTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_top_k", "top_k must be an integer")
			return
		}
		topK = parsed
	}

	results, err := h.svc.Search(r.Context(), query, topK)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			h.writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error())
		case errors.Is(err, apperrors.ErrNotIndexed):
			h.writeError(w, http.StatusBadRequest, "not_indexed",
				"No metadata has been extracted yet. Please run extraction first.")
		default:
			h.logger.Error("Search failed", zap.String("query", query), zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "search_failed", err.Error())
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Total:   len(results),
		Query:   query,
	}); err != nil {
		h.logger.Error("Failed to encode search response", zap.Error(err))
	}
}

func (h *SearchHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
