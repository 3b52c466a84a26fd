package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/services"
	"github.com/schemalens/schemalens-engine/pkg/vectorindex"
)

// EmbeddingsStatusResponse combines index stats with the last successful run.
type EmbeddingsStatusResponse struct {
	EmbeddingsStatus vectorindex.Stats  `json:"embeddings_status"`
	ExtractionStatus *models.RunSummary `json:"extraction_status"`
}

// StatusHandler reports extraction and index state.
type StatusHandler struct {
	svc    services.ExtractionService
	index  vectorindex.Index
	logger *zap.Logger
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(svc services.ExtractionService, index vectorindex.Index, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{svc: svc, index: index, logger: logger}
}

// RegisterRoutes registers the status routes on the given mux.
func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/embeddings/status", h.EmbeddingsStatus)
}

// Status handles GET /api/v1/status.
// Returns the extraction run state verbatim.
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, h.svc.Status()); err != nil {
		h.logger.Error("Failed to encode status response", zap.Error(err))
	}
}

// EmbeddingsStatus handles GET /api/v1/embeddings/status.
// Index inspection never fails the request; failures surface inside the
// stats payload.
func (h *StatusHandler) EmbeddingsStatus(w http.ResponseWriter, r *http.Request) {
	response := EmbeddingsStatusResponse{
		EmbeddingsStatus: h.index.Stats(r.Context()),
		ExtractionStatus: h.svc.LastSuccess(),
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode embeddings status response", zap.Error(err))
	}
}
