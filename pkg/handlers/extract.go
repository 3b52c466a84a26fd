package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens-engine/pkg/apperrors"
	"github.com/schemalens/schemalens-engine/pkg/config"
	"github.com/schemalens/schemalens-engine/pkg/models"
	"github.com/schemalens/schemalens-engine/pkg/services"
)

// ExtractResponse acknowledges a queued extraction run.
type ExtractResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Scope   string `json:"scope"`
}

// ExtractHandler triggers background metadata extraction runs.
type ExtractHandler struct {
	cfg    *config.Config
	svc    services.ExtractionService
	logger *zap.Logger
}

// NewExtractHandler creates a new ExtractHandler.
func NewExtractHandler(cfg *config.Config, svc services.ExtractionService, logger *zap.Logger) *ExtractHandler {
	return &ExtractHandler{cfg: cfg, svc: svc, logger: logger}
}

// RegisterRoutes registers the extraction routes on the given mux.
func (h *ExtractHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/extract/{source}", h.Extract)
}

// Extract handles POST /api/v1/extract/{source}.
// The call acknowledges immediately; the run itself happens off the
// request/response path.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	sourceType, scope, ok := h.resolveSource(w, r)
	if !ok {
		return
	}

	forceRefresh := false
	if raw := r.URL.Query().Get("force_refresh"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_force_refresh", "force_refresh must be a boolean")
			return
		}
		forceRefresh = parsed
	}

	if err := h.svc.Trigger(sourceType, scope, forceRefresh); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrExtractionRunning):
			h.writeError(w, http.StatusConflict, "extraction_running", err.Error())
		case errors.Is(err, apperrors.ErrSourceNotConfigured):
			h.writeError(w, http.StatusBadRequest, "source_not_configured", err.Error())
		default:
			h.logger.Error("Failed to trigger extraction", zap.Error(err))
			h.writeError(w, http.StatusInternalServerError, "extraction_failed", err.Error())
		}
		return
	}

	if err := WriteJSON(w, http.StatusAccepted, ExtractResponse{
		Message: "Extraction started",
		Status:  "running",
		Scope:   scope,
	}); err != nil {
		h.logger.Error("Failed to encode extract response", zap.Error(err))
	}
}

// resolveSource maps the path segment onto a source type and resolves the
// scope from source-specific query parameters with configured defaults.
func (h *ExtractHandler) resolveSource(w http.ResponseWriter, r *http.Request) (models.SourceType, string, bool) {
	switch r.PathValue("source") {
	case "bigquery":
		if !h.cfg.BigQuery.Configured() {
			h.writeError(w, http.StatusBadRequest, "source_not_configured",
				"BigQuery connection settings are not configured")
			return "", "", false
		}
		scope := r.URL.Query().Get("project_id")
		if scope == "" {
			scope = h.cfg.BigQuery.ProjectID
		}
		return models.SourceTypeWarehouse, scope, true

	case "postgres":
		if !h.cfg.Postgres.Configured() {
			h.writeError(w, http.StatusBadRequest, "source_not_configured",
				"PostgreSQL connection settings are not configured")
			return "", "", false
		}
		scope := r.URL.Query().Get("schema")
		if scope == "" {
			scope = "public"
		}
		return models.SourceTypeRelational, scope, true

	default:
		h.writeError(w, http.StatusBadRequest, "unknown_source",
			"source must be one of: bigquery, postgres")
		return "", "", false
	}
}

func (h *ExtractHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
