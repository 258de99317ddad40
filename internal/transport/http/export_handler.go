package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"seriesframe/internal/config"
	apperrors "seriesframe/internal/errors"
	"seriesframe/internal/indicators"
	"seriesframe/internal/middleware"
	api "seriesframe/pkg/contracts/api/v1"
)

// contentTypes maps export file extensions to media types
var contentTypes = map[string]string{
	".csv":   "text/csv; charset=utf-8",
	".xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".arrow": "application/vnd.apache.arrow.stream",
	".json":  "application/json",
}

// ExportHandler serves export runs and their files
type ExportHandler struct {
	service      ExportServiceInterface
	validator    *middleware.Validator
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(service ExportServiceInterface, validator *middleware.Validator, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		service:      service,
		validator:    validator,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("component", "export_handler")),
	}
}

// Routes returns the export routes, mounted at config.ExportsEndpoint
func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateExport)
	r.Get("/{id}/{kind}", h.DownloadFile)
	return r
}

// CreateExport handles POST /api/v1/exports
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	var req api.ExportRequest
	if err := h.validator.DecodeJSON(w, r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Run(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := result.Response
	resp.Files = make(map[string]string, len(result.Paths))
	for kind := range result.Paths {
		resp.Files[kind] = fmt.Sprintf("%s/%s/%s", config.ExportsEndpoint, resp.ID, kind)
	}

	h.logger.InfoContext(r.Context(), "export created",
		slog.String("export_id", resp.ID),
		slog.Int("rows", resp.Rows))

	w.Header().Set("Location", resp.Files["data"])
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// DownloadFile handles GET /api/v1/exports/{id}/{kind}
func (h *ExportHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	kind := chi.URLParam(r, "kind")

	path, err := h.service.ResolveFile(id, kind)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	ext := filepath.Ext(path)
	if ct, ok := contentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+"_"+kind+ext))
	http.ServeFile(w, r, path)
}

// ListIndicators handles GET /api/v1/indicators
func (h *ExportHandler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	names := append(indicators.Names(), indicators.BarNames()...)
	names = append(names, "forward_fill")
	sort.Strings(names)
	render.JSON(w, r, map[string]interface{}{"indicators": names})
}
