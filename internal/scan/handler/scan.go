// Package handler exposes the scan service over HTTP.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nazifia/pharmpos-backend/internal/scan/resolver"
	"github.com/nazifia/pharmpos-backend/internal/scan/service"
	"github.com/nazifia/pharmpos-backend/pkg/errors"
	"github.com/nazifia/pharmpos-backend/pkg/httputil"
	"github.com/nazifia/pharmpos-backend/pkg/logger"
)

// ScanHandler handles barcode scan endpoints
type ScanHandler struct {
	service *service.ScanService
	logger  *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(svc *service.ScanService, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		service: svc,
		logger:  log,
	}
}

// RegisterRoutes mounts the scan endpoints on the router.
func (h *ScanHandler) RegisterRoutes(r chi.Router) {
	r.Route("/scan", func(r chi.Router) {
		r.Post("/lookup", h.Lookup)
		r.Get("/parse", h.Parse)
		r.Get("/search-terms", h.SearchTerms)
	})
}

// LookupRequest is the scan lookup request body
type LookupRequest struct {
	Barcode string `json:"barcode" validate:"required,max=200"`
	Mode    string `json:"mode" validate:"required,oneof=retail wholesale"`
}

// Lookup resolves a scanned barcode against the catalog for the requested
// mode. A NotFound outcome is a 404 whose body still carries the parse
// diagnostics and search terms, so POS terminals can offer manual search.
func (h *ScanHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	result, err := h.service.Lookup(r.Context(), req.Barcode, resolver.Mode(req.Mode))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == resolver.OutcomeNotFound {
		status = http.StatusNotFound
	}
	httputil.JSON(w, status, result)
}

// Parse returns the parser's view of a barcode without a catalog lookup.
func (h *ScanHandler) Parse(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		httputil.Error(w, errors.BadRequest("barcode query parameter is required"))
		return
	}

	parsed, err := h.service.Parse(barcode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, parsed)
}

// SearchTerms returns manual-search suggestions for a barcode.
func (h *ScanHandler) SearchTerms(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		httputil.Error(w, errors.BadRequest("barcode query parameter is required"))
		return
	}

	terms, err := h.service.SearchTerms(barcode)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"barcode":      barcode,
		"search_terms": terms,
	})
}
