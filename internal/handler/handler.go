package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pricing-table-api/internal/auth"
	"pricing-table-api/internal/models"
	"pricing-table-api/internal/pricing"
	"pricing-table-api/internal/service"
	"pricing-table-api/internal/validation"
)

// Shortcode names accepted by the render endpoint. Both map to the identical
// render operation with the identical parameter contract.
var shortcodeAliases = map[string]bool{
	"dynamic_pricing_table": true,
	"pricing_table":         true,
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	jwtSecret   []byte
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	JWTSecret   []byte
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = DefaultHandlerOptions().MaxBodySize
	}
	return &Handler{
		service:     svc,
		jwtSecret:   opts.JWTSecret,
		maxBodySize: opts.MaxBodySize,
	}
}

// SaveProduct handles POST /products
func (h *Handler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.Product
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.Name = validation.SanitizeString(req.Name)
	for key, value := range req.Attributes {
		req.Attributes[key] = validation.SanitizeString(value)
	}

	if err := h.service.SaveProduct(r.Context(), req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusCreated, req)
}

// SaveRuleSets handles PUT /products/{product_id}/rule-sets
func (h *Handler) SaveRuleSets(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	if err != nil || productID <= 0 {
		h.respondError(w, http.StatusBadRequest, "product_id must be a positive integer")
		return
	}

	var req models.SaveRuleSetsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	ids, err := h.service.SaveRuleSets(r.Context(), productID, req.RuleSets)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, models.SaveRuleSetsResponse{
		ProductID:  productID,
		RuleSetIDs: ids,
	})
}

// GetPricingTable handles GET /products/{product_id}/pricing-table
//
// Responds with the structured row sequence; a product with nothing to show
// gets a 200 with an empty rows list, never an error.
func (h *Handler) GetPricingTable(w http.ResponseWriter, r *http.Request) {
	productID, _ := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)

	now, ok := h.resolveNow(w, r)
	if !ok {
		return
	}

	table, err := h.service.RenderTable(r.Context(), productID, h.viewer(r), now)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to render pricing table")
		return
	}

	h.respondJSON(w, http.StatusOK, table)
}

// RenderShortcode handles GET /shortcodes/{shortcode}
//
// Both shortcode aliases render the identical HTML fragment. product_id
// defaults to 0, which short-circuits to an empty fragment; resolving a
// contextual "current product" is the embedding page's concern.
func (h *Handler) RenderShortcode(w http.ResponseWriter, r *http.Request) {
	if !shortcodeAliases[chi.URLParam(r, "shortcode")] {
		http.NotFound(w, r)
		return
	}

	productID, _ := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)

	now, ok := h.resolveNow(w, r)
	if !ok {
		return
	}

	fragment, err := h.service.RenderTableHTML(r.Context(), productID, h.viewer(r), now)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to render pricing table")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fragment))
}

// viewer derives the audience from an optional Bearer token. No token, or a
// bad one, means the anonymous audience rather than a 401.
func (h *Handler) viewer(r *http.Request) pricing.Viewer {
	return auth.ViewerFromRequest(r, h.jwtSecret)
}

// resolveNow parses the optional 'now' query parameter, defaulting to the
// current time in the site location.
func (h *Handler) resolveNow(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	now := time.Now().In(h.service.Location())
	if nowParam := r.URL.Query().Get("now"); nowParam != "" {
		parsed, err := validation.ValidateTimeString(validation.SanitizeString(nowParam))
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid 'now' parameter, must be RFC3339 format")
			return time.Time{}, false
		}
		now = parsed.In(h.service.Location())
	}
	return now, true
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
