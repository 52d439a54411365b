package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/scraper"
)

type Handlers struct {
	crawler scraper.Crawler
	logger  *slog.Logger
}

func NewHandlers(crawler scraper.Crawler, logger *slog.Logger) *Handlers {
	return &Handlers{
		crawler: crawler,
		logger:  logger.With("component", "api"),
	}
}

// ProductRequest names the product page to visit.
type ProductRequest struct {
	URL string `json:"url"`
}

// CrawlResponse wraps the flat product record with per-field outcomes.
type CrawlResponse struct {
	RunID       string                        `json:"run_id"`
	Product     *models.ProductRecord         `json:"product"`
	Fields      map[string]models.FieldStatus `json:"fields"`
	ImageReport models.ImageReport            `json:"image_report"`
	Error       string                        `json:"error,omitempty"`
}

type DetailsResponse struct {
	URL     string           `json:"url"`
	Details models.DetailMap `json:"details"`
}

// Crawl handles single product page crawls. A page that cannot be opened
// still answers 200 with an error message and an empty record.
func (h *Handlers) Crawl(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	rec := h.crawler.Crawl(r.Context(), req.URL)

	resp := CrawlResponse{
		RunID:       rec.RunID,
		Product:     rec,
		Fields:      make(map[string]models.FieldStatus),
		ImageReport: rec.ImageReport,
	}
	for name, f := range rec.Fields() {
		resp.Fields[name] = f.Status
	}
	if rec.Err != nil {
		h.logger.Error("crawl failed", "url", req.URL, "error", rec.Err)
		resp.Error = rec.Err.Error()
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) Details(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	details := h.crawler.ProductDirectDetails(r.Context(), req.URL)
	h.respondJSON(w, http.StatusOK, DetailsResponse{URL: req.URL, Details: details})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) decodeRequest(w http.ResponseWriter, r *http.Request) (ProductRequest, bool) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return req, false
	}

	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.respondError(w, http.StatusBadRequest, "url must be an absolute http(s) URL")
		return req, false
	}
	return req, true
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
