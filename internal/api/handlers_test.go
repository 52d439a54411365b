package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-product-scraper/internal/metrics"
	"github.com/maltedev/amazon-product-scraper/internal/models"
)

type fakeCrawler struct {
	mu      sync.Mutex
	urls    []string
	failNav bool
}

func (f *fakeCrawler) Crawl(_ context.Context, url string) *models.ProductRecord {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()

	rec := models.NewProductRecord(url)
	rec.RunID = "run-1"
	if f.failNav {
		rec.Err = errors.New("navigation failed")
		return rec
	}
	rec.Title.Set("Widget", "#productTitle")
	rec.MRP.Miss()
	rec.Extra["Brand"] = "Acme"
	return rec
}

func (f *fakeCrawler) ProductDirectDetails(_ context.Context, url string) models.DetailMap {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	f.mu.Unlock()
	return models.DetailMap{"ASIN": "B000TEST"}
}

func newTestRouter(c *fakeCrawler) http.Handler {
	h := NewHandlers(c, slog.Default())
	return NewRouter(h, RouterOptions{Metrics: metrics.New(prometheus.NewRegistry())})
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCrawlEndpoint(t *testing.T) {
	c := &fakeCrawler{}
	rec := post(t, newTestRouter(c), "/api/v1/crawl", `{"url":"https://www.amazon.com/dp/B000TEST"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		RunID   string            `json:"run_id"`
		Product map[string]any    `json:"product"`
		Fields  map[string]string `json:"fields"`
		Error   string            `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "Widget", resp.Product["title"])
	assert.Equal(t, "Acme", resp.Product["Brand"])
	assert.Nil(t, resp.Product["mrp"])
	assert.Equal(t, "missing", resp.Fields["mrp"])
	assert.Equal(t, "not_attempted", resp.Fields["origin"])
	assert.Empty(t, resp.Error)
	assert.Equal(t, []string{"https://www.amazon.com/dp/B000TEST"}, c.urls)
}

func TestCrawlEndpointNavigationFailure(t *testing.T) {
	rec := post(t, newTestRouter(&fakeCrawler{failNav: true}), "/api/v1/crawl", `{"url":"https://www.amazon.com/dp/B000TEST"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "navigation failed", resp["error"])
}

func TestDetailsEndpoint(t *testing.T) {
	rec := post(t, newTestRouter(&fakeCrawler{}), "/api/v1/details", `{"url":"https://www.amazon.com/dp/B000TEST"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://www.amazon.com/dp/B000TEST","details":{"ASIN":"B000TEST"}}`, rec.Body.String())
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"url":`},
		{"missing url", `{}`},
		{"relative url", `{"url":"/dp/B000TEST"}`},
		{"unsupported scheme", `{"url":"ftp://www.amazon.com/dp/B000TEST"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &fakeCrawler{}
			h := newTestRouter(c)
			for _, path := range []string{"/api/v1/crawl", "/api/v1/details"} {
				rec := post(t, h, path, tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, path)
			}
			assert.Empty(t, c.urls)
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(&fakeCrawler{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `product_scraper_http_requests_total{code="200",method="GET",route="/health"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&fakeCrawler{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/crawl", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
