package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maltedev/amazon-product-scraper/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.Headless {
		t.Error("Expected headless to be true by default")
	}

	if opts.NavigationTimeout != 60*time.Second {
		t.Errorf("Expected navigation timeout to be 60s, got %v", opts.NavigationTimeout)
	}

	if opts.ViewportWidth != 1920 || opts.ViewportHeight != 1080 {
		t.Errorf("Expected viewport to be 1920x1080, got %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}

	if opts.Engine != EngineChromium {
		t.Errorf("Expected engine to be chromium, got %s", opts.Engine)
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		input    string
		expected Engine
		hasError bool
	}{
		{"chromium", EngineChromium, false},
		{" Firefox ", EngineFirefox, false},
		{"webkit", EngineWebKit, false},
		{"chromedp", EngineChromedp, false},
		{"static", EngineStatic, false},
		{"opera", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			engine, err := ParseEngine(tt.input)
			if tt.hasError {
				assert.ErrorIs(t, err, ErrUnsupportedEngine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, engine)
		})
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	_, err := New(&Options{Engine: "lynx"})
	assert.ErrorIs(t, err, ErrUnsupportedEngine)
}

func TestStaticRendererVisit(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><span id="productTitle">Widget</span></body></html>`))
	}))
	defer srv.Close()

	r, err := New(&Options{Engine: EngineStatic, UserAgent: BasicUserAgent})
	require.NoError(t, err)

	var title string
	err = r.Visit(context.Background(), srv.URL, func(p page.Page) error {
		el, err := p.QuerySelector("#productTitle")
		if err != nil {
			return err
		}
		require.NotNil(t, el)
		title, err = el.InnerText()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget", title)
	assert.Equal(t, BasicUserAgent, gotUA)
}

func TestStaticRendererNavigationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	r, err := New(&Options{Engine: EngineStatic})
	require.NoError(t, err)

	called := false
	err = r.Visit(context.Background(), srv.URL, func(page.Page) error {
		called = true
		return nil
	})
	assert.True(t, errors.Is(err, ErrNavigation))
	assert.False(t, called)
}
