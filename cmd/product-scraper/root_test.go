package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	assert.Equal(t, "product-scraper", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Version)

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"crawl", "details", "serve"})
}

func TestCrawlCmdFlags(t *testing.T) {
	cmd := NewCrawlCmd()

	for _, name := range []string{"format", "engine", "output-dir", "concurrency"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "json", cmd.Flags().Lookup("format").DefValue)
}

func TestValidateURLs(t *testing.T) {
	assert.NoError(t, validateURLs([]string{"https://www.amazon.com/dp/B000TEST", "http://localhost:8080/p"}))
	assert.Error(t, validateURLs([]string{"www.amazon.com/dp/B000TEST"}))
	assert.Error(t, validateURLs([]string{"https://www.amazon.com/dp/B000TEST", "file:///etc/passwd"}))
}

func TestCrawlRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no url", []string{"crawl"}},
		{"relative url", []string{"crawl", "/dp/B000TEST"}},
		{"unknown format", []string{"crawl", "-f", "xml", "https://www.amazon.com/dp/B000TEST"}},
		{"unknown engine", []string{"crawl", "-e", "netscape", "https://www.amazon.com/dp/B000TEST"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			assert.Error(t, cmd.Execute())
		})
	}
}

func productServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/dp/B000TEST", func(w http.ResponseWriter, r *http.Request) {
		base := "http://" + r.Host
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><body>
<span id="productTitle"> Widget </span>
<span class="a-price"><span class="a-offscreen">$9.99</span></span>
<div id="feature-bullets"><ul><li><span class="a-list-item">Contains 250g</span></li></ul></div>
<table class="a-normal a-spacing-micro"><tr><td>Net Quantity</td><td>300g</td></tr></table>
<div id="detailBullets_feature_div"><ul>
  <li><span class="a-list-item"><span class="a-text-bold">ASIN &rlm; : &lrm;</span><span>B000TEST</span></span></li>
</ul></div>
<script>var data = {"colorImages":{"initial": [
  {"hiRes":"%[1]s/images/I/one.jpg"},
  {"hiRes":"%[1]s/images/I/two.jpg"},
  {"hiRes":"%[1]s/images/I/three.jpg"}
]}};</script>
</body></html>`, base)
	})
	mux.HandleFunc("/images/I/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCrawlCmdStaticEngine(t *testing.T) {
	srv := productServer(t)
	dir := t.TempDir()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"crawl", "-e", "static", "-o", dir, srv.URL + "/dp/B000TEST"})
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	var flat map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &flat))
	assert.Equal(t, "Widget", flat["title"])
	assert.Equal(t, "$9.99", flat["mrp"])
	assert.Equal(t, "300g", flat["quantity"])
	assert.Nil(t, flat["manufacturer"])

	images, ok := flat["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 3)
	for _, img := range images {
		path := img.(string)
		assert.True(t, strings.HasPrefix(path, dir), path)
		_, err := os.Stat(path)
		assert.NoError(t, err)
	}
	assert.Equal(t, "img1_one.jpg", filepath.Base(images[0].(string)))
}

func TestDetailsCmdStaticEngine(t *testing.T) {
	srv := productServer(t)

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"details", "-e", "static", "-f", "markdown", srv.URL + "/dp/B000TEST"})
	cmd.SetOut(&out)
	t.Setenv("DOWNLOAD_DIR", t.TempDir())
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "# Product Details")
	assert.Contains(t, out.String(), "B000TEST")
}

func TestCrawlCmdNavigationFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs([]string{"crawl", "-e", "static", "-o", t.TempDir(), srv.URL + "/dp/B000TEST"})
	cmd.SetOut(&out)

	err := cmd.Execute()
	assert.ErrorContains(t, err, "1 of 1 crawls failed")

	var flat map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &flat))
	assert.Nil(t, flat["title"])
}
