package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/maltedev/amazon-product-scraper/internal/browser"
	"github.com/maltedev/amazon-product-scraper/internal/download"
	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, crawl, details *fakeRenderer, dir string, recorder Recorder) (*Service, *[]string) {
	t.Helper()
	var dirs []string
	svc, err := NewService(ServiceOptions{
		CrawlRenderer:   crawl,
		DetailsRenderer: details,
		NewDownloader: func(d string) download.Downloader {
			dirs = append(dirs, d)
			return newFakeDownloader()
		},
		OutputDir:     dir,
		RunScopedDirs: true,
		Recorder:      recorder,
	})
	require.NoError(t, err)
	return svc, &dirs
}

func TestNewServiceRequiresRenderers(t *testing.T) {
	_, err := NewService(ServiceOptions{CrawlRenderer: &fakeRenderer{}})
	assert.Error(t, err)
}

func TestServiceCrawl(t *testing.T) {
	dir := t.TempDir()
	recorder := newFakeRecorder()
	svc, dirs := newTestService(t, &fakeRenderer{html: productPage}, &fakeRenderer{}, dir, recorder)

	rec := svc.Crawl(context.Background(), "https://www.amazon.com/dp/B000TEST")

	require.NoError(t, rec.Err)
	assert.NotEmpty(t, rec.RunID)
	assert.Equal(t, "Widget", rec.Title.Value)
	assert.Equal(t, "300g", rec.Quantity.Value)

	runDir := filepath.Join(dir, rec.RunID)
	assert.Equal(t, []string{runDir}, *dirs)
	info, err := os.Stat(runDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, []bool{true}, recorder.crawls["crawl"])
}

func TestServiceCrawlRunsAreIsolated(t *testing.T) {
	svc, dirs := newTestService(t, &fakeRenderer{html: productPage}, &fakeRenderer{}, t.TempDir(), nil)

	first := svc.Crawl(context.Background(), "https://www.amazon.com/dp/B000TEST")
	second := svc.Crawl(context.Background(), "https://www.amazon.com/dp/B000TEST")

	assert.NotEqual(t, first.RunID, second.RunID)
	require.Len(t, *dirs, 2)
	assert.NotEqual(t, (*dirs)[0], (*dirs)[1])
}

func TestServiceCrawlNavigationFailure(t *testing.T) {
	navErr := fmt.Errorf("%w: https://www.amazon.com/dp/B000TEST: net::ERR_NAME_NOT_RESOLVED", browser.ErrNavigation)
	recorder := newFakeRecorder()
	dir := t.TempDir()
	svc, dirs := newTestService(t, &fakeRenderer{err: navErr}, &fakeRenderer{}, dir, recorder)

	rec := svc.Crawl(context.Background(), "https://www.amazon.com/dp/B000TEST")

	assert.ErrorIs(t, rec.Err, browser.ErrNavigation)
	for name, f := range rec.Fields() {
		assert.Equal(t, models.FieldNotAttempted, f.Status, name)
	}
	assert.Empty(t, rec.Images)
	assert.Empty(t, *dirs)

	flat := rec.Flatten()
	assert.Equal(t, "https://www.amazon.com/dp/B000TEST", flat["url"])
	assert.Nil(t, flat["title"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, []bool{false}, recorder.crawls["crawl"])
}

func TestServiceProductDirectDetails(t *testing.T) {
	details := &fakeRenderer{html: detailsPage}
	recorder := newFakeRecorder()
	svc, _ := newTestService(t, &fakeRenderer{}, details, t.TempDir(), recorder)

	got := svc.ProductDirectDetails(context.Background(), "https://www.amazon.com/dp/B000TEST")

	assert.Equal(t, 1, details.visits)
	assert.Equal(t, "Acme Foods", got["Manufacturer"])
	assert.Equal(t, "Red", got["Colour"])
	assert.Equal(t, []bool{true}, recorder.crawls["details"])
}

func TestServiceProductDirectDetailsFailure(t *testing.T) {
	svc, _ := newTestService(t, &fakeRenderer{}, &fakeRenderer{err: errors.New("browser crashed")}, t.TempDir(), nil)

	got := svc.ProductDirectDetails(context.Background(), "https://www.amazon.com/dp/B000TEST")

	assert.NotNil(t, got)
	assert.Empty(t, got)
}
