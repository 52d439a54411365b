package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/maltedev/amazon-product-scraper/internal/page"
)

const colorImagesMarker = `"colorImages":{"initial":`

// ImageDataSource yields high resolution image URLs from structured data
// that accompanies a product page.
type ImageDataSource interface {
	HiResURLs(ctx context.Context, p page.Page) ([]string, error)
}

// BracketScanSource finds the image array that follows Marker in the raw
// markup by counting brackets, then decodes it as JSON.
type BracketScanSource struct {
	Marker string
}

func NewBracketScanSource() *BracketScanSource {
	return &BracketScanSource{Marker: colorImagesMarker}
}

func (s *BracketScanSource) HiResURLs(_ context.Context, p page.Page) ([]string, error) {
	content, err := p.Content()
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}

	raw, err := ExtractBalancedArray(content, s.Marker)
	if err != nil {
		return nil, err
	}

	var entries []map[string]any
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode embedded image data: %w", err)
	}

	var urls []string
	for _, entry := range entries {
		if hiRes, ok := entry["hiRes"].(string); ok && hiRes != "" {
			urls = append(urls, hiRes)
		}
	}
	return urls, nil
}

// ExtractBalancedArray returns the "[...]" text that directly follows
// marker. Brackets are counted textually; string contents are not parsed.
func ExtractBalancedArray(content, marker string) (string, error) {
	idx := strings.Index(content, marker)
	if idx == -1 {
		return "", ErrMarkerNotFound
	}

	rest := content[idx+len(marker):]
	start := len(rest) - len(strings.TrimLeft(rest, " \t\r\n"))
	if start >= len(rest) || rest[start] != '[' {
		return "", ErrUnbalancedArray
	}

	depth := 0
	for i := start; i < len(rest); i++ {
		switch rest[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return rest[start : i+1], nil
			}
		}
	}
	return "", ErrUnbalancedArray
}
