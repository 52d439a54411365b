package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

func sampleRecord() *models.ProductRecord {
	rec := models.NewProductRecord("https://www.amazon.com/dp/B000TEST")
	rec.RunID = "run-1"
	rec.Title.Set("Widget", "#productTitle")
	rec.MRP.Set("$9.99", "span.a-price span.a-offscreen")
	rec.Quantity.Set("300g", "details_table")
	rec.Manufacturer.Miss()
	rec.Origin.Miss()
	rec.Images = []string{"temp/run-1/popover1_a.jpg"}
	rec.Extra["Net Quantity"] = "300g"
	rec.ImageReport.Tiers = []models.TierResult{
		{Name: "popover", Attempted: true, Found: 1, Saved: 1},
		{Name: "embedded", Attempted: true, Error: "embedded image data marker not found"},
	}
	return rec
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter("json", &buf)
	require.NoError(t, err)
	assert.IsType(t, &JSONWriter{}, w)

	w, err = NewWriter("Markdown", &buf)
	require.NoError(t, err)
	assert.IsType(t, &MarkdownWriter{}, w)

	_, err = NewWriter("xml", &buf)
	assert.Error(t, err)
}

func TestJSONWriterProduct(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONWriter(&buf).WriteProduct(sampleRecord()))

	var flat map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &flat))
	assert.Equal(t, "Widget", flat["title"])
	assert.Equal(t, "300g", flat["Net Quantity"])
	assert.Nil(t, flat["manufacturer"])
	assert.Contains(t, flat, "origin")
}

func TestJSONWriterDetails(t *testing.T) {
	var buf bytes.Buffer
	details := models.DetailMap{"ASIN": "B000TEST"}
	require.NoError(t, NewJSONWriter(&buf).WriteDetails("https://www.amazon.com/dp/B000TEST", details))

	assert.JSONEq(t, `{"ASIN":"B000TEST"}`, buf.String())
}

func TestMarkdownWriterProduct(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownWriter(&buf).WriteProduct(sampleRecord()))

	out := buf.String()
	assert.Contains(t, out, "# Product Report")
	assert.Contains(t, out, "Widget")
	assert.Contains(t, out, "## Image Tiers")
	assert.Contains(t, out, "popover1_a.jpg")
	assert.Contains(t, out, "Net Quantity")
	assert.Contains(t, out, "Complete")
}

func TestMarkdownWriterFailedProduct(t *testing.T) {
	rec := models.NewProductRecord("https://www.amazon.com/dp/B000TEST")
	rec.Err = errors.New("navigation failed")

	var buf bytes.Buffer
	require.NoError(t, NewMarkdownWriter(&buf).WriteProduct(rec))

	out := buf.String()
	assert.Contains(t, out, "Failed")
	assert.Contains(t, out, "navigation failed")
	assert.Contains(t, out, "No images downloaded.")
	assert.Contains(t, out, "not_attempted")
}

func TestMarkdownWriterDetails(t *testing.T) {
	var buf bytes.Buffer
	details := models.DetailMap{"Colour": "Red", "ASIN": "B000TEST"}
	require.NoError(t, NewMarkdownWriter(&buf).WriteDetails("https://www.amazon.com/dp/B000TEST", details))

	out := buf.String()
	assert.Contains(t, out, "# Product Details")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ASIN")), bytes.Index(buf.Bytes(), []byte("Colour")))
}

func TestMarkdownWriterEmptyDetails(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewMarkdownWriter(&buf).WriteDetails("https://www.amazon.com/dp/B000TEST", models.DetailMap{}))

	assert.Contains(t, buf.String(), "No product details found.")
}
