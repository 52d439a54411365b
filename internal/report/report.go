// Package report renders crawl results for the command line.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"

	"github.com/maltedev/amazon-product-scraper/internal/models"
)

const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Writer renders a crawl or details result to its output.
type Writer interface {
	WriteProduct(rec *models.ProductRecord) error
	WriteDetails(url string, details models.DetailMap) error
}

func NewWriter(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(format) {
	case FormatJSON, "":
		return NewJSONWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// JSONWriter writes the flat record view, the same shape the HTTP API
// returns.
type JSONWriter struct {
	output io.Writer
}

func NewJSONWriter(output io.Writer) *JSONWriter {
	return &JSONWriter{output: output}
}

func (w *JSONWriter) WriteProduct(rec *models.ProductRecord) error {
	return w.encode(rec)
}

func (w *JSONWriter) WriteDetails(_ string, details models.DetailMap) error {
	return w.encode(details)
}

func (w *JSONWriter) encode(v any) error {
	enc := json.NewEncoder(w.output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

type MarkdownWriter struct {
	output io.Writer
}

func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

func (w *MarkdownWriter) WriteProduct(rec *models.ProductRecord) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Product Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", rec.URL},
			{"Run", orDash(rec.RunID)},
			{"Scraped At", rec.ScrapedAt.Format(time.RFC3339)},
			{"Status", status(rec)},
		},
	})
	md.PlainText("")

	if rec.Err != nil {
		md.Cautionf("The page could not be opened: %v", rec.Err)
		md.PlainText("")
	}

	md.H2("Fields")
	md.PlainText("")
	names := []string{"title", "mrp", "quantity", "manufacturer", "origin"}
	fields := rec.Fields()
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		f := fields[name]
		rows = append(rows, []string{name, orDash(f.Value), string(f.Status), orDash(f.Source)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value", "Status", "Source"},
		Rows:   rows,
	})
	md.PlainText("")

	md.H2("Images")
	md.PlainText("")
	if len(rec.Images) == 0 {
		md.PlainText("No images downloaded.")
	} else {
		md.BulletList(rec.Images...)
	}
	md.PlainText("")

	if len(rec.ImageReport.Tiers) > 0 {
		md.H2("Image Tiers")
		md.PlainText("")
		tierRows := make([][]string, 0, len(rec.ImageReport.Tiers))
		for _, t := range rec.ImageReport.Tiers {
			tierRows = append(tierRows, []string{
				t.Name,
				strconv.FormatBool(t.Attempted),
				strconv.Itoa(t.Found),
				strconv.Itoa(t.Saved),
				orDash(t.Error),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Tier", "Attempted", "Found", "Saved", "Error"},
			Rows:   tierRows,
		})
		md.PlainText("")
	}

	if len(rec.Extra) > 0 {
		md.H2("Additional Details")
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Label", "Value"},
			Rows:   sortedRows(rec.Extra),
		})
		md.PlainText("")
	}

	return md.Build()
}

func (w *MarkdownWriter) WriteDetails(url string, details models.DetailMap) error {
	md := markdown.NewMarkdown(w.output)

	md.H1("Product Details")
	md.PlainText("")
	md.PlainText(url)
	md.PlainText("")

	if len(details) == 0 {
		md.Note("No product details found.")
		md.PlainText("")
		return md.Build()
	}

	md.Table(markdown.TableSet{
		Header: []string{"Label", "Value"},
		Rows:   sortedRows(details),
	})
	md.PlainText("")

	return md.Build()
}

func status(rec *models.ProductRecord) string {
	if rec.Err != nil {
		return "Failed"
	}
	return "Complete"
}

func sortedRows(m map[string]string) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, m[k]})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
