package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/amazon-product-scraper/internal/models"
	"github.com/maltedev/amazon-product-scraper/internal/report"
)

func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <url> [url...]",
		Short: "Extract product fields and images from product pages",
		Long: `Crawl renders each product page, extracts title, price, quantity,
manufacturer, country of origin and extra detail fields, and downloads up to
the configured minimum number of product images.

Examples:
  # Crawl one product and print JSON
  product-scraper crawl https://www.amazon.com/dp/B000000000

  # Markdown report, images under ./images, plain HTTP instead of a browser
  product-scraper crawl -f markdown -o ./images -e static https://www.amazon.com/dp/B000000000`,
		Args: cobra.MinimumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("format", "f", report.FormatJSON, "Output format: json or markdown")
	cmd.Flags().StringP("engine", "e", "", "Browser engine: chromium, firefox, webkit, chromedp or static")
	cmd.Flags().StringP("output-dir", "o", "", "Directory for downloaded images")
	cmd.Flags().IntP("concurrency", "j", 1, "Number of pages crawled at the same time")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	engine, _ := cmd.Flags().GetString("engine")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if err := validateURLs(args); err != nil {
		return err
	}
	w, err := report.NewWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a, err := newApp(cmd, overrides{crawlEngine: engine, outputDir: outputDir})
	if err != nil {
		return err
	}

	if concurrency < 1 {
		concurrency = 1
	}
	records := make([]*models.ProductRecord, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(concurrency)
	for i, u := range args {
		g.Go(func() error {
			records[i] = a.service.Crawl(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, rec := range records {
		if rec.Err != nil {
			failed++
		}
		if err := w.WriteProduct(rec); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d crawls failed", failed, len(records))
	}
	return nil
}
