package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/maltedev/amazon-product-scraper/internal/report"
)

func NewDetailsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "details <url>",
		Short: "List every labelled product detail of a product page",
		Args:  cobra.ExactArgs(1),
		RunE:  runDetailsCmd,
	}

	cmd.Flags().StringP("format", "f", report.FormatJSON, "Output format: json or markdown")
	cmd.Flags().StringP("engine", "e", "", "Browser engine: chromium, firefox, webkit, chromedp or static")

	return cmd
}

func runDetailsCmd(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	engine, _ := cmd.Flags().GetString("engine")

	if err := validateURLs(args); err != nil {
		return err
	}
	w, err := report.NewWriter(format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	a, err := newApp(cmd, overrides{detailsEngine: engine})
	if err != nil {
		return err
	}

	details := a.service.ProductDirectDetails(cmd.Context(), args[0])
	return w.WriteDetails(args[0], details)
}

func validateURLs(args []string) error {
	for _, raw := range args {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid product URL %q: must be an absolute http(s) URL", raw)
		}
	}
	return nil
}
