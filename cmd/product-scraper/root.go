package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product-scraper",
		Short: "Extract product data from product pages",
		Long: `product-scraper renders a product page in a headless browser and extracts
title, price, quantity, manufacturer, origin, images and detail fields.

Configuration is read from --config, ./.product-scraper.yaml or the XDG
config directory, and environment variables override file values.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewDetailsCmd())
	cmd.AddCommand(NewServeCmd())

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
