package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/maltedev/amazon-product-scraper/internal/api"
)

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve crawl and details over HTTP",
		Long: `Serve starts the HTTP API:

  POST /api/v1/crawl    {"url": "..."}
  POST /api/v1/details  {"url": "..."}
  GET  /health
  GET  /metrics`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("port", "p", "", "Listen port, overrides SERVER_PORT")
	cmd.Flags().StringSlice("cors-origin", nil, "Allowed CORS origins")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	port, _ := cmd.Flags().GetString("port")
	origins, _ := cmd.Flags().GetStringSlice("cors-origin")

	a, err := newApp(cmd, overrides{port: port})
	if err != nil {
		return err
	}
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handlers := api.NewHandlers(a.service, logger)
	server := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(handlers, api.RouterOptions{
			RequestTimeout: cfg.Server.RequestTimeout,
			AllowedOrigins: origins,
			Metrics:        a.metrics,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		return err
	}
	logger.Info("server stopped")
	return nil
}
