package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/ocrsum/internal/history"
	"github.com/adverant/nexus/ocrsum/internal/logging"
	"github.com/adverant/nexus/ocrsum/internal/metrics"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
	"github.com/adverant/nexus/ocrsum/internal/ocr/tesseract"
	"github.com/adverant/nexus/ocrsum/internal/server"
	"github.com/adverant/nexus/ocrsum/internal/summarize"
)

func serveCmd(load configLoader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}

			logger := logging.NewLogger("Main")
			logger.Info("ocrsum starting...",
				"addr", cfg.HTTPAddr,
				"history", cfg.HistoryBackend,
				"historyLimit", cfg.HistoryLimit)
			if cfg.HuggingFaceToken == "" {
				logger.Warn("HUGGINGFACE_API_TOKEN is not set; /api/summarize will report a configuration error")
			}

			m := metrics.New()

			proc, err := ocr.NewProcessor(
				tesseract.NewFactory(tesseract.Config{TessdataPrefix: cfg.TessdataPrefix}),
				ocr.WithMetrics(m),
			)
			if err != nil {
				return err
			}

			client, err := summarize.NewClient(summarize.ClientConfig{
				Endpoint:             cfg.HuggingFaceURL,
				Timeout:              cfg.UpstreamTimeout,
				DefaultWarmupSeconds: cfg.DefaultWarmupSecs,
			})
			if err != nil {
				return err
			}
			summarizer, err := summarize.NewHandler(summarize.HandlerConfig{
				Upstream:  client,
				Token:     cfg.HuggingFaceToken,
				MaxWarmup: cfg.MaxWarmupWait,
				Timeout:   cfg.SummarizeTimeout,
				Metrics:   m,
			})
			if err != nil {
				return err
			}

			store, err := history.New(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			srv, err := server.New(&server.Config{
				Addr:         cfg.HTTPAddr,
				Recognizer:   proc,
				Summarizer:   summarizer,
				History:      store,
				Metrics:      m,
				MaxImageSize: cfg.MaxImageSize,
			})
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			// Setup graceful shutdown
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigChan:
				logger.Info("Received signal, initiating graceful shutdown...", "signal", sig.String())
			}

			// The summarize deadline bounds the longest request in flight.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.SummarizeTimeout+5*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("Error stopping HTTP server", "error", err)
				return err
			}

			logger.Info("Shutdown complete")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
