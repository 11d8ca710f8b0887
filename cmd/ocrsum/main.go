/**
 * ocrsum - OCR and summarization service
 *
 * Commands:
 *   serve       HTTP API: image OCR, result history, text summarization
 *   recognize   OCR a single image from the command line
 *   summarize   summarize a text file (or stdin) through the inference API
 *
 * Configuration comes from the environment, optionally seeded from .env.
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/ocrsum/internal/config"
	"github.com/adverant/nexus/ocrsum/internal/logging"
)

func main() {
	var envFile string

	root := &cobra.Command{
		Use:           "ocrsum",
		Short:         "Recognize text in images and summarize it",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	load := func() (*config.Config, error) {
		cfg, err := config.Load(envFile)
		if err != nil {
			return nil, err
		}
		if err := logging.Configure(cfg.LogLevel, cfg.LogFormat); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	root.AddCommand(serveCmd(load))
	root.AddCommand(recognizeCmd(load))
	root.AddCommand(summarizeCmd(load))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)
