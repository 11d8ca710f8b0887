package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/ocrsum/internal/summarize"
)

func summarizeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize <file|->",
		Short: "Summarize a text file, or stdin with -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			var text []byte
			if args[0] == "-" {
				text, err = io.ReadAll(cmd.InOrStdin())
			} else {
				text, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read text: %w", err)
			}
			if strings.TrimSpace(string(text)) == "" {
				return fmt.Errorf("nothing to summarize")
			}

			client, err := summarize.NewClient(summarize.ClientConfig{
				Endpoint:             cfg.HuggingFaceURL,
				Timeout:              cfg.UpstreamTimeout,
				DefaultWarmupSeconds: cfg.DefaultWarmupSecs,
			})
			if err != nil {
				return err
			}
			handler, err := summarize.NewHandler(summarize.HandlerConfig{
				Upstream:  client,
				Token:     cfg.HuggingFaceToken,
				MaxWarmup: cfg.MaxWarmupWait,
				Timeout:   cfg.SummarizeTimeout,
			})
			if err != nil {
				return err
			}

			payload, err := handler.Summarize(cmd.Context(), string(text))
			if err != nil {
				return err
			}

			var pretty interface{}
			if err := json.Unmarshal(payload, &pretty); err != nil {
				return err
			}
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
