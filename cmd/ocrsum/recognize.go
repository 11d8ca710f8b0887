package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/ocrsum/internal/analytics"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
	"github.com/adverant/nexus/ocrsum/internal/ocr/tesseract"
)

func recognizeCmd(load configLoader) *cobra.Command {
	var (
		settings   = ocr.DefaultSettings()
		preprocess bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "recognize <image>",
		Short: "Recognize the text of an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			image, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			if int64(len(image)) > cfg.MaxImageSize {
				return fmt.Errorf("image exceeds the %d byte limit", cfg.MaxImageSize)
			}
			if preprocess {
				if image, err = ocr.Preprocess(image); err != nil {
					return fmt.Errorf("failed to preprocess image: %w", err)
				}
			}

			proc, err := ocr.NewProcessor(tesseract.NewFactory(tesseract.Config{TessdataPrefix: cfg.TessdataPrefix}))
			if err != nil {
				return err
			}

			stderr := cmd.ErrOrStderr()
			onProgress := func(percent int, message string) {
				if !quiet {
					fmt.Fprintf(stderr, "[%3d%%] %s\n", percent, message)
				}
			}

			rec, err := proc.Process(cmd.Context(), image, onProgress, settings)
			if err != nil {
				return err
			}

			if !quiet {
				fmt.Fprintf(stderr, "confidence %.1f (%s), %d words\n",
					rec.Confidence, analytics.ConfidenceLabel(rec.Confidence), ocr.CountWords(rec.Text))
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&settings.Language, "lang", "l", settings.Language, "Tesseract language(s), e.g. eng or eng+deu")
	cmd.Flags().IntVar(&settings.PageSegMode, "psm", settings.PageSegMode, "page segmentation mode")
	cmd.Flags().IntVar(&settings.EngineMode, "oem", settings.EngineMode, "OCR engine mode")
	cmd.Flags().StringVar(&settings.Whitelist, "whitelist", "", "only recognize these characters")
	cmd.Flags().StringVar(&settings.Blacklist, "blacklist", "", "never recognize these characters")
	cmd.Flags().BoolVar(&preprocess, "preprocess", false, "grayscale and boost contrast before recognition")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the recognized text")
	return cmd
}
