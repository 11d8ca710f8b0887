/**
 * Tesseract engine - local OCR through gosseract
 *
 * One gosseract client per engine session. Tesseract initializes lazily on
 * first recognition, so the loading phases are reported around the calls
 * that configure the client.
 */

package tesseract

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/ocrsum/internal/ocr"
)

// Engine implements ocr.Engine on a single gosseract client
type Engine struct {
	client *gosseract.Client
	status ocr.StatusFunc
	// configPath is the per-session config file carrying init-only
	// variables; removed by Terminate.
	configPath string
}

// Config holds Tesseract configuration
type Config struct {
	// TessdataPrefix overrides the directory holding *.traineddata files.
	TessdataPrefix string
}

// NewFactory returns an ocr.EngineFactory creating one client per session.
func NewFactory(cfg Config) ocr.EngineFactory {
	return func(status ocr.StatusFunc) (ocr.Engine, error) {
		return NewEngine(cfg, status)
	}
}

// NewEngine creates a Tesseract engine session
func NewEngine(cfg Config, status ocr.StatusFunc) (*Engine, error) {
	if status == nil {
		status = func(ocr.Status) {}
	}

	status(ocr.Status{Phase: ocr.PhaseLoadingCore})
	client := gosseract.NewClient()

	if cfg.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(cfg.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata prefix: %w", err)
		}
	}

	return &Engine{client: client, status: status}, nil
}

// Load selects the recognition language(s)
func (e *Engine) Load(ctx context.Context, language string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.status(ocr.Status{Phase: ocr.PhaseLoadingLanguage})
	if err := e.client.SetLanguage(splitLanguages(language)...); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}

	e.status(ocr.Status{Phase: ocr.PhaseInitializing})
	e.status(ocr.Status{Phase: ocr.PhaseInitialized})
	return nil
}

// SetParameters applies engine variables. Character sets are handed to
// Tesseract as-is.
func (e *Engine) SetParameters(params ocr.Parameters) error {
	if err := e.client.SetPageSegMode(gosseract.PageSegMode(params.PageSegMode)); err != nil {
		return fmt.Errorf("failed to set page segmentation mode: %w", err)
	}

	// Init-only: Tesseract reads the engine mode from the config file.
	if err := e.writeConfig(params.EngineMode); err != nil {
		return err
	}

	vars := map[string]string{}
	if params.PreserveInterwordSpaces {
		vars["preserve_interword_spaces"] = "1"
	}
	if params.Whitelist != "" {
		vars["tessedit_char_whitelist"] = params.Whitelist
	}
	if params.Blacklist != "" {
		vars["tessedit_char_blacklist"] = params.Blacklist
	}

	for k, v := range vars {
		if err := e.client.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return fmt.Errorf("failed to set variable %s: %w", k, err)
		}
	}
	return nil
}

// Recognize performs OCR on an encoded image (PNG, JPEG, TIFF, ...)
func (e *Engine) Recognize(ctx context.Context, image []byte) (*ocr.EngineOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.client.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	e.status(ocr.Status{Phase: ocr.PhaseRecognizing, Progress: 0})
	text, err := e.client.Text()
	if err != nil {
		return nil, fmt.Errorf("tesseract OCR failed: %w", err)
	}

	var confidence *float64
	if boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		confidence = meanConfidence(boxes)
	}
	e.status(ocr.Status{Phase: ocr.PhaseRecognizing, Progress: 1})

	return &ocr.EngineOutput{
		Text:       text,
		Confidence: confidence,
	}, nil
}

// Terminate closes the gosseract client and removes the session config file
func (e *Engine) Terminate() error {
	err := e.client.Close()
	if e.configPath != "" {
		if rmErr := os.Remove(e.configPath); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = fmt.Errorf("failed to remove tesseract config: %w", rmErr)
		}
		e.configPath = ""
	}
	return err
}

// writeConfig (re)writes the session config file with the engine mode and
// points the client at it.
func (e *Engine) writeConfig(engineMode int) error {
	if e.configPath == "" {
		f, err := os.CreateTemp("", "ocrsum-tesseract-*.cfg")
		if err != nil {
			return fmt.Errorf("failed to create tesseract config: %w", err)
		}
		e.configPath = f.Name()
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to create tesseract config: %w", err)
		}
	}

	content := "tessedit_ocr_engine_mode " + strconv.Itoa(engineMode) + "\n"
	if err := os.WriteFile(e.configPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write tesseract config: %w", err)
	}
	if err := e.client.SetConfigFile(e.configPath); err != nil {
		return fmt.Errorf("failed to set tesseract config: %w", err)
	}
	return nil
}

// splitLanguages accepts Tesseract's "eng+fra" form as well as commas.
func splitLanguages(language string) []string {
	fields := strings.FieldsFunc(language, func(r rune) bool {
		return r == '+' || r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return []string{"eng"}
	}
	return fields
}

// meanConfidence averages word confidences on Tesseract's 0-100 scale.
func meanConfidence(boxes []gosseract.BoundingBox) *float64 {
	if len(boxes) == 0 {
		return nil
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	mean := sum / float64(len(boxes))
	return &mean
}
