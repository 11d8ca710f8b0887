package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/adverant/nexus/ocrsum/internal/analytics"
	"github.com/adverant/nexus/ocrsum/internal/errors"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
)

// ProgressEvent is one entry of the progress trail returned with a result.
type ProgressEvent struct {
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

// OCRResponse is the body of a successful POST /api/ocr.
type OCRResponse struct {
	Result          *ocr.Result     `json:"result"`
	ConfidenceLabel string          `json:"confidenceLabel"`
	Progress        []ProgressEvent `json:"progress"`
}

type ocrJSONRequest struct {
	Image      string        `json:"image"`
	Settings   *ocr.Settings `json:"settings,omitempty"`
	Preprocess bool          `json:"preprocess"`
}

// ocrInput is an upload after transport decoding.
type ocrInput struct {
	image      []byte
	settings   ocr.Settings
	preprocess bool
	source     string
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImageSize+(1<<20))

	input, err := s.readOCRInput(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if input.preprocess {
		processed, err := ocr.Preprocess(input.image)
		if err != nil {
			writeError(w, errors.NewValidationError("could not preprocess image: "+err.Error()))
			return
		}
		input.image = processed
	}

	var (
		mu    sync.Mutex
		trail []ProgressEvent
	)
	onProgress := func(percent int, message string) {
		mu.Lock()
		trail = append(trail, ProgressEvent{Percent: percent, Message: message})
		mu.Unlock()
	}

	rec, err := s.recognizer.Process(r.Context(), input.image, onProgress, input.settings)
	if err != nil {
		s.logger.Error("Recognition failed", "source", input.source, "error", err)
		writeError(w, err)
		return
	}

	result := ocr.NewResult(rec, input.settings, input.source)
	if err := s.history.Add(r.Context(), result); err != nil {
		// History is best effort.
		s.logger.Warn("Failed to record result in history", "id", result.ID, "error", err)
	}

	s.logger.Info("Recognition completed",
		"id", result.ID,
		"words", result.WordCount,
		"confidence", result.Confidence,
		"durationMs", result.ProcessingTimeMs)

	mu.Lock()
	events := append([]ProgressEvent(nil), trail...)
	mu.Unlock()

	writeJSON(w, http.StatusOK, OCRResponse{
		Result:          result,
		ConfidenceLabel: analytics.ConfidenceLabel(result.Confidence),
		Progress:        events,
	})
}

func (s *Server) readOCRInput(r *http.Request) (*ocrInput, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return s.readMultipart(r)
	case "application/json":
		return s.readJSON(r)
	default:
		return nil, errors.NewValidationError("expected multipart/form-data or application/json body")
	}
}

func (s *Server) readMultipart(r *http.Request) (*ocrInput, error) {
	if err := r.ParseMultipartForm(s.maxImageSize); err != nil {
		return nil, errors.NewValidationError("invalid multipart body: " + err.Error())
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, errors.NewValidationError("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxImageSize+1))
	if err != nil {
		return nil, errors.NewValidationError("could not read image: " + err.Error())
	}
	if err := s.checkImage(data); err != nil {
		return nil, err
	}

	settings := ocr.DefaultSettings()
	if v := strings.TrimSpace(r.FormValue("language")); v != "" {
		settings.Language = v
	}
	if settings.PageSegMode, err = formInt(r, "pageSegMode", settings.PageSegMode); err != nil {
		return nil, err
	}
	if settings.EngineMode, err = formInt(r, "ocrEngineMode", settings.EngineMode); err != nil {
		return nil, err
	}
	settings.Whitelist = r.FormValue("whitelist")
	settings.Blacklist = r.FormValue("blacklist")

	preprocess, _ := strconv.ParseBool(r.FormValue("preprocess"))

	return &ocrInput{
		image:      data,
		settings:   settings,
		preprocess: preprocess,
		source:     header.Filename,
	}, nil
}

func (s *Server) readJSON(r *http.Request) (*ocrInput, error) {
	// Fields missing from settings keep their defaults.
	defaults := ocr.DefaultSettings()
	req := ocrJSONRequest{Settings: &defaults}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.NewValidationError("invalid JSON body: " + err.Error())
	}
	if strings.TrimSpace(req.Image) == "" {
		return nil, errors.NewValidationError("image is required")
	}

	data, mediaType, err := ocr.DecodeDataURL(req.Image)
	if err != nil {
		return nil, errors.NewValidationError("image must be a data URL: " + err.Error())
	}
	if err := s.checkImage(data); err != nil {
		return nil, err
	}

	settings := ocr.DefaultSettings()
	if req.Settings != nil {
		settings = *req.Settings
	}

	return &ocrInput{
		image:      data,
		settings:   settings,
		preprocess: req.Preprocess,
		source:     mediaType,
	}, nil
}

func (s *Server) checkImage(data []byte) error {
	if len(data) == 0 {
		return errors.NewValidationError("image is empty")
	}
	if int64(len(data)) > s.maxImageSize {
		return errors.NewValidationError(fmt.Sprintf("image exceeds the %d byte limit", s.maxImageSize)).
			WithDetail("size", len(data))
	}
	return nil
}

func formInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.NewValidationError(key + " must be an integer")
	}
	return n, nil
}
