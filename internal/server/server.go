/**
 * HTTP Server for ocrsum
 *
 * Routes:
 *   POST /api/ocr                       recognize an uploaded image
 *   POST /api/summarize                 proxy to the summarization model
 *   GET  /api/results                   recent results, newest first
 *   GET  /api/results/{id}              one result
 *   PUT  /api/results/{id}/text         replace the text of a result
 *   POST /api/results/{id}/replace      find/replace in the text of a result
 *   GET  /api/results/{id}/analytics    reading statistics
 *   GET  /api/results/{id}/download     text as a file
 *   GET  /health, GET /metrics
 */

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adverant/nexus/ocrsum/internal/errors"
	"github.com/adverant/nexus/ocrsum/internal/history"
	"github.com/adverant/nexus/ocrsum/internal/logging"
	"github.com/adverant/nexus/ocrsum/internal/metrics"
	"github.com/adverant/nexus/ocrsum/internal/ocr"
)

// Recognizer runs one OCR call; *ocr.Processor implements it.
type Recognizer interface {
	Process(ctx context.Context, image []byte, onProgress ocr.ProgressFunc, settings ocr.Settings) (*ocr.Recognition, error)
}

// Server wires the HTTP surface to the OCR processor, summarizer and history
type Server struct {
	recognizer   Recognizer
	summarizer   http.Handler
	history      history.Store
	metrics      *metrics.Metrics
	maxImageSize int64
	logger       *logging.Logger

	router     *mux.Router
	httpServer *http.Server
}

// Config holds server configuration
type Config struct {
	Addr         string
	Recognizer   Recognizer
	Summarizer   http.Handler
	History      history.Store
	Metrics      *metrics.Metrics
	MaxImageSize int64
}

// New creates a server and registers its routes
func New(cfg *Config) (*Server, error) {
	if cfg.Recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}
	if cfg.Summarizer == nil {
		return nil, fmt.Errorf("summarizer is required")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("history store is required")
	}

	s := &Server{
		recognizer:   cfg.Recognizer,
		summarizer:   cfg.Summarizer,
		history:      cfg.History,
		metrics:      cfg.Metrics,
		maxImageSize: cfg.MaxImageSize,
		logger:       logging.NewLogger("HTTPServer"),
		router:       mux.NewRouter(),
	}
	if s.maxImageSize <= 0 {
		s.maxImageSize = 20 << 20
	}

	s.routes()

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	// The summarize handler answers other methods itself with a JSON 405.
	api.Handle("/summarize", s.summarizer)
	api.HandleFunc("/ocr", s.handleOCR).Methods(http.MethodPost)

	results := api.PathPrefix("/results").Subrouter()
	results.HandleFunc("", s.handleListResults).Methods(http.MethodGet)
	results.HandleFunc("/{id}", s.handleGetResult).Methods(http.MethodGet)
	results.HandleFunc("/{id}/text", s.handleUpdateText).Methods(http.MethodPut)
	results.HandleFunc("/{id}/replace", s.handleReplace).Methods(http.MethodPost)
	results.HandleFunc("/{id}/analytics", s.handleAnalytics).Methods(http.MethodGet)
	results.HandleFunc("/{id}/download", s.handleDownload).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.NewMethodNotAllowedError())
	})
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, errors.NewNotFoundError("route", r.URL.Path))
	})
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.StatusOf(err), map[string]string{"error": err.Error()})
}
