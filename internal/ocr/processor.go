/**
 * OCR Processor - single entry point for text extraction
 *
 * Each call opens its own engine session, applies the caller's settings,
 * recognizes one image and terminates the session on every exit path.
 */

package ocr

import (
	"context"
	"fmt"
	"time"

	"github.com/adverant/nexus/ocrsum/internal/errors"
	"github.com/adverant/nexus/ocrsum/internal/logging"
	"github.com/adverant/nexus/ocrsum/internal/metrics"
)

// Recognition is the raw outcome of one call. Text is never nil-equivalent:
// an engine that found nothing yields "".
type Recognition struct {
	Text       string
	Confidence float64
	Duration   time.Duration
}

// Processor runs recognitions. It holds no per-call state and is safe for
// concurrent use.
type Processor struct {
	factory EngineFactory
	logger  *logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Processor
type Option func(*Processor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Processor) { p.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a processor backed by factory
func NewProcessor(factory EngineFactory, opts ...Option) (*Processor, error) {
	if factory == nil {
		return nil, fmt.Errorf("engine factory is required")
	}

	p := &Processor{
		factory: factory,
		logger:  logging.NewLogger("OCRProcessor"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process extracts text from image. onProgress may be nil. Any failure while
// creating, loading, configuring or running the engine is returned as an
// *errors.Error with code RECOGNITION_FAILED.
func (p *Processor) Process(ctx context.Context, image []byte, onProgress ProgressFunc, settings Settings) (*Recognition, error) {
	start := p.now()
	language := settings.language()

	rec, err := p.run(ctx, image, onProgress, settings, language, start)
	duration := p.now().Sub(start)

	if err != nil {
		p.logger.Error("OCR processing failed",
			"language", language,
			"duration", duration,
			"error", err)
		p.metrics.ObserveRecognition("failure", duration)
		return nil, errors.NewRecognitionError(err).
			WithDetail("language", language)
	}

	p.logger.Info("OCR processing complete",
		"language", language,
		"confidence", rec.Confidence,
		"textLength", len(rec.Text),
		"duration", rec.Duration)
	p.metrics.ObserveRecognition("success", duration)
	return rec, nil
}

func (p *Processor) run(ctx context.Context, image []byte, onProgress ProgressFunc, settings Settings, language string, start time.Time) (*Recognition, error) {
	tracker := newProgressTracker(onProgress)

	s, err := openSession(p.factory, tracker.status, p.logger)
	if err != nil {
		return nil, err
	}
	defer s.release()

	if err := s.load(ctx, language); err != nil {
		return nil, err
	}

	if err := s.configure(settings.Parameters()); err != nil {
		return nil, err
	}

	out, err := s.recognize(ctx, image)
	if err != nil {
		return nil, err
	}

	rec := &Recognition{
		Text:     out.Text,
		Duration: p.now().Sub(start),
	}
	if out.Confidence != nil {
		rec.Confidence = *out.Confidence
	}

	tracker.emit(100, fmt.Sprintf("Processing completed in %dms", rec.Duration.Milliseconds()))
	return rec, nil
}
