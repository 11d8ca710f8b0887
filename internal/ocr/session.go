package ocr

import (
	"context"
	"fmt"
	"sync"

	"github.com/adverant/nexus/ocrsum/internal/logging"
)

// session owns exactly one engine from creation to termination.
type session struct {
	engine  Engine
	logger  *logging.Logger
	release func()
}

// openSession creates an engine whose native statuses flow into status.
// The returned session must be released exactly once; release is idempotent.
func openSession(factory EngineFactory, status StatusFunc, logger *logging.Logger) (*session, error) {
	engine, err := factory(status)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if engine == nil {
		return nil, fmt.Errorf("engine factory returned no engine")
	}

	s := &session{engine: engine, logger: logger}
	var once sync.Once
	s.release = func() {
		once.Do(func() {
			if err := engine.Terminate(); err != nil {
				// Logged only; never replaces the call's own error.
				logger.Warn("Failed to terminate OCR engine", "error", err)
			}
		})
	}
	return s, nil
}

func (s *session) load(ctx context.Context, language string) error {
	if err := s.engine.Load(ctx, language); err != nil {
		return fmt.Errorf("failed to load language %q: %w", language, err)
	}
	return nil
}

func (s *session) configure(params Parameters) error {
	if err := s.engine.SetParameters(params); err != nil {
		return fmt.Errorf("failed to set parameters: %w", err)
	}
	return nil
}

func (s *session) recognize(ctx context.Context, image []byte) (*EngineOutput, error) {
	out, err := s.engine.Recognize(ctx, image)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("engine produced no output")
	}
	return out, nil
}
