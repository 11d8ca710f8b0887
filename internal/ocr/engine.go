package ocr

import "context"

// Parameters is the recognition parameter set applied to an engine session.
// Whitelist and Blacklist are independent and passed through unvalidated.
type Parameters struct {
	EngineMode              int
	PageSegMode             int
	PreserveInterwordSpaces bool
	Whitelist               string
	Blacklist               string
}

// EngineOutput is what an engine returns for one image. Confidence is nil
// when the engine could not score the output.
type EngineOutput struct {
	Text       string
	Confidence *float64
}

// Engine is a single OCR engine session. Implementations are not required to
// be safe for concurrent use; the processor never shares one across calls.
type Engine interface {
	// Load prepares the engine for language, which may be a "+"-joined list.
	Load(ctx context.Context, language string) error
	SetParameters(params Parameters) error
	Recognize(ctx context.Context, image []byte) (*EngineOutput, error)
	// Terminate releases every resource held by the session.
	Terminate() error
}

// EngineFactory creates a fresh engine that reports its native statuses to
// status for the lifetime of the session.
type EngineFactory func(status StatusFunc) (Engine, error)
