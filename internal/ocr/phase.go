package ocr

import (
	"fmt"
	"math"
	"sync"
)

// Phase is one stage of an engine session as reported by the engine.
type Phase int

const (
	PhaseLoadingCore Phase = iota
	PhaseLoadingLanguage
	PhaseInitializing
	PhaseInitialized
	PhaseRecognizing
	// PhaseComplete is emitted by the processor, never by an engine.
	PhaseComplete
)

// Recognition occupies the last and largest share of the progress range.
const (
	recognitionStart = 40
	recognitionSpan  = 100 - recognitionStart
)

func (p Phase) String() string {
	switch p {
	case PhaseLoadingCore:
		return "loading core"
	case PhaseLoadingLanguage:
		return "loading language"
	case PhaseInitializing:
		return "initializing"
	case PhaseInitialized:
		return "initialized"
	case PhaseRecognizing:
		return "recognizing"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Progress maps a phase and its native progress (0..1, only meaningful for
// PhaseRecognizing) onto the 0..100 scale shown to users.
func (p Phase) Progress(native float64) (int, string) {
	switch p {
	case PhaseLoadingCore:
		return 10, "Loading OCR engine..."
	case PhaseLoadingLanguage:
		return 20, "Loading language data..."
	case PhaseInitializing:
		return 30, "Initializing OCR..."
	case PhaseInitialized:
		return recognitionStart, "OCR engine ready"
	case PhaseRecognizing:
		if math.IsNaN(native) || native < 0 {
			native = 0
		}
		if native > 1 {
			native = 1
		}
		return recognitionStart + int(math.Round(native*recognitionSpan)), "Recognizing text..."
	default:
		return 100, "Processing completed"
	}
}

// Status is a single native status event from an engine.
type Status struct {
	Phase    Phase
	Progress float64
}

// StatusFunc receives native status events for one engine session.
type StatusFunc func(Status)

// ProgressFunc receives normalized progress: percent in 0..100 and a
// human-readable phase label.
type ProgressFunc func(percent int, message string)

// progressTracker turns native statuses into a non-decreasing percent stream.
// Engines may emit phases out of their nominal order; a lower percent is
// raised to the highest one already delivered.
type progressTracker struct {
	mu   sync.Mutex
	sink ProgressFunc
	last int
}

func newProgressTracker(sink ProgressFunc) *progressTracker {
	return &progressTracker{sink: sink}
}

func (t *progressTracker) status(s Status) {
	percent, message := s.Phase.Progress(s.Progress)
	t.emit(percent, message)
}

func (t *progressTracker) emit(percent int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if percent < t.last {
		percent = t.last
	}
	t.last = percent
	if t.sink != nil {
		t.sink(percent, message)
	}
}
