package ocr

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Result is a recognition as kept in history. Only Text (and the derived
// WordCount and Timestamp) change after creation, through ReplaceText.
type Result struct {
	ID               string    `json:"id"`
	Text             string    `json:"text"`
	Confidence       float64   `json:"confidence"`
	Timestamp        time.Time `json:"timestamp"`
	Language         string    `json:"language,omitempty"`
	WordCount        int       `json:"wordCount"`
	ProcessingTimeMs int64     `json:"processingTime"`
	Source           string    `json:"source,omitempty"`
}

// NewResult derives the caller-side values of a recognition.
func NewResult(rec *Recognition, settings Settings, source string) *Result {
	return &Result{
		ID:               uuid.New().String(),
		Text:             rec.Text,
		Confidence:       rec.Confidence,
		Timestamp:        time.Now(),
		Language:         settings.language(),
		WordCount:        CountWords(rec.Text),
		ProcessingTimeMs: rec.Duration.Milliseconds(),
		Source:           source,
	}
}

// ReplaceText applies a user edit.
func (r *Result) ReplaceText(text string) {
	r.Text = text
	r.WordCount = CountWords(text)
	r.Timestamp = time.Now()
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
