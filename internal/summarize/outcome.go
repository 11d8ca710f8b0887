package summarize

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// coldStartMarker is how the inference API says the model is still warming up.
const coldStartMarker = "is currently loading"

// Outcome is the classified result of one inference call: exactly one of
// *Success, *ColdStart or *Failure.
type Outcome interface {
	outcome()
}

// Success carries the upstream payload untouched.
type Success struct {
	Payload json.RawMessage
}

// ColdStart means the model is loading and suggests how long to wait.
type ColdStart struct {
	Message          string
	EstimatedSeconds float64
}

// Failure is any upstream-reported error other than a cold start.
type Failure struct {
	Message string
}

func (*Success) outcome()   {}
func (*ColdStart) outcome() {}
func (*Failure) outcome()   {}

type errorBody struct {
	Error         json.RawMessage `json:"error"`
	EstimatedTime *float64        `json:"estimated_time"`
}

// classify decides the outcome of a response once. defaultWait is used when
// a cold start carries no positive estimate.
func classify(status int, body []byte, defaultWait float64) (Outcome, error) {
	if !json.Valid(body) {
		return nil, fmt.Errorf("invalid JSON from summarization API (status %d): %s", status, truncate(body, 200))
	}

	var eb errorBody
	// Arrays and scalars are never error bodies.
	if err := json.Unmarshal(body, &eb); err == nil {
		if msg := errorMessage(eb.Error); msg != "" {
			if strings.Contains(msg, coldStartMarker) {
				wait := defaultWait
				if eb.EstimatedTime != nil && *eb.EstimatedTime > 0 {
					wait = *eb.EstimatedTime
				}
				return &ColdStart{Message: msg, EstimatedSeconds: wait}, nil
			}
			return &Failure{Message: msg}, nil
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return &Failure{Message: fmt.Sprintf("summarization API returned status %d", status)}, nil
	}

	return &Success{Payload: json.RawMessage(body)}, nil
}

// errorMessage flattens the "error" field, which is normally a string but
// occasionally a list of strings.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}

	return string(raw)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
