/**
 * Inference API Client - abstractive summarization
 *
 * Sends {"inputs": text} to a hosted summarization model and classifies the
 * reply into Success, ColdStart or Failure.
 */

package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adverant/nexus/ocrsum/internal/logging"
)

// maxResponseSize bounds how much of an upstream reply is read.
const maxResponseSize = 10 << 20

// Client handles communication with the inference API
type Client struct {
	endpoint    string
	httpClient  *http.Client
	defaultWait float64
	logger      *logging.Logger
}

// ClientConfig holds client configuration
type ClientConfig struct {
	Endpoint string
	Timeout  time.Duration
	// DefaultWarmupSeconds applies when a cold start reports no estimate.
	DefaultWarmupSeconds float64
	HTTPClient           *http.Client
}

type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// NewClient creates a new inference API client
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	defaultWait := cfg.DefaultWarmupSeconds
	if defaultWait <= 0 {
		defaultWait = 20
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		httpClient:  httpClient,
		defaultWait: defaultWait,
		logger:      logging.NewLogger("InferenceClient"),
	}, nil
}

// Query sends one summarization request. The error return is reserved for
// transport and decoding failures; upstream-reported errors come back as an
// Outcome.
func (c *Client) Query(ctx context.Context, token, text string) (Outcome, error) {
	reqBody, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to summarization API failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	outcome, err := classify(resp.StatusCode, body, c.defaultWait)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Summarization API replied",
		"status", resp.StatusCode,
		"outcome", outcomeName(outcome),
		"inputLength", len(text),
		"latency", time.Since(started))

	return outcome, nil
}

func outcomeName(o Outcome) string {
	switch o.(type) {
	case *Success:
		return "success"
	case *ColdStart:
		return "cold_start"
	case *Failure:
		return "failure"
	default:
		return "unknown"
	}
}
