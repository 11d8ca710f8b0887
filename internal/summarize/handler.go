/**
 * Summarize Handler - server-side proxy to the inference API
 *
 * Validates the request, calls the upstream model and, if the model is still
 * warming up, waits the reported time and retries exactly once.
 */

package summarize

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adverant/nexus/ocrsum/internal/errors"
	"github.com/adverant/nexus/ocrsum/internal/logging"
	"github.com/adverant/nexus/ocrsum/internal/metrics"
)

const (
	maxRequestSize = 5 << 20

	msgTextRequired     = "textToSummarize is required"
	msgTokenMissing     = "Hugging Face API token is not configured on the server."
	msgUnknown          = "An unknown error occurred"
	msgRetryFailedLabel = "Model still loading or another error occurred: "
)

// Querier is the upstream the handler talks to; *Client implements it.
type Querier interface {
	Query(ctx context.Context, token, text string) (Outcome, error)
}

// Request is the inbound wire body
type Request struct {
	TextToSummarize string `json:"textToSummarize"`
}

// Handler serves POST requests carrying text to summarize. It keeps no state
// between requests.
type Handler struct {
	upstream  Querier
	token     string
	maxWarmup time.Duration
	timeout   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// HandlerConfig holds handler configuration
type HandlerConfig struct {
	Upstream Querier
	// Token is the API credential; empty means misconfigured.
	Token string
	// MaxWarmup caps the wait suggested by a cold start.
	MaxWarmup time.Duration
	// Timeout bounds the whole attempt, wait, retry sequence.
	Timeout time.Duration
	Metrics *metrics.Metrics
	// Sleep replaces the context-aware wait, for tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewHandler creates a new summarize handler
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Upstream == nil {
		return nil, fmt.Errorf("upstream is required")
	}

	h := &Handler{
		upstream:  cfg.Upstream,
		token:     cfg.Token,
		maxWarmup: cfg.MaxWarmup,
		timeout:   cfg.Timeout,
		sleep:     cfg.Sleep,
		metrics:   cfg.Metrics,
		logger:    logging.NewLogger("SummarizeHandler"),
	}
	if h.maxWarmup <= 0 {
		h.maxWarmup = 60 * time.Second
	}
	if h.timeout <= 0 {
		h.timeout = 3 * time.Minute
	}
	if h.sleep == nil {
		h.sleep = sleepContext
	}
	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, errors.NewMethodNotAllowedError())
		return
	}

	var req Request
	body := http.MaxBytesReader(w, r.Body, maxRequestSize)
	if err := json.NewDecoder(body).Decode(&req); err != nil || req.TextToSummarize == "" {
		h.writeError(w, errors.NewValidationError(msgTextRequired))
		return
	}

	payload, err := h.Summarize(r.Context(), req.TextToSummarize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.metrics.SummarizeResponse(strconv.Itoa(http.StatusOK))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// Summarize runs the attempt, wait, retry sequence and returns the upstream
// payload verbatim. Errors are *errors.Error.
func (h *Handler) Summarize(ctx context.Context, text string) (json.RawMessage, error) {
	if h.token == "" {
		return nil, errors.NewConfigurationError(msgTokenMissing)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	first, err := h.query(ctx, text)
	if err != nil {
		return nil, errors.NewUpstreamError(err.Error(), err)
	}

	switch o := first.(type) {
	case *Success:
		return o.Payload, nil
	case *Failure:
		return nil, errors.NewUpstreamError(o.Message, nil)
	case *ColdStart:
		return h.retryAfterWarmup(ctx, text, o)
	default:
		return nil, errors.NewUpstreamError(msgUnknown, nil)
	}
}

func (h *Handler) retryAfterWarmup(ctx context.Context, text string, cold *ColdStart) (json.RawMessage, error) {
	wait := warmupDuration(cold.EstimatedSeconds, h.maxWarmup)
	h.metrics.ColdStart()
	h.logger.Info("Model is loading, waiting before retry",
		"estimatedSeconds", cold.EstimatedSeconds,
		"wait", wait)

	if err := h.sleep(ctx, wait); err != nil {
		return nil, errors.NewUpstreamError(
			fmt.Sprintf("summarization timed out while waiting for the model to load: %v", err), err)
	}

	second, err := h.query(ctx, text)
	if err != nil {
		return nil, errors.NewUpstreamError(err.Error(), err)
	}

	switch o := second.(type) {
	case *Success:
		return o.Payload, nil
	case *ColdStart:
		return nil, errors.NewUpstreamError(msgRetryFailedLabel+o.Message, nil)
	case *Failure:
		return nil, errors.NewUpstreamError(msgRetryFailedLabel+o.Message, nil)
	default:
		return nil, errors.NewUpstreamError(msgUnknown, nil)
	}
}

func (h *Handler) query(ctx context.Context, text string) (Outcome, error) {
	outcome, err := h.upstream.Query(ctx, h.token, text)
	if err != nil {
		h.metrics.UpstreamCall("error")
		return nil, err
	}
	if outcome == nil {
		h.metrics.UpstreamCall("error")
		return nil, stderrors.New(msgUnknown)
	}
	h.metrics.UpstreamCall(outcomeName(outcome))
	return outcome, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := errors.StatusOf(err)
	msg := err.Error()
	if msg == "" {
		msg = msgUnknown
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Summarize request failed", "status", status, "error", msg)
	}
	h.metrics.SummarizeResponse(strconv.Itoa(status))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// warmupDuration converts the upstream estimate to a wait, capped at max.
func warmupDuration(seconds float64, max time.Duration) time.Duration {
	if seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds * float64(time.Second))
	if d > max || d < 0 {
		return max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
