package summarize

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream is a scripted inference API: each call pops the next reply.
type upstream struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	bodies  []string
	auth    []string
}

func (u *upstream) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

func (u *upstream) request(i int) (body, auth string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.bodies[i], u.auth[i]
}

type reply struct {
	status int
	body   string
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	b, _ := io.ReadAll(r.Body)
	u.bodies = append(u.bodies, string(b))
	u.auth = append(u.auth, r.Header.Get("Authorization"))

	rep := reply{status: http.StatusInternalServerError, body: `{"error":"unexpected call"}`}
	if u.calls < len(u.replies) {
		rep = u.replies[u.calls]
	}
	u.calls++

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	io.WriteString(w, rep.body)
}

type harness struct {
	upstream *upstream
	handler  *Handler
	slept    []time.Duration
}

func newHarness(t *testing.T, token string, replies ...reply) *harness {
	t.Helper()

	u := &upstream{replies: replies}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{Endpoint: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	h := &harness{upstream: u}
	h.handler, err = NewHandler(HandlerConfig{
		Upstream:  client,
		Token:     token,
		MaxWarmup: 30 * time.Second,
		Timeout:   time.Minute,
		Sleep: func(ctx context.Context, d time.Duration) error {
			h.slept = append(h.slept, d)
			return nil
		},
	})
	require.NoError(t, err)
	return h
}

func (h *harness) do(method, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/summarize", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHandler_HappyPath(t *testing.T) {
	h := newHarness(t, "hf_token", reply{http.StatusOK, `[{"summary_text":"Short summary."}]`})

	rec := h.do(http.MethodPost, `{"textToSummarize":"Long article body..."}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"summary_text":"Short summary."}]`, rec.Body.String())
	assert.Equal(t, 1, h.upstream.count())
	body, auth := h.upstream.request(0)
	assert.JSONEq(t, `{"inputs":"Long article body..."}`, body)
	assert.Equal(t, "Bearer hf_token", auth)
	assert.Empty(t, h.slept)
}

func TestHandler_ColdStartRetriesOnce(t *testing.T) {
	h := newHarness(t, "hf_token",
		reply{http.StatusServiceUnavailable, `{"error":"Model X is currently loading","estimated_time":5}`},
		reply{http.StatusOK, `[{"summary_text":"OK"}]`},
	)

	rec := h.do(http.MethodPost, `{"textToSummarize":"text"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"summary_text":"OK"}]`, rec.Body.String())
	assert.Equal(t, 2, h.upstream.count())
	assert.Equal(t, []time.Duration{5 * time.Second}, h.slept)
	first, _ := h.upstream.request(0)
	second, _ := h.upstream.request(1)
	assert.Equal(t, first, second)
}

func TestHandler_ColdStartDefaultsWait(t *testing.T) {
	h := newHarness(t, "hf_token",
		reply{http.StatusServiceUnavailable, `{"error":"Model X is currently loading"}`},
		reply{http.StatusOK, `[{"summary_text":"OK"}]`},
	)

	rec := h.do(http.MethodPost, `{"textToSummarize":"text"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []time.Duration{20 * time.Second}, h.slept)
}

func TestHandler_ColdStartWaitIsCapped(t *testing.T) {
	h := newHarness(t, "hf_token",
		reply{http.StatusServiceUnavailable, `{"error":"Model X is currently loading","estimated_time":86400}`},
		reply{http.StatusOK, `[{"summary_text":"OK"}]`},
	)

	rec := h.do(http.MethodPost, `{"textToSummarize":"text"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []time.Duration{30 * time.Second}, h.slept)
}

func TestHandler_StillLoadingAfterRetry(t *testing.T) {
	h := newHarness(t, "hf_token",
		reply{http.StatusServiceUnavailable, `{"error":"Model X is currently loading","estimated_time":1}`},
		reply{http.StatusServiceUnavailable, `{"error":"Model X is currently loading","estimated_time":1}`},
		reply{http.StatusOK, `[{"summary_text":"never"}]`},
	)

	rec := h.do(http.MethodPost, `{"textToSummarize":"text"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Model still loading or another error occurred: Model X is currently loading", errorOf(t, rec))
	assert.Equal(t, 2, h.upstream.count())
}

func TestHandler_NoRetryOnOtherErrors(t *testing.T) {
	h := newHarness(t, "hf_token",
		reply{http.StatusBadRequest, `{"error":"Input is too long"}`},
		reply{http.StatusOK, `[{"summary_text":"never"}]`},
	)

	rec := h.do(http.MethodPost, `{"textToSummarize":"text"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Input is too long", errorOf(t, rec))
	assert.Equal(t, 1, h.upstream.count())
	assert.Empty(t, h.slept)
}

func TestHandler_ValidationShortCircuits(t *testing.T) {
	for name, body := range map[string]string{
		"absent":     `{}`,
		"empty":      `{"textToSummarize":""}`,
		"malformed":  `{"textToSummarize":`,
		"wrong type": `{"textToSummarize":42}`,
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, "hf_token", reply{http.StatusOK, `[]`})

			rec := h.do(http.MethodPost, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "textToSummarize is required", errorOf(t, rec))
			assert.Equal(t, 0, h.upstream.count())
		})
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	h := newHarness(t, "hf_token")

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := h.do(method, `{"textToSummarize":"text"}`)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "Method Not Allowed", errorOf(t, rec))
	}
	assert.Equal(t, 0, h.upstream.count())
}

func TestHandler_MissingCredential(t *testing.T) {
	h := newHarness(t, "", reply{http.StatusOK, `[]`})

	rec := h.do(http.MethodPost, `{"textToSummarize":"Long article body..."}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Hugging Face API token is not configured on the server.", errorOf(t, rec))
	assert.Equal(t, 0, h.upstream.count())
}

func TestHandler_ValidationPrecedesCredentialCheck(t *testing.T) {
	h := newHarness(t, "")

	rec := h.do(http.MethodPost, `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_TransportFailure(t *testing.T) {
	client, err := NewClient(ClientConfig{Endpoint: "http://127.0.0.1:1", Timeout: time.Second})
	require.NoError(t, err)
	h, err := NewHandler(HandlerConfig{Upstream: client, Token: "hf_token"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/summarize", strings.NewReader(`{"textToSummarize":"x"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorOf(t, rec), "request to summarization API failed")
}

func TestHandler_WaitInterruptedByDeadline(t *testing.T) {
	u := &upstream{replies: []reply{
		{http.StatusServiceUnavailable, `{"error":"Model X is currently loading","estimated_time":30}`},
	}}
	srv := httptest.NewServer(u)
	defer srv.Close()

	client, err := NewClient(ClientConfig{Endpoint: srv.URL})
	require.NoError(t, err)
	h, err := NewHandler(HandlerConfig{
		Upstream:  client,
		Token:     "hf_token",
		MaxWarmup: time.Minute,
		Timeout:   50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = h.Summarize(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out while waiting for the model to load")
	assert.Equal(t, 1, u.count())
}

func TestWarmupDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, warmupDuration(5, time.Minute))
	assert.Equal(t, 1500*time.Millisecond, warmupDuration(1.5, time.Minute))
	assert.Equal(t, time.Minute, warmupDuration(1e12, time.Minute))
	assert.Equal(t, time.Duration(0), warmupDuration(-3, time.Minute))
}
