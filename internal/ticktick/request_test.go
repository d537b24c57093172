package ticktick

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code   int
		action statusAction
	}{
		{200, actionSucceed},
		{201, actionSucceed},
		{204, actionSucceed},
		{401, actionRefreshToken},
		{403, actionRefreshToken},
		{404, actionFailNotFound},
		{400, actionFailInvalidRequest},
		{409, actionFailInvalidRequest},
		{422, actionFailInvalidRequest},
		{429, actionBackOff},
		{500, actionBackOff},
		{502, actionBackOff},
		{503, actionBackOff},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			if got := classifyStatus(tt.code); got != tt.action {
				t.Errorf("classifyStatus(%d) = %d, want %d", tt.code, got, tt.action)
			}
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 200 * time.Millisecond

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 200 * time.Millisecond},
		{1, 400 * time.Millisecond},
		{2, 800 * time.Millisecond},
		{10, maxBackoffDelay},
	}

	for _, tt := range tests {
		if got := backoffDelay(base, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%v, %d) = %v, want %v", base, tt.attempt, got, tt.want)
		}
	}

	// A huge shift must not wrap around into a negative delay.
	if got := backoffDelay(base, 62); got != maxBackoffDelay {
		t.Errorf("backoffDelay overflow = %v, want %v", got, maxBackoffDelay)
	}
}

// newTestExecutor builds an executor against the given API and token servers
// with real delays stubbed out. The recorded sleep durations are returned for
// inspection.
func newTestExecutor(baseURL, tokenURL string) (*executor, *[]time.Duration) {
	cfg := Config{
		ClientID:        "client-id",
		ClientSecret:    "client-secret",
		AccessToken:     "initial-token",
		RefreshToken:    "refresh-token",
		BaseURL:         baseURL,
		TokenURL:        tokenURL,
		MinRequestDelay: time.Nanosecond,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	httpClient := &http.Client{}
	tokens := newTokenManager(cfg, httpClient, logger)
	exec := newExecutor(cfg, tokens, httpClient, logger)

	slept := &[]time.Duration{}
	exec.sleep = func(_ context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return exec, slept
}

func newTokenServer(t *testing.T, refreshCount *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"bearer","refresh_token":"next-refresh","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDoRetriesAfter429(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"id":"p1"}`)
	}))
	defer srv.Close()

	exec, slept := newTestExecutor(srv.URL, "")

	body, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"p1"}`, string(body))
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, *slept, 1)
}

func TestDoRateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"too many requests"}`)
	}))
	defer srv.Close()

	exec, slept := newTestExecutor(srv.URL, "")

	_, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRateLimit))

	// Initial attempt plus the full retry budget.
	assert.Equal(t, int32(maxRetries+1), calls.Load())
	assert.Len(t, *slept, maxRetries)

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, backoffDelay(time.Nanosecond, maxRetries-1), gerr.RetryAfter)
	assert.Contains(t, gerr.Detail, "too many requests")
}

func TestDoUpstreamExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, "")

	_, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUpstream))
}

func TestDoRefreshesTokenAfter401(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := newTokenServer(t, &refreshes)

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"id":"t1"}`)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, tokenSrv.URL)

	body, err := exec.do(context.Background(), "get_task", http.MethodGet, "/project/p1/task/t1", nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1"}`, string(body))
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "fresh-token", exec.tokens.Token())
}

func TestDoFailsWhenRejectedAfterRefresh(t *testing.T) {
	var refreshes atomic.Int32
	tokenSrv := newTokenServer(t, &refreshes)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, tokenSrv.URL)

	_, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthentication))
	// Refresh happens exactly once; the second rejection is terminal.
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestDoFailsWhenRefreshRejected(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant"}`)
	}))
	defer tokenSrv.Close()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, tokenSrv.URL)

	_, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthentication))

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Detail, "invalid_grant")
}

func TestDoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, "")

	_, err := exec.do(context.Background(), "get_project", http.MethodGet, "/project/missing", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestDoInvalidRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"title too long"}`)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, "")

	_, err := exec.do(context.Background(), "create_task", http.MethodPost, "/task", map[string]string{"title": "x"})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidRequest))

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Detail, "title too long")
}

// flakyTransport fails the first request at the transport level and delegates
// afterwards.
type flakyTransport struct {
	failed atomic.Bool
	next   http.RoundTripper
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if f.failed.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("connection reset by peer")
	}
	return f.next.RoundTrip(req)
}

func TestDoRetriesNetworkFailureOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	exec, slept := newTestExecutor(srv.URL, "")
	exec.httpClient = &http.Client{Transport: &flakyTransport{next: http.DefaultTransport}}

	body, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(body))
	require.Len(t, *slept, 1)
	assert.Equal(t, networkRetryDelay, (*slept)[0])
}

// failingTransport always fails at the transport level.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, fmt.Errorf("no route to host")
}

func TestDoNetworkFailureAfterRetry(t *testing.T) {
	exec, _ := newTestExecutor("http://ticktick.invalid", "")
	exec.httpClient = &http.Client{Transport: failingTransport{}}

	_, err := exec.do(context.Background(), "list_projects", http.MethodGet, "/project", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestDoCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.do(ctx, "list_projects", http.MethodGet, "/project", nil)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNetwork))
}

func TestDoEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	exec, _ := newTestExecutor(srv.URL, "")

	body, err := exec.do(context.Background(), "delete_project", http.MethodDelete, "/project/p1", nil)
	require.NoError(t, err)
	assert.Nil(t, body)
}
