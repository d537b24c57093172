package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/kortlane/ticktick-mcp/internal/instrumentation"
	"github.com/kortlane/ticktick-mcp/internal/logging"
)

const (
	// DefaultMinRequestDelay is the minimum spacing between outbound calls.
	// TickTick's limits are coarse and account-wide, so the gate is
	// deliberately conservative rather than throughput-maximizing.
	DefaultMinRequestDelay = 200 * time.Millisecond

	// maxRetries is the ceiling for 429/5xx retries per call.
	maxRetries = 3

	// maxBackoffDelay caps exponential backoff growth.
	maxBackoffDelay = 10 * time.Second

	// networkRetryDelay is the fixed pause before the single retry of a
	// transport-level failure.
	networkRetryDelay = 500 * time.Millisecond

	maxErrorBodyBytes = 4 << 10
)

// attemptState is the per-call retry state machine. A call starts in
// stateAttempting and terminates in stateSucceeded or stateFailed; every
// retryable condition passes through stateBackingOff so the retry ceiling and
// backoff growth stay in one place.
type attemptState int

const (
	stateAttempting attemptState = iota
	stateBackingOff
	stateSucceeded
	stateFailed
)

// statusAction classifies a response status into the transition to take.
type statusAction int

const (
	actionSucceed statusAction = iota
	actionRefreshToken
	actionBackOff
	actionFailNotFound
	actionFailInvalidRequest
)

// classifyStatus is the transition table of the retry state machine.
func classifyStatus(code int) statusAction {
	switch {
	case code >= 200 && code < 300:
		return actionSucceed
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return actionRefreshToken
	case code == http.StatusTooManyRequests || code >= 500:
		return actionBackOff
	case code == http.StatusNotFound:
		return actionFailNotFound
	default:
		return actionFailInvalidRequest
	}
}

// backoffDelay returns the delay before retry number attempt (0-based),
// doubling from base up to the cap.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > maxBackoffDelay || d <= 0 {
		return maxBackoffDelay
	}
	return d
}

// executor issues rate-limited outbound calls with retry and backoff. The
// pacing gate serializes issuance process-wide: a call does not begin before
// the minimum delay has elapsed since the previous call began. Completion is
// not serialized; a slow response does not hold up unrelated calls beyond the
// gate.
type executor struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *tokenManager
	baseURL    string
	baseDelay  time.Duration
	logger     *slog.Logger
	metrics    *instrumentation.Metrics

	// sleep is swapped out in tests to avoid real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func newExecutor(cfg Config, tokens *tokenManager, httpClient *http.Client, logger *slog.Logger) *executor {
	delay := cfg.MinRequestDelay
	if delay <= 0 {
		delay = DefaultMinRequestDelay
	}
	return &executor{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(delay), 1),
		tokens:     tokens,
		baseURL:    cfg.BaseURL,
		baseDelay:  delay,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// do executes one logical API call and returns the raw response body. A nil
// body is returned for 204 and empty responses. Every error is a *Error; raw
// transport errors never escape. op labels the operation in metrics.
func (e *executor) do(ctx context.Context, op, method, path string, body any) ([]byte, error) {
	start := time.Now()
	result, err := e.execute(ctx, method, path, body)

	status := logging.StatusSuccess
	if err != nil {
		status = logging.StatusError
	}
	e.metrics.RecordAPIOperation(ctx, op, status, time.Since(start))

	return result, err
}

func (e *executor) execute(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, NewError(KindInvalidRequest, "cannot encode request body: %v", err)
		}
	}

	var (
		state      = stateAttempting
		retries    int
		lastDelay  time.Duration
		refreshed  bool
		netRetried bool
		lastStatus int
		result     []byte
		failure    *Error
	)

	for state != stateSucceeded && state != stateFailed {
		switch state {
		case stateAttempting:
			// Pacing gate: every attempt, including retries, is an
			// outbound call and waits its turn.
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, &Error{Kind: KindNetwork, Message: "request canceled while waiting for pacing gate", Err: err}
			}

			token := e.tokens.Token()
			resp, err := e.send(ctx, method, path, payload, token)
			if err != nil {
				if ctx.Err() != nil {
					return nil, &Error{Kind: KindNetwork, Message: "request canceled", Err: ctx.Err()}
				}
				if netRetried {
					state = stateFailed
					failure = &Error{Kind: KindNetwork, Message: fmt.Sprintf("%s %s failed after retry", method, path), Err: err}
					break
				}
				netRetried = true
				e.logger.Debug("transient network failure, retrying",
					slog.String("path", path), logging.Err(err))
				if serr := e.sleep(ctx, networkRetryDelay); serr != nil {
					return nil, &Error{Kind: KindNetwork, Message: "request canceled during retry delay", Err: serr}
				}
				break // remain in stateAttempting
			}

			respBody, readErr := readBody(resp)
			lastStatus = resp.StatusCode

			switch classifyStatus(resp.StatusCode) {
			case actionSucceed:
				if readErr != nil {
					state = stateFailed
					failure = &Error{Kind: KindNetwork, Message: "failed reading response body", Err: readErr}
					break
				}
				result = respBody
				state = stateSucceeded

			case actionRefreshToken:
				if refreshed {
					state = stateFailed
					failure = &Error{
						Kind:    KindAuthentication,
						Message: "request rejected again after token refresh",
						Detail:  string(respBody),
					}
					break
				}
				refreshed = true
				if _, err := e.tokens.Refresh(ctx, token); err != nil {
					state = stateFailed
					var terr *Error
					if !errors.As(err, &terr) {
						terr = &Error{Kind: KindAuthentication, Message: "token refresh failed", Err: err}
					}
					failure = terr
					break
				}
				// Retry once with the fresh token; does not consume the
				// backoff retry budget.

			case actionBackOff:
				if retries >= maxRetries {
					state = stateFailed
					failure = exhaustedError(lastStatus, respBody, lastDelay)
					break
				}
				lastDelay = backoffDelay(e.baseDelay, retries)
				retries++
				state = stateBackingOff

			case actionFailNotFound:
				state = stateFailed
				failure = &Error{
					Kind:    KindNotFound,
					Message: fmt.Sprintf("resource not found: %s", path),
					Detail:  string(respBody),
				}

			case actionFailInvalidRequest:
				state = stateFailed
				failure = &Error{
					Kind:    KindInvalidRequest,
					Message: fmt.Sprintf("request rejected with status %d", resp.StatusCode),
					Detail:  string(respBody),
				}
			}

		case stateBackingOff:
			e.logger.Warn("backing off after retryable response",
				slog.Int("status", lastStatus),
				slog.Duration("delay", lastDelay),
				slog.Int("attempt", retries),
				slog.String("path", path))
			if err := e.sleep(ctx, lastDelay); err != nil {
				return nil, &Error{Kind: KindNetwork, Message: "request canceled during backoff", Err: err}
			}
			state = stateAttempting
		}
	}

	if state == stateFailed {
		return nil, failure
	}
	return result, nil
}

func (e *executor) send(ctx context.Context, method, path string, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return e.httpClient.Do(req)
}

func exhaustedError(status int, body []byte, lastDelay time.Duration) *Error {
	if status == http.StatusTooManyRequests {
		return &Error{
			Kind:       KindRateLimit,
			Message:    fmt.Sprintf("rate limited after %d retries", maxRetries),
			Detail:     string(body),
			RetryAfter: lastDelay,
		}
	}
	return &Error{
		Kind:    KindUpstream,
		Message: fmt.Sprintf("upstream error %d after %d retries", status, maxRetries),
		Detail:  string(body),
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	limit := io.Reader(resp.Body)
	if resp.StatusCode >= 400 {
		limit = io.LimitReader(resp.Body, maxErrorBodyBytes)
	}
	b, err := io.ReadAll(limit)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNoContent || len(b) == 0 {
		return nil, nil
	}
	return b, nil
}
