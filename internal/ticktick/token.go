package ticktick

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/kortlane/ticktick-mcp/internal/instrumentation"
	"github.com/kortlane/ticktick-mcp/internal/logging"
)

// tokenManager owns the access/refresh token pair for the process lifetime.
// All mutation of token state happens here. Refreshed tokens are not persisted;
// operators who want a refreshed token to survive a restart must capture it
// out-of-band.
type tokenManager struct {
	conf       *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics

	// mu is held for the full duration of a refresh exchange. Concurrent
	// callers that observed the same stale token block here and reuse the
	// outcome instead of issuing their own refresh; TickTick invalidates a
	// refresh token on first use, so a refresh storm would lock the account
	// out until re-authorization.
	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func newTokenManager(cfg Config, httpClient *http.Client, logger *slog.Logger) *tokenManager {
	return &tokenManager{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL: cfg.TokenURL,
				// TickTick expects client credentials via Basic auth.
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient:   httpClient,
		logger:       logger,
		accessToken:  cfg.AccessToken,
		refreshToken: cfg.RefreshToken,
	}
}

// Token returns the current access token.
func (tm *tokenManager) Token() string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.accessToken
}

// Refresh exchanges the refresh token for a new token pair and returns the new
// access token. stale is the access token the caller saw rejected; if another
// caller already replaced it, the current token is returned without a new
// exchange. A failed exchange surfaces as an authentication error and is not
// retried: an invalid refresh token requires out-of-band re-authorization.
func (tm *tokenManager) Refresh(ctx context.Context, stale string) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.accessToken != stale {
		return tm.accessToken, nil
	}

	if tm.refreshToken == "" || tm.conf.ClientID == "" || tm.conf.ClientSecret == "" {
		return "", NewError(KindAuthentication, "cannot refresh access token: refresh token or client credentials not configured")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, tm.httpClient)
	src := tm.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: tm.refreshToken})

	tok, err := src.Token()
	if err != nil {
		tm.metrics.RecordTokenRefresh(ctx, "failure")
		tm.logger.Error("token refresh failed", logging.Err(err))
		rerr := &Error{
			Kind:    KindAuthentication,
			Message: "token refresh rejected by authorization server",
			Err:     err,
		}
		if re, ok := err.(*oauth2.RetrieveError); ok {
			rerr.Detail = string(re.Body)
		}
		return "", rerr
	}

	tm.metrics.RecordTokenRefresh(ctx, "success")
	tm.accessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		tm.refreshToken = tok.RefreshToken
	}
	tm.logger.Info("access token refreshed",
		slog.String("token", logging.SanitizeToken(tm.accessToken)))
	return tm.accessToken, nil
}
