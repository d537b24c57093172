package ticktick

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(tokenURL string) *tokenManager {
	cfg := Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AccessToken:  "initial-token",
		RefreshToken: "refresh-token",
		TokenURL:     tokenURL,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return newTokenManager(cfg, &http.Client{}, logger)
}

func TestRefreshExchangesToken(t *testing.T) {
	var exchanges atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)

		// TickTick wants client credentials via Basic auth.
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client-id", user)
		assert.Equal(t, "client-secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "refresh-token", r.PostForm.Get("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"bearer","refresh_token":"next-refresh","expires_in":3600}`)
	}))
	defer srv.Close()

	tm := newTestTokenManager(srv.URL)

	token, err := tm.Refresh(context.Background(), "initial-token")
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, "fresh-token", tm.Token())
	assert.Equal(t, "next-refresh", tm.refreshToken)
	assert.Equal(t, int32(1), exchanges.Load())
}

func TestRefreshCoalescesConcurrentCallers(t *testing.T) {
	var exchanges atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh-token","token_type":"bearer","expires_in":3600}`)
	}))
	defer srv.Close()

	tm := newTestTokenManager(srv.URL)

	const callers = 16
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = tm.Refresh(context.Background(), "initial-token")
		}(i)
	}
	wg.Wait()

	// All callers observed the same stale token, so exactly one exchange
	// happens and everyone gets the same fresh token.
	assert.Equal(t, int32(1), exchanges.Load())
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fresh-token", results[i])
	}
}

func TestRefreshSkipsExchangeWhenTokenAlreadyReplaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no exchange expected")
	}))
	defer srv.Close()

	tm := newTestTokenManager(srv.URL)

	// The caller saw a token that has since been replaced.
	token, err := tm.Refresh(context.Background(), "some-older-token")
	require.NoError(t, err)
	assert.Equal(t, "initial-token", token)
}

func TestRefreshWithoutCredentials(t *testing.T) {
	cfg := Config{AccessToken: "initial-token"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tm := newTokenManager(cfg, &http.Client{}, logger)

	_, err := tm.Refresh(context.Background(), "initial-token")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindAuthentication))
}
