package yolink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-yolink/internal/retry"
)

// tokenServer answers grant requests, counting them per grant type.
type tokenServer struct {
	srv          *httptest.Server
	clientCreds  atomic.Int64
	refreshCalls atomic.Int64
	tokenSeq     atomic.Int64
	expiresIn    int64
	fail         atomic.Bool
}

func newTokenServer(t *testing.T, expiresIn int64) *tokenServer {
	t.Helper()
	ts := &tokenServer{expiresIn: expiresIn}
	ts.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ts.fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		switch r.Form.Get("grant_type") {
		case "client_credentials":
			ts.clientCreds.Add(1)
		case "refresh_token":
			ts.refreshCalls.Add(1)
		default:
			t.Errorf("unexpected grant_type %q", r.Form.Get("grant_type"))
		}
		n := ts.tokenSeq.Add(1)
		_ = json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "access-" + strconv.FormatInt(n, 10),
			RefreshToken: "refresh",
			ExpiresIn:    ts.expiresIn,
			TokenType:    "Bearer",
		})
	}))
	t.Cleanup(ts.srv.Close)
	return ts
}

// newTestSession wires a session against test token and API servers.
func newTestSession(t *testing.T, tokens *tokenServer) *Session {
	t.Helper()
	api, _ := apiServer(t, CodeSuccess, map[string]any{"id": "home-1"})
	client := NewClient(api.URL)
	s := NewSession(config.UpstreamConfig{
		TokenURL:  tokens.srv.URL,
		UAID:      "ua_test",
		SecretKey: "sec_test",
	}, client)
	t.Cleanup(s.Close)
	return s
}

func TestLoginSuccess(t *testing.T) {
	tokens := newTokenServer(t, 3600)
	s := newTestSession(t, tokens)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !s.LoggedIn() {
		t.Error("LoggedIn() = false after successful login")
	}
	if s.HomeID() != "home-1" {
		t.Errorf("HomeID() = %q, want home-1", s.HomeID())
	}
	if tokens.clientCreds.Load() != 1 {
		t.Errorf("client_credentials calls = %d, want 1", tokens.clientCreds.Load())
	}
	expiry := s.ExpiresAt()
	if d := time.Until(expiry); d < 3500*time.Second || d > 3700*time.Second {
		t.Errorf("ExpiresAt() %v from now, want ~3600s", d)
	}
}

func TestLoginMissingCredentialsIsFatal(t *testing.T) {
	tokens := newTokenServer(t, 3600)
	s := newTestSession(t, tokens)
	s.cfg.SecretKey = ""

	err := s.Login(context.Background())
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Login() error = %v, want ErrMissingCredentials", err)
	}
	if !errors.Is(err, retry.ErrFatal) {
		t.Errorf("Login() error = %v, want fatal-tagged (no endless retry)", err)
	}
	if tokens.clientCreds.Load() != 0 {
		t.Errorf("token endpoint called %d times, want 0", tokens.clientCreds.Load())
	}
}

func TestAccessTokenLogsInWhenLoggedOut(t *testing.T) {
	tokens := newTokenServer(t, 3600)
	s := newTestSession(t, tokens)

	tok, err := s.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if tok == "" {
		t.Error("AccessToken() returned empty token")
	}
	if tokens.clientCreds.Load() != 1 {
		t.Errorf("client_credentials calls = %d, want 1", tokens.clientCreds.Load())
	}
}

func TestAccessTokenRefreshesAt90Percent(t *testing.T) {
	tokens := newTokenServer(t, 1000)
	s := newTestSession(t, tokens)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	first, _ := s.AccessToken(context.Background())

	// Simulate 91% of the lifetime elapsing.
	base := time.Now()
	s.now = func() time.Time { return base.Add(910 * time.Second) }

	second, err := s.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if second == first {
		t.Error("token not refreshed past 90% lifetime")
	}
	if tokens.refreshCalls.Load() != 1 {
		t.Errorf("refresh_token calls = %d, want 1", tokens.refreshCalls.Load())
	}
}

func TestAccessTokenFreshTokenNotRefreshed(t *testing.T) {
	tokens := newTokenServer(t, 1000)
	s := newTestSession(t, tokens)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := s.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if tokens.refreshCalls.Load() != 0 {
		t.Errorf("refresh_token calls = %d, want 0 for fresh token", tokens.refreshCalls.Load())
	}
}

func TestAccessTokenRefreshSingularity(t *testing.T) {
	tokens := newTokenServer(t, 1000)
	s := newTestSession(t, tokens)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	base := time.Now()
	s.now = func() time.Time { return base.Add(950 * time.Second) }
	// adoptLocked resets issuedAt via s.now, so after the single refresh the
	// token reads as fresh again and later callers skip the exchange.

	const n = 10
	gotTokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := s.AccessToken(context.Background())
			if err != nil {
				t.Errorf("AccessToken() error = %v", err)
			}
			gotTokens[i] = tok
		}(i)
	}
	wg.Wait()

	if got := tokens.refreshCalls.Load(); got != 1 {
		t.Errorf("refresh_token calls = %d, want exactly 1 for %d concurrent callers", got, n)
	}
	for i := 1; i < n; i++ {
		if gotTokens[i] != gotTokens[0] {
			t.Errorf("caller %d got token %q, want %q (same outcome for all)", i, gotTokens[i], gotTokens[0])
		}
	}
}

func TestInvalidateForcesRelogin(t *testing.T) {
	tokens := newTokenServer(t, 3600)
	s := newTestSession(t, tokens)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	s.Invalidate()
	if s.LoggedIn() {
		t.Fatal("LoggedIn() = true after Invalidate()")
	}

	if _, err := s.AccessToken(context.Background()); err != nil {
		t.Fatalf("AccessToken() error = %v", err)
	}
	if tokens.clientCreds.Load() != 2 {
		t.Errorf("client_credentials calls = %d, want 2 (initial + re-login)", tokens.clientCreds.Load())
	}
}

func TestAccessTokenPersistentFailurePropagates(t *testing.T) {
	tokens := newTokenServer(t, 3600)
	s := newTestSession(t, tokens)
	tokens.fail.Store(true)

	_, err := s.AccessToken(context.Background())
	if !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("AccessToken() error = %v, want ErrNotLoggedIn", err)
	}
	if s.LoggedIn() {
		t.Error("session should remain logged out after persistent failure")
	}
}

func TestHeartbeatForcesRefresh(t *testing.T) {
	// 1s lifetime arms the heartbeat at ~950ms.
	tokens := newTokenServer(t, 1)
	s := newTestSession(t, tokens)

	if err := s.Login(context.Background()); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	deadline := time.After(3 * time.Second)
	for tokens.refreshCalls.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("heartbeat refresh never fired")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
