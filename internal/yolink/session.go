package yolink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-yolink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-yolink/internal/retry"
)

// Token lifetime fractions governing the two refresh paths.
//
// On-demand refresh fires once 90% of the stated lifetime has elapsed;
// the heartbeat timer unconditionally forces a refresh at 95%, acting as a
// guaranteed backstop when no call happens to arrive late in the window.
const (
	refreshFraction   = 0.90
	heartbeatFraction = 0.95
)

// Session owns the process-wide authentication state: the access/refresh
// token pair, its expiry, the login flag, and the home identifier.
//
// There is exactly one Session per process, constructed at startup and
// passed by reference to every component that talks upstream.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - At most one token exchange is in flight at any time; concurrent
//     AccessToken callers block on the same mutex and observe the single
//     outcome rather than issuing duplicate refresh requests.
type Session struct {
	cfg    config.UpstreamConfig
	client *Client
	http   *http.Client
	log    Logger
	now    func() time.Time

	mu           sync.Mutex
	loggedIn     bool
	accessToken  string
	refreshToken string
	issuedAt     time.Time
	lifetime     time.Duration
	homeID       string
	heartbeat    *time.Timer
	closed       bool
}

// NewSession creates a Session for the given upstream configuration.
// The client is used to resolve the home identifier after login.
func NewSession(cfg config.UpstreamConfig, client *Client) *Session {
	return &Session{
		cfg:    cfg,
		client: client,
		http:   &http.Client{Timeout: defaultHTTPTimeout},
		log:    noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the session.
func (s *Session) SetLogger(log Logger) {
	s.log = log
}

// Login exchanges the long-lived credentials for a token pair and resolves
// the home identifier.
//
// Failures are retried forever on the standard endless profile (15s initial,
// +15s per attempt, 60s cap). Missing credentials are fatal and surface
// immediately. On success the heartbeat refresh timer is armed.
//
// Returns:
//   - error: ErrMissingCredentials, context cancellation, or nil
func (s *Session) Login(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loginLocked(ctx, retry.Endless)
}

// loginLocked performs the credential exchange under the session mutex.
func (s *Session) loginLocked(ctx context.Context, profile retry.Profile) error {
	return retry.Do(ctx, profile, s.log, "login", func(ctx context.Context) error {
		if s.cfg.UAID == "" || s.cfg.SecretKey == "" {
			return retry.Fatal(ErrMissingCredentials)
		}

		tok, err := s.exchangeToken(ctx, url.Values{
			"grant_type":    {"client_credentials"},
			"client_id":     {s.cfg.UAID},
			"client_secret": {s.cfg.SecretKey},
		})
		if err != nil {
			return err
		}

		homeID, err := s.client.GetHomeID(ctx, tok.AccessToken)
		if err != nil {
			return fmt.Errorf("resolving home id: %w", err)
		}

		s.adoptLocked(tok)
		s.homeID = homeID
		s.log.Info("logged in",
			"home_id", homeID,
			"token_lifetime", s.lifetime.String(),
		)
		return nil
	})
}

// refreshLocked renews the token pair using the refresh_token grant.
// If the grant is rejected it falls back to one full credential exchange;
// if that also fails the session is marked logged out and the error is
// propagated; callers must not assume silent recovery.
func (s *Session) refreshLocked(ctx context.Context) error {
	tok, err := s.exchangeToken(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {s.cfg.UAID},
		"refresh_token": {s.refreshToken},
	})
	if err != nil {
		s.log.Warn("token refresh failed, attempting full login", "error", err)
		if loginErr := s.loginLocked(ctx, retry.Profile{Attempts: 1}); loginErr != nil {
			s.loggedIn = false
			return fmt.Errorf("session refresh: %w", loginErr)
		}
		return nil
	}

	s.adoptLocked(tok)
	s.log.Debug("token refreshed", "token_lifetime", s.lifetime.String())
	return nil
}

// adoptLocked installs a new token pair and re-arms the heartbeat timer.
func (s *Session) adoptLocked(tok *TokenResponse) {
	s.accessToken = tok.AccessToken
	s.refreshToken = tok.RefreshToken
	s.issuedAt = s.now()
	s.lifetime = time.Duration(tok.ExpiresIn) * time.Second
	s.loggedIn = true
	s.armHeartbeatLocked()
}

// armHeartbeatLocked (re)schedules the forced-refresh backstop at 95% of
// the token lifetime.
func (s *Session) armHeartbeatLocked() {
	if s.heartbeat != nil {
		s.heartbeat.Stop()
	}
	if s.closed || s.lifetime <= 0 {
		return
	}
	delay := time.Duration(float64(s.lifetime) * heartbeatFraction)
	s.heartbeat = time.AfterFunc(delay, s.heartbeatFire)
}

// heartbeatFire is the timer callback forcing an unconditional refresh.
func (s *Session) heartbeatFire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.loggedIn {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultHTTPTimeout)
	defer cancel()

	if err := s.refreshLocked(ctx); err != nil {
		s.log.Error("heartbeat token refresh failed", "error", err)
	}
}

// AccessToken returns a currently valid access token.
//
// If the session is not logged in, a login (single attempt; startup retries
// are Login's job) is performed first. If 90% of the token lifetime has
// elapsed, the token is refreshed before being returned. Exactly one
// exchange is ever in flight; concurrent callers await the same outcome.
//
// Returns:
//   - string: Valid access token
//   - error: If login/refresh failed; the session is then marked logged out
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrNotLoggedIn
	}

	if !s.loggedIn {
		if err := s.loginLocked(ctx, retry.Profile{Attempts: 1}); err != nil {
			s.loggedIn = false
			return "", fmt.Errorf("%w: %w", ErrNotLoggedIn, err)
		}
		return s.accessToken, nil
	}

	elapsed := s.now().Sub(s.issuedAt)
	if s.lifetime > 0 && float64(elapsed) >= float64(s.lifetime)*refreshFraction {
		if err := s.refreshLocked(ctx); err != nil {
			return "", err
		}
	}

	return s.accessToken, nil
}

// Invalidate marks the session logged out, forcing a re-login on the next
// AccessToken call. Called when an upstream response reports an
// authentication-class error code.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedIn = false
	s.log.Warn("session invalidated, re-login forced")
}

// HomeID returns the home/subnet identifier resolved at login.
func (s *Session) HomeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.homeID
}

// ExpiresAt returns the expiry instant of the current access token.
// The zero time is returned when not logged in.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loggedIn {
		return time.Time{}
	}
	return s.issuedAt.Add(s.lifetime)
}

// LoggedIn reports whether the session currently holds a token pair.
func (s *Session) LoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// Close stops the heartbeat timer and prevents further exchanges.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.loggedIn = false
	if s.heartbeat != nil {
		s.heartbeat.Stop()
		s.heartbeat = nil
	}
}

// exchangeToken posts a form-encoded grant to the token endpoint.
func (s *Session) exchangeToken(ctx context.Context, form url.Values) (*TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint status %d", resp.StatusCode)
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	if tok.AccessToken == "" || tok.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: token response missing access_token or expires_in", ErrBadResponse)
	}

	return &tok, nil
}
