package wikimedia

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"plantscope/internal/config"
	"plantscope/internal/logging"
	"plantscope/internal/services"
)

const (
	tokenComponent       = "wikimedia_auth"
	tokenExpiryLeeway    = 60 * time.Second
	defaultTokenLifetime = 24 * time.Hour
	defaultTimeout       = 15 * time.Second
	maxErrorBody         = 4 << 10
)

// TokenManagerOption customises TokenManager construction.
type TokenManagerOption func(*TokenManager)

// WithTokenHTTPClient overrides the HTTP client used for token refreshes.
func WithTokenHTTPClient(client *http.Client) TokenManagerOption {
	return func(m *TokenManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithAuthBaseURL overrides the auth service base URL (used in tests).
func WithAuthBaseURL(baseURL string) TokenManagerOption {
	return func(m *TokenManager) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			m.authBaseURL = trimmed
		}
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) TokenManagerOption {
	return func(m *TokenManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithExpiry seeds an expiry for the initial access token.
func WithExpiry(expiry time.Time) TokenManagerOption {
	return func(m *TokenManager) {
		m.token.Expiry = expiry
	}
}

// WithTokenLogger attaches a logger for refresh events.
func WithTokenLogger(logger *slog.Logger) TokenManagerOption {
	return func(m *TokenManager) {
		m.logger = logging.NewComponentLogger(logger, tokenComponent)
	}
}

// TokenManager holds the Wikimedia session token for one client. It is safe
// for concurrent use.
type TokenManager struct {
	username    string
	authBaseURL string
	httpClient  *http.Client
	now         func() time.Time
	logger      *slog.Logger

	mu    sync.Mutex
	token oauth2.Token
}

var _ oauth2.TokenSource = (*TokenManager)(nil)

// TokenStatus is a point-in-time view of the held credentials.
type TokenStatus struct {
	Username        string    `json:"username,omitempty"`
	HasAccessToken  bool      `json:"has_access_token"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	Expiry          time.Time `json:"expiry,omitzero"`
	Expired         bool      `json:"expired"`
}

type refreshRequest struct {
	Username     string `json:"username"`
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// NewTokenManager builds a TokenManager from explicit credentials. Any of them
// may be blank; a manager with neither token fails on first use.
func NewTokenManager(username, accessToken, refreshToken string, opts ...TokenManagerOption) *TokenManager {
	m := &TokenManager{
		username:    strings.TrimSpace(username),
		authBaseURL: config.DefaultWikimediaAuthURL,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		now:         time.Now,
		logger:      logging.NewComponentLogger(nil, tokenComponent),
		token: oauth2.Token{
			AccessToken:  strings.TrimSpace(accessToken),
			TokenType:    "Bearer",
			RefreshToken: strings.TrimSpace(refreshToken),
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewTokenManagerFromConfig builds a TokenManager from the [wikimedia] section.
func NewTokenManagerFromConfig(cfg *config.Config, logger *slog.Logger, opts ...TokenManagerOption) *TokenManager {
	base := []TokenManagerOption{
		WithAuthBaseURL(cfg.Wikimedia.AuthBaseURL),
		WithTokenHTTPClient(&http.Client{Timeout: cfg.WikimediaTimeout()}),
		WithTokenLogger(logger),
	}
	return NewTokenManager(cfg.Wikimedia.Username, cfg.Wikimedia.AccessToken, cfg.Wikimedia.RefreshToken, append(base, opts...)...)
}

// IsExpired reports whether the held token is within a minute of its expiry.
// A token without an expiry never expires.
func (m *TokenManager) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked()
}

func (m *TokenManager) expiredLocked() bool {
	if m.token.Expiry.IsZero() {
		return false
	}
	return !m.now().Before(m.token.Expiry.Add(-tokenExpiryLeeway))
}

func (m *TokenManager) needsRefreshLocked() bool {
	if m.expiredLocked() {
		return true
	}
	return m.token.AccessToken == "" && m.token.RefreshToken != ""
}

// Status returns a copy of the credential state.
func (m *TokenManager) Status() TokenStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return TokenStatus{
		Username:        m.username,
		HasAccessToken:  m.token.AccessToken != "",
		HasRefreshToken: m.token.RefreshToken != "",
		Expiry:          m.token.Expiry,
		Expired:         m.expiredLocked(),
	}
}

// Ensure returns a usable token, refreshing first when the held one has
// expired or only a refresh token is configured.
func (m *TokenManager) Ensure(ctx context.Context) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.AccessToken == "" && m.token.RefreshToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, tokenComponent, "ensure", "no access or refresh token configured", nil)
	}
	if m.needsRefreshLocked() {
		if err := m.refreshLocked(ctx); err != nil {
			return nil, err
		}
	}
	tok := m.token
	return &tok, nil
}

// Token implements oauth2.TokenSource.
func (m *TokenManager) Token() (*oauth2.Token, error) {
	return m.Ensure(context.Background())
}

// Refresh exchanges the refresh token for a new access token unconditionally.
func (m *TokenManager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

// refreshAfterReject refreshes unless another caller already replaced the
// rejected access token, and returns the token to retry with.
func (m *TokenManager) refreshAfterReject(ctx context.Context, rejected string) (*oauth2.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token.AccessToken != "" && m.token.AccessToken != rejected && !m.expiredLocked() {
		tok := m.token
		return &tok, nil
	}
	if err := m.refreshLocked(ctx); err != nil {
		return nil, err
	}
	tok := m.token
	return &tok, nil
}

func (m *TokenManager) refreshLocked(ctx context.Context) error {
	if m.token.RefreshToken == "" {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", "no refresh token configured", nil)
	}
	if m.username == "" {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", "no username configured", nil)
	}

	body, err := json.Marshal(refreshRequest{Username: m.username, RefreshToken: m.token.RefreshToken})
	if err != nil {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.authBaseURL+"/token-refresh", bytes.NewReader(body))
	if err != nil {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := m.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh",
			fmt.Sprintf("token refresh returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	var payload refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", "decode response", err)
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return services.Wrap(services.ErrAuth, tokenComponent, "refresh", "response carried no access token", nil)
	}

	lifetime := defaultTokenLifetime
	if payload.ExpiresIn > 0 {
		lifetime = time.Duration(payload.ExpiresIn) * time.Second
	}
	m.token.AccessToken = payload.AccessToken
	m.token.TokenType = "Bearer"
	m.token.Expiry = m.now().Add(lifetime)
	if payload.RefreshToken != "" {
		m.token.RefreshToken = payload.RefreshToken
	}
	m.logger.Info("wikimedia access token refreshed",
		logging.String(logging.FieldEventType, "wikimedia_token_refreshed"),
		logging.Duration("lifetime", lifetime),
		logging.Duration("latency", latency),
	)
	return nil
}
