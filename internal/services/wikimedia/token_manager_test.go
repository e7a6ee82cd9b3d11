package wikimedia

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plantscope/internal/services"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)}
}

func refreshServer(t *testing.T, calls *atomic.Int32, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token-refresh" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode refresh body: %v", err)
		}
		if payload["username"] != "botanist" || payload["refresh_token"] != "refresh-1" {
			t.Errorf("unexpected refresh payload %v", payload)
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIsExpiredHonoursLeeway(t *testing.T) {
	clock := newClock()
	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"no expiry", time.Time{}, false},
		{"far future", clock.now.Add(time.Hour), false},
		{"just outside leeway", clock.now.Add(61 * time.Second), false},
		{"exactly at leeway", clock.now.Add(60 * time.Second), true},
		{"inside leeway", clock.now.Add(30 * time.Second), true},
		{"past", clock.now.Add(-time.Minute), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTokenManager("botanist", "access", "refresh", WithClock(clock.Now), WithExpiry(tt.expiry))
			if got := m.IsExpired(); got != tt.want {
				t.Fatalf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRefreshSetsTokenAndExpiry(t *testing.T) {
	var calls atomic.Int32
	server := refreshServer(t, &calls, http.StatusOK, `{"access_token":"access-2","expires_in":3600}`)
	clock := newClock()
	m := NewTokenManager("botanist", "access-1", "refresh-1", WithAuthBaseURL(server.URL), WithClock(clock.Now))

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	tok, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if tok.AccessToken != "access-2" {
		t.Fatalf("expected refreshed token, got %q", tok.AccessToken)
	}
	if want := clock.now.Add(time.Hour); !tok.Expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", tok.Expiry, want)
	}
	if tok.RefreshToken != "refresh-1" {
		t.Fatalf("refresh token should be kept, got %q", tok.RefreshToken)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 refresh call, got %d", calls.Load())
	}
}

func TestRefreshDefaultsToOneDay(t *testing.T) {
	var calls atomic.Int32
	server := refreshServer(t, &calls, http.StatusOK, `{"access_token":"access-2"}`)
	clock := newClock()
	m := NewTokenManager("botanist", "", "refresh-1", WithAuthBaseURL(server.URL), WithClock(clock.Now))

	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	status := m.Status()
	if want := clock.now.Add(24 * time.Hour); !status.Expiry.Equal(want) {
		t.Fatalf("expiry = %v, want %v", status.Expiry, want)
	}
	if status.Expired {
		t.Fatal("fresh token reported expired")
	}
}

func TestRefreshFailuresAreAuthErrors(t *testing.T) {
	var calls atomic.Int32
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected", http.StatusUnauthorized, `{"message":"bad refresh token"}`},
		{"server error", http.StatusBadGateway, ``},
		{"garbage body", http.StatusOK, `not json`},
		{"empty token", http.StatusOK, `{"access_token":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := refreshServer(t, &calls, tt.status, tt.body)
			m := NewTokenManager("botanist", "access-1", "refresh-1", WithAuthBaseURL(server.URL))
			err := m.Refresh(context.Background())
			if !errors.Is(err, services.ErrAuth) {
				t.Fatalf("expected ErrAuth, got %v", err)
			}
			tok, ensureErr := m.Ensure(context.Background())
			if ensureErr != nil {
				t.Fatalf("ensure after failed refresh: %v", ensureErr)
			}
			if tok.AccessToken != "access-1" {
				t.Fatalf("failed refresh must keep previous token, got %q", tok.AccessToken)
			}
		})
	}
}

func TestRefreshWithoutCredentials(t *testing.T) {
	if err := NewTokenManager("botanist", "access", "").Refresh(context.Background()); !errors.Is(err, services.ErrAuth) {
		t.Fatalf("missing refresh token: expected ErrAuth, got %v", err)
	}
	if err := NewTokenManager("", "access", "refresh").Refresh(context.Background()); !errors.Is(err, services.ErrAuth) {
		t.Fatalf("missing username: expected ErrAuth, got %v", err)
	}
}

func TestEnsureRefreshesOnlyWhenNeeded(t *testing.T) {
	var calls atomic.Int32
	server := refreshServer(t, &calls, http.StatusOK, `{"access_token":"access-2","expires_in":3600}`)
	clock := newClock()
	m := NewTokenManager("botanist", "access-1", "refresh-1",
		WithAuthBaseURL(server.URL),
		WithClock(clock.Now),
		WithExpiry(clock.now.Add(10*time.Minute)),
	)

	tok, err := m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if tok.AccessToken != "access-1" || calls.Load() != 0 {
		t.Fatalf("expected cached token without refresh, got %q after %d calls", tok.AccessToken, calls.Load())
	}

	clock.Advance(9*time.Minute + 30*time.Second)
	tok, err = m.Ensure(context.Background())
	if err != nil {
		t.Fatalf("ensure after expiry: %v", err)
	}
	if tok.AccessToken != "access-2" || calls.Load() != 1 {
		t.Fatalf("expected refresh, got %q after %d calls", tok.AccessToken, calls.Load())
	}
}

func TestEnsureWithOnlyRefreshToken(t *testing.T) {
	var calls atomic.Int32
	server := refreshServer(t, &calls, http.StatusOK, `{"access_token":"access-2"}`)
	m := NewTokenManager("botanist", "", "refresh-1", WithAuthBaseURL(server.URL))

	tok, err := m.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "access-2" || calls.Load() != 1 {
		t.Fatalf("expected bootstrap refresh, got %q after %d calls", tok.AccessToken, calls.Load())
	}
}

func TestEnsureWithoutAnyToken(t *testing.T) {
	_, err := NewTokenManager("botanist", "", "").Ensure(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestRefreshAfterRejectSkipsWhenAlreadyReplaced(t *testing.T) {
	var calls atomic.Int32
	server := refreshServer(t, &calls, http.StatusOK, `{"access_token":"access-2"}`)
	m := NewTokenManager("botanist", "access-1", "refresh-1", WithAuthBaseURL(server.URL))

	first, err := m.refreshAfterReject(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("first reject: %v", err)
	}
	second, err := m.refreshAfterReject(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("second reject: %v", err)
	}
	if first.AccessToken != "access-2" || second.AccessToken != "access-2" {
		t.Fatalf("unexpected tokens %q / %q", first.AccessToken, second.AccessToken)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single exchange, got %d", calls.Load())
	}
}
