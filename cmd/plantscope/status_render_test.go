package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"plantscope/internal/messages"
	"plantscope/internal/services/wikimedia"
	"plantscope/internal/session"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Plant.id", statusError, "missing key", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Plant.id:", "[ERROR] missing key")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Wikipedia", statusOK, "ready", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestProgressObserverOnlyReportsLoadingStates(t *testing.T) {
	var out strings.Builder
	loc := messages.MustLoad().For("en")
	observe := progressObserver(&out, loc, false)

	for _, state := range []session.State{session.StateIdle, session.StateIdentifying, session.StateAwaitingArticles, session.StateArticlesReady} {
		observe(session.Snapshot{State: state})
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected two progress lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], loc.Text(messages.Identifying, nil)) || !strings.Contains(lines[1], loc.Text(messages.LoadingArticles, nil)) {
		t.Fatalf("unexpected progress lines %q", lines)
	}
}

func TestTokenStatusLines(t *testing.T) {
	status := wikimedia.TokenStatus{
		Username:        "tester",
		HasAccessToken:  true,
		HasRefreshToken: false,
		Expiry:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Expired:         true,
	}
	lines := tokenStatusLines(status, false)
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d: %v", len(lines), lines)
	}
	if !strings.Contains(lines[3], "[OK] configured") {
		t.Fatalf("access token line = %q", lines[3])
	}
	if !strings.Contains(lines[4], "[ERROR] missing") {
		t.Fatalf("refresh token line = %q", lines[4])
	}
	if !strings.Contains(lines[5], "[WARN] expired 2024-01-02T03:04:05Z") {
		t.Fatalf("expiry line = %q", lines[5])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "72h", want: 72 * time.Hour},
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: "0d", want: 0},
		{in: "xd", wantErr: true},
		{in: "-5h", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseAge(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseAge(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("parseAge(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}
