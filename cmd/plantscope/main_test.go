package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"plantscope/internal/imagefile"
	"plantscope/internal/messages"
	"plantscope/internal/services"
	"plantscope/internal/session"
	"plantscope/internal/testsupport"
)

func TestIdentifyPrintsCandidatesAndArticles(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetSuggestions("Monstera deliciosa", "Aloe vera")
	env.upstream.SetWikipediaArticle("Monstera deliciosa", "fr")
	env.upstream.SetWikipediaArticle("Aloe vera", "en")
	image := testsupport.WriteImage(t, env.baseDir, "leaf.png")

	out, stderr, err := runCLI(t, env, "identify", image, "--lang", "fr")
	if err != nil {
		t.Fatalf("identify: %v\nstderr: %s", err, stderr)
	}
	fr := env.catalog.For("fr")
	requireContains(t, out, fr.Text(messages.SuggestionsHeading, nil))
	requireContains(t, out, "1. Monstera deliciosa")
	requireContains(t, out, "https://fr.wikipedia.org/wiki/Monstera_deliciosa")
	requireContains(t, out, "2. Aloe vera")
	requireContains(t, out, fr.NoneInLanguage())
	requireNotContains(t, out, "en.wikipedia.org")
	requireContains(t, stderr, fr.Text(messages.Identifying, nil))
	requireContains(t, stderr, fr.Text(messages.LoadingArticles, nil))

	if got := env.upstream.IdentifyCalls(); got != 1 {
		t.Fatalf("identify calls = %d, want 1", got)
	}
}

func TestIdentifyJSONOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetSuggestions("Aloe vera")
	env.upstream.SetWikipediaArticle("Aloe vera", "en")
	image := testsupport.WriteImage(t, env.baseDir, "leaf.png")

	out, _, err := runCLI(t, env, "identify", image, "--json", "--lang", "en")
	if err != nil {
		t.Fatalf("identify --json: %v", err)
	}
	var payload identifyOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if payload.Session.State != session.StateArticlesReady {
		t.Fatalf("state = %q", payload.Session.State)
	}
	if len(payload.Results) != 1 || len(payload.Results[0].Articles) != 1 {
		t.Fatalf("unexpected results %+v", payload.Results)
	}
	if payload.Session.Image == nil || payload.Session.Image.Name != "leaf.png" {
		t.Fatalf("image not reported: %+v", payload.Session.Image)
	}
}

func TestIdentifyDebugUsesSample(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithPlantIDKey(""))

	out, _, err := runCLI(t, env, "identify", "--debug", "--lang", "en")
	if err != nil {
		t.Fatalf("identify --debug: %v", err)
	}
	requireContains(t, out, env.catalog.For("en").Text(messages.DebugNotice, nil))
	requireContains(t, out, "1. Monstera deliciosa")
	requireContains(t, out, "3. Epipremnum aureum")
	if got := env.upstream.IdentifyCalls(); got != 0 {
		t.Fatalf("debug mode called Plant.id %d times", got)
	}
	if got := len(env.upstream.ArticleRequests()); got != 3 {
		t.Fatalf("article requests = %d, want 3", got)
	}
}

func TestIdentifyRawOutput(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "identify", "--debug", "--raw")
	if err != nil {
		t.Fatalf("identify --raw: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(out), &raw); err != nil {
		t.Fatalf("raw output is not JSON: %v", err)
	}
	if _, ok := raw["suggestions"]; !ok {
		t.Fatalf("raw output missing suggestions: %v", raw)
	}
}

func TestIdentifyRejectsNonImage(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "notes.txt")
	testsupport.WriteFile(t, path, []byte("just some text"))

	_, _, err := runCLI(t, env, "identify", path)
	if err == nil {
		t.Fatal("expected error for non-image file")
	}
	if !errors.Is(err, imagefile.ErrNotImage) {
		t.Fatalf("expected ErrNotImage, got %v", err)
	}
	if want := env.catalog.For("en").Text(messages.NotImage, nil); err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
	if env.upstream.IdentifyCalls() != 0 {
		t.Fatal("non-image should not reach Plant.id")
	}
}

func TestIdentifyRequiresImage(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "identify")
	if !errors.Is(err, session.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestIdentifyReportsUpstreamFailure(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.FailIdentify(http.StatusUnauthorized, "invalid api key")
	image := testsupport.WriteImage(t, env.baseDir, "leaf.png")

	_, _, err := runCLI(t, env, "identify", image)
	if !errors.Is(err, services.ErrRequest) {
		t.Fatalf("expected ErrRequest, got %v", err)
	}
	requireContains(t, err.Error(), "invalid api key")
}

func TestHistoryRecordsAttempts(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetSuggestions("Aloe vera")
	env.upstream.SetWikipediaArticle("Aloe vera", "en")
	image := testsupport.WriteImage(t, env.baseDir, "leaf.png")

	if _, _, err := runCLI(t, env, "identify", image, "--lang", "en"); err != nil {
		t.Fatalf("identify: %v", err)
	}

	out, _, err := runCLI(t, env, "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	requireContains(t, out, "Aloe vera")
	requireContains(t, out, "leaf.png")

	out, _, err = runCLI(t, env, "history", "list", "--json")
	if err != nil {
		t.Fatalf("history list --json: %v", err)
	}
	var records []struct {
		ID            string `json:"id"`
		ArticleCounts []int  `json:"article_counts"`
	}
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	if len(records[0].ArticleCounts) != 1 || records[0].ArticleCounts[0] != 1 {
		t.Fatalf("article counts = %v", records[0].ArticleCounts)
	}

	out, _, err = runCLI(t, env, "history", "show", records[0].ID[:8])
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	requireContains(t, out, records[0].ID)
	requireContains(t, out, "Aloe vera")

	out, _, err = runCLI(t, env, "history", "clear")
	if err != nil {
		t.Fatalf("history clear: %v", err)
	}
	requireContains(t, out, "Removed 1 attempt(s)")

	out, _, err = runCLI(t, env, "history", "list")
	if err != nil {
		t.Fatalf("history list after clear: %v", err)
	}
	requireContains(t, out, "No attempts recorded")
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistoryDisabled())

	if _, _, err := runCLI(t, env, "identify", "--debug"); err != nil {
		t.Fatalf("identify: %v", err)
	}
	if _, _, err := runCLI(t, env, "history", "list"); err == nil {
		t.Fatal("expected error when history is disabled")
	}
	if _, err := os.Stat(env.cfg.History.Path); !os.IsNotExist(err) {
		t.Fatalf("history database should not be created, stat err = %v", err)
	}
}

func TestLookupCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetWikipediaArticle("Aloe vera", "en")

	out, _, err := runCLI(t, env, "lookup", "Aloe vera", "Unknown plant", "--lang", "en")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	requireContains(t, out, "https://en.wikipedia.org/wiki/Aloe_vera")
	requireContains(t, out, "English")
	requireContains(t, out, env.catalog.For("en").NoneInLanguage())

	out, _, err = runCLI(t, env, "lookup", "Aloe vera", "--lang", "de", "--json")
	if err != nil {
		t.Fatalf("lookup --json: %v", err)
	}
	var results []lookupResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode lookup: %v", err)
	}
	if len(results) != 1 || len(results[0].Articles) != 0 {
		t.Fatalf("german filter should drop english article: %+v", results)
	}

	out, _, err = runCLI(t, env, "lookup", "Aloe vera", "--lang", "de", "--all", "--json")
	if err != nil {
		t.Fatalf("lookup --all: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode lookup --all: %v", err)
	}
	if len(results) != 1 || len(results[0].Articles) != 1 {
		t.Fatalf("--all should keep every article: %+v", results)
	}
}

func TestLookupWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithWikimediaTokens("", ""))

	_, _, err := runCLI(t, env, "lookup", "Aloe vera")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTokenCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "token", "status")
	if err != nil {
		t.Fatalf("token status: %v", err)
	}
	requireContains(t, out, "tester")
	requireContains(t, out, "configured")

	out, _, err = runCLI(t, env, "token", "refresh", "--show")
	if err != nil {
		t.Fatalf("token refresh: %v", err)
	}
	requireContains(t, out, "Access token refreshed")
	requireContains(t, out, `access_token = "access-2"`)
	if got := env.upstream.RefreshCalls(); got != 1 {
		t.Fatalf("refresh calls = %d, want 1", got)
	}
}

func TestConfigCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	out, _, err = runCLI(t, env, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, redacted)
	requireNotContains(t, out, "refresh-1")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, nil, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, nil, "config", "init", "--path", target); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestLogsFilterBySession(t *testing.T) {
	env := setupCLITestEnv(t)
	env.upstream.SetSuggestions("Aloe vera")
	env.upstream.SetWikipediaArticle("Aloe vera", "en")
	image := testsupport.WriteImage(t, env.baseDir, "leaf.png")

	out, _, err := runCLI(t, env, "identify", image, "--json", "--lang", "en")
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	var payload identifyOutput
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode identify: %v", err)
	}
	sessionID := payload.Session.SessionID
	if len(sessionID) < 8 {
		t.Fatalf("session id %q too short", sessionID)
	}

	out, _, err = runCLI(t, env, "logs", "--session", sessionID[:8])
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "identification complete")
	requireContains(t, out, sessionID)

	out, _, err = runCLI(t, env, "logs", "--session", "not-a-session")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no entries for unknown session, got %q", out)
	}
}
