package plantid

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"plantscope/internal/imagefile"
	"plantscope/internal/services"
)

var leafPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func unreachableServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusTeapot)
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestIdentifyDebugUsesBundledSample(t *testing.T) {
	server, hits := unreachableServer(t)
	client := New("", server.URL)

	resp, err := client.Identify(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	candidates := resp.Candidates()
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[0].ID != "301874522" || candidates[0].Name != "Monstera deliciosa" {
		t.Fatalf("unexpected first candidate %+v", candidates[0])
	}
	if len(resp.Raw) == 0 {
		t.Fatal("expected raw response to be kept")
	}
	if hits.Load() != 0 {
		t.Fatalf("debug mode made %d network calls", hits.Load())
	}
}

func TestIdentifyDebugIsIdempotent(t *testing.T) {
	client := New("", "")
	first, err := client.Identify(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := client.Identify(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if len(first.Names()) != len(second.Names()) || first.Names()[2] != second.Names()[2] {
		t.Fatalf("debug responses differ: %v vs %v", first.Names(), second.Names())
	}
}

func TestIdentifyDebugSamplePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.json")
	if err := os.WriteFile(path, []byte(`{"suggestions":[{"id":"abc","plant_name":"Ficus lyrata"}]}`), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	resp, err := New("", "", WithSamplePath(path)).Identify(context.Background(), nil, true)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if got := resp.Candidates(); len(got) != 1 || got[0].ID != "abc" || got[0].Name != "Ficus lyrata" {
		t.Fatalf("unexpected candidates %+v", got)
	}

	_, err = New("", "", WithSamplePath(filepath.Join(dir, "missing.json"))).Identify(context.Background(), nil, true)
	if !errors.Is(err, services.ErrLoad) {
		t.Fatalf("missing sample: expected ErrLoad, got %v", err)
	}

	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`{"suggestions":`), 0o644); err != nil {
		t.Fatalf("write broken sample: %v", err)
	}
	_, err = New("", "", WithSamplePath(broken)).Identify(context.Background(), nil, true)
	if !errors.Is(err, services.ErrLoad) {
		t.Fatalf("broken sample: expected ErrLoad, got %v", err)
	}
}

func TestIdentifyRequiresAPIKey(t *testing.T) {
	server, hits := unreachableServer(t)
	_, err := New("", server.URL).Identify(context.Background(), imagefile.FromBytes("leaf.png", leafPNG), false)
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if hits.Load() != 0 {
		t.Fatalf("expected no request, got %d", hits.Load())
	}
}

func TestIdentifyRequiresImage(t *testing.T) {
	_, err := New("key", "").Identify(context.Background(), nil, false)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestIdentifySendsImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/identify" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Api-Key"); got != "secret-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("unexpected content type %q", got)
		}
		var payload struct {
			Images []string `json:"images"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(payload.Images) != 1 || payload.Images[0] != base64.StdEncoding.EncodeToString(leafPNG) {
			t.Errorf("unexpected images payload %v", payload.Images)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"suggestions":[{"id":7,"plant_name":"Rosa"},{"id":"8","plant_name":"Tulipa"}],"is_plant":true}`))
	}))
	defer server.Close()

	client := New("secret-key", server.URL, WithHTTPClient(server.Client()))
	resp, err := client.Identify(context.Background(), imagefile.FromBytes("leaf.png", leafPNG), false)
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	want := []Candidate{{ID: "7", Name: "Rosa"}, {ID: "8", Name: "Tulipa"}}
	got := resp.Candidates()
	if len(got) != len(want) {
		t.Fatalf("expected %d candidates, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if resp.IsPlant == nil || !*resp.IsPlant {
		t.Fatal("expected is_plant to decode")
	}
}

func TestIdentifyNon2xxCarriesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid api key\n"))
	}))
	defer server.Close()

	_, err := New("bad-key", server.URL).Identify(context.Background(), imagefile.FromBytes("leaf.png", leafPNG), false)
	if !errors.Is(err, services.ErrRequest) {
		t.Fatalf("expected ErrRequest, got %v", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError in chain, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Body != "invalid api key" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if !IsStatus(err, http.StatusUnauthorized) {
		t.Fatal("IsStatus should match 401")
	}
}

func TestIdentifyUndecodableBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := New("key", server.URL).Identify(context.Background(), imagefile.FromBytes("leaf.png", leafPNG), false)
	if !errors.Is(err, services.ErrRequest) {
		t.Fatalf("expected ErrRequest, got %v", err)
	}
}

func TestSuggestionIDDecoding(t *testing.T) {
	tests := []struct {
		raw  string
		want SuggestionID
	}{
		{`123`, "123"},
		{`"abc-1"`, "abc-1"},
		{`null`, ""},
		{`1.5e3`, "1.5e3"},
	}
	for _, tt := range tests {
		var id SuggestionID
		if err := json.Unmarshal([]byte(tt.raw), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.raw, err)
		}
		if id != tt.want {
			t.Fatalf("unmarshal %s = %q, want %q", tt.raw, id, tt.want)
		}
	}
	var id SuggestionID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Fatal("expected error for object id")
	}
}
