package testsupport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Upstream fakes the Plant.id and Wikimedia endpoints on one server:
// POST /identify, POST /token-refresh and GET /articles/{name}.
type Upstream struct {
	Server *httptest.Server

	mu              sync.Mutex
	suggestions     []string
	articles        map[string]string
	identifyStatus  int
	identifyBody    string
	validToken      string
	identifyCalls   int
	refreshCalls    int
	articleRequests []string
}

// NewUpstream starts a fake upstream that accepts access token "access-1".
func NewUpstream(t testing.TB) *Upstream {
	t.Helper()

	u := &Upstream{
		articles:       map[string]string{},
		identifyStatus: http.StatusOK,
		validToken:     "access-1",
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Server.Close)
	return u
}

// URL is the server base URL.
func (u *Upstream) URL() string {
	return u.Server.URL
}

// SetSuggestions configures the plant names /identify returns, in order.
func (u *Upstream) SetSuggestions(names ...string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.suggestions = append([]string(nil), names...)
}

// SetArticle configures the JSON body served for name.
func (u *Upstream) SetArticle(name, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.articles[name] = body
}

// SetWikipediaArticle serves one article for name in lang.
func (u *Upstream) SetWikipediaArticle(name, lang string) {
	body := fmt.Sprintf(`{"name":%q,"url":"https://%s.wikipedia.org/wiki/%s","in_language":{"identifier":%q}}`,
		name, lang, strings.ReplaceAll(name, " ", "_"), lang)
	u.SetArticle(name, body)
}

// FailIdentify makes /identify answer with status and body.
func (u *Upstream) FailIdentify(status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.identifyStatus = status
	u.identifyBody = body
}

// IdentifyCalls returns how many identification requests arrived.
func (u *Upstream) IdentifyCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.identifyCalls
}

// RefreshCalls returns how many token refreshes arrived.
func (u *Upstream) RefreshCalls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.refreshCalls
}

// ArticleRequests returns the names requested so far.
func (u *Upstream) ArticleRequests() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.articleRequests...)
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/identify":
		u.identifyCalls++
		if u.identifyStatus != http.StatusOK {
			w.WriteHeader(u.identifyStatus)
			_, _ = w.Write([]byte(u.identifyBody))
			return
		}
		type suggestion struct {
			ID        int    `json:"id"`
			PlantName string `json:"plant_name"`
		}
		payload := struct {
			Suggestions []suggestion `json:"suggestions"`
		}{Suggestions: []suggestion{}}
		for i, name := range u.suggestions {
			payload.Suggestions = append(payload.Suggestions, suggestion{ID: i + 1, PlantName: name})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	case r.Method == http.MethodPost && r.URL.Path == "/token-refresh":
		u.refreshCalls++
		u.validToken = fmt.Sprintf("access-%d", u.refreshCalls+1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":%q,"expires_in":86400}`, u.validToken)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/articles/"):
		name := strings.TrimPrefix(r.URL.Path, "/articles/")
		u.articleRequests = append(u.articleRequests, name)
		if r.Header.Get("Authorization") != "Bearer "+u.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, ok := u.articles[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	default:
		http.NotFound(w, r)
	}
}
