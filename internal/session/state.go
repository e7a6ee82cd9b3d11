package session

import (
	"encoding/json"
	"time"

	"plantscope/internal/services/plantid"
	"plantscope/internal/services/wikimedia"
)

// State is the orchestrator's position in an identification attempt.
type State string

const (
	StateIdle             State = "idle"
	StateIdentifying      State = "identifying"
	StateAwaitingArticles State = "awaiting_articles"
	StateArticlesReady    State = "articles_ready"
)

// ImageInfo describes the selected photo without its bytes.
type ImageInfo struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Snapshot is a copy of everything a presentation layer may show.
type Snapshot struct {
	SessionID   string                `json:"session_id,omitempty"`
	State       State                 `json:"state"`
	Debug       bool                  `json:"debug"`
	Language    string                `json:"language"`
	Image       *ImageInfo            `json:"image,omitempty"`
	Candidates  []plantid.Candidate   `json:"candidates"`
	Articles    [][]wikimedia.Article `json:"articles"`
	Error       string                `json:"error,omitempty"`
	ErrorKind   string                `json:"error_kind,omitempty"`
	LookupError string                `json:"lookup_error,omitempty"`
	RawResponse json.RawMessage       `json:"raw_response,omitempty"`
	StartedAt   time.Time             `json:"started_at,omitzero"`
	FinishedAt  time.Time             `json:"finished_at,omitzero"`
}

// Loading reports whether an attempt is still running.
func (s Snapshot) Loading() bool {
	return s.State == StateIdentifying || s.State == StateAwaitingArticles
}

// ArticlesFor returns the lookup result for candidate i, or nil while
// lookups are pending.
func (s Snapshot) ArticlesFor(i int) []wikimedia.Article {
	if i < 0 || i >= len(s.Articles) {
		return nil
	}
	return s.Articles[i]
}

// Attempt is handed to a Recorder once an identification attempt finishes.
type Attempt struct {
	SessionID   string
	StartedAt   time.Time
	FinishedAt  time.Time
	Debug       bool
	Language    string
	ImageName   string
	Candidates  []plantid.Candidate
	Articles    [][]wikimedia.Article
	IdentifyErr error
	LookupErr   error
	RawResponse json.RawMessage
}

func cloneArticles(in [][]wikimedia.Article) [][]wikimedia.Article {
	if in == nil {
		return nil
	}
	out := make([][]wikimedia.Article, len(in))
	for i, list := range in {
		copied := make([]wikimedia.Article, len(list))
		for j, article := range list {
			if article.Image != nil {
				img := *article.Image
				article.Image = &img
			}
			copied[j] = article
		}
		out[i] = copied
	}
	return out
}

func cloneCandidates(in []plantid.Candidate) []plantid.Candidate {
	if in == nil {
		return nil
	}
	return append([]plantid.Candidate(nil), in...)
}

// CandidateResult pairs a candidate with its Wikipedia articles in the
// snapshot language.
type CandidateResult struct {
	Candidate plantid.Candidate   `json:"candidate"`
	Articles  []wikimedia.Article `json:"articles"`
	Pending   bool                `json:"pending,omitempty"`
}

// Results lines candidates up with their language-filtered articles.
func (s Snapshot) Results() []CandidateResult {
	out := make([]CandidateResult, 0, len(s.Candidates))
	for i, candidate := range s.Candidates {
		result := CandidateResult{Candidate: candidate, Articles: []wikimedia.Article{}}
		if s.State == StateAwaitingArticles {
			result.Pending = true
		} else if articles := s.ArticlesFor(i); articles != nil {
			result.Articles = wikimedia.SelectForLanguage(articles, s.Language)
		}
		out = append(out, result)
	}
	return out
}
