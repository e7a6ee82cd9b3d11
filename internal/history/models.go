package history

import (
	"encoding/json"
	"time"

	"plantscope/internal/services/plantid"
)

// Record is one stored identification attempt.
type Record struct {
	ID            string              `json:"id"`
	SessionID     string              `json:"session_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	FinishedAt    time.Time           `json:"finished_at,omitzero"`
	Debug         bool                `json:"debug"`
	Language      string              `json:"language"`
	ImageName     string              `json:"image_name,omitempty"`
	Candidates    []plantid.Candidate `json:"candidates"`
	ArticleCounts []int               `json:"article_counts"`
	IdentifyError string              `json:"identify_error,omitempty"`
	ErrorKind     string              `json:"error_kind,omitempty"`
	LookupError   string              `json:"lookup_error,omitempty"`
	RawResponse   json.RawMessage     `json:"raw_response,omitempty"`
}

// Failed reports whether identification itself failed.
func (r Record) Failed() bool {
	return r.IdentifyError != ""
}

// TotalArticles sums the article counts across candidates.
func (r Record) TotalArticles() int {
	total := 0
	for _, n := range r.ArticleCounts {
		total += n
	}
	return total
}
