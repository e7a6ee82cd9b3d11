package server

import (
	"plantscope/internal/history"
	"plantscope/internal/session"
)

// SessionResponse is returned by identify, select and session endpoints.
type SessionResponse struct {
	Session      session.Snapshot          `json:"session"`
	Results      []session.CandidateResult `json:"results"`
	Loading      bool                      `json:"loading"`
	Message      string                    `json:"message,omitempty"`
	LookupNotice string                    `json:"lookup_notice,omitempty"`
	EmptyNotice  string                    `json:"empty_notice,omitempty"`
}

// HistoryResponse lists stored attempts.
type HistoryResponse struct {
	Records []*history.Record `json:"records"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}
