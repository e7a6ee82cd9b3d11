package plantid

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Candidate is one possible identification, in upstream order.
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SuggestionID accepts either a JSON number or a JSON string.
type SuggestionID string

// UnmarshalJSON implements json.Unmarshaler.
func (s *SuggestionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = SuggestionID(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("suggestion id: %w", err)
	}
	if _, err := strconv.ParseFloat(num.String(), 64); err != nil {
		return fmt.Errorf("suggestion id %q: %w", num, err)
	}
	*s = SuggestionID(num.String())
	return nil
}

// Suggestion is one entry of the upstream suggestions array.
type Suggestion struct {
	ID          SuggestionID `json:"id"`
	PlantName   string       `json:"plant_name"`
	Probability float64      `json:"probability"`
}

// Response is a decoded identification response. Raw keeps the full body for
// diagnostics.
type Response struct {
	Suggestions        []Suggestion    `json:"suggestions"`
	IsPlant            *bool           `json:"is_plant,omitempty"`
	IsPlantProbability float64         `json:"is_plant_probability,omitempty"`
	Raw                json.RawMessage `json:"-"`
}

// Candidates returns the suggestions as candidates, preserving order.
func (r *Response) Candidates() []Candidate {
	if r == nil {
		return nil
	}
	out := make([]Candidate, 0, len(r.Suggestions))
	for _, s := range r.Suggestions {
		out = append(out, Candidate{ID: string(s.ID), Name: s.PlantName})
	}
	return out
}

// Names returns the plant names of all suggestions in order.
func (r *Response) Names() []string {
	candidates := r.Candidates()
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}

func decodeResponse(body []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	resp.Raw = append(json.RawMessage(nil), body...)
	return &resp, nil
}

// StatusError carries a non-2xx identification response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("plant.id returned %d", e.StatusCode)
	}
	return fmt.Sprintf("plant.id returned %d: %s", e.StatusCode, e.Body)
}
