package tracking

import "time"

// PlayRecord is one journal row
type PlayRecord struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Path      string    `json:"path,omitempty"`
	Volume    float64   `json:"volume"`
	Outcome   string    `json:"outcome"`
}

// NameUsage aggregates the requests for one logical name
type NameUsage struct {
	Kind       string    `json:"kind"`
	Name       string    `json:"name"`
	Requests   int       `json:"requests"`
	Played     int       `json:"played"`
	Failed     int       `json:"failed"` // neither played nor skipped
	LastPlayed time.Time `json:"last_played"`
}

// MissingSound is a name that was requested but never resolved to a file
type MissingSound struct {
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	RequestCount int    `json:"request_count"`
}

// Summary is the result of Stats
type Summary struct {
	Total     int            `json:"total"`
	Sessions  int            `json:"sessions"`
	ByOutcome map[string]int `json:"by_outcome"`
	Names     []NameUsage    `json:"names"`
}

// Count returns how many requests ended with outcome
func (s *Summary) Count(outcome string) int {
	return s.ByOutcome[outcome]
}
