package tabulation

import (
	"fmt"
	"maps"
)

// FirstPreferences is the eliminated index carried by the first round,
// before any candidate has been excluded.
const FirstPreferences = -1

// Conventional candidate keys read by renderers.
const (
	KeyName  = "name"
	KeyParty = "party"
	KeyColor = "color"
)

// Candidate is an opaque descriptive payload for one candidate.
// The flow builder stores the map by reference and never reads it.
type Candidate map[string]any

// Name returns the "name" value, or "" when absent or not a string.
func (c Candidate) Name() string { return c.str(KeyName) }

// Party returns the "party" value, or "" when absent or not a string.
func (c Candidate) Party() string { return c.str(KeyParty) }

// Color returns the "color" value, or "" when absent or not a string.
func (c Candidate) Color() string { return c.str(KeyColor) }

func (c Candidate) str(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c[key].(string)
	return s
}

// Label returns a display label for the candidate at index idx,
// falling back to "Candidate N" (1-based) when no name is set.
func (c Candidate) Label(idx int) string {
	if name := c.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Candidate %d", idx+1)
}

// Clone returns a shallow copy of the candidate payload.
func (c Candidate) Clone() Candidate {
	if c == nil {
		return nil
	}
	return maps.Clone(c)
}

// Round is one stage of the count.
type Round struct {
	// Eliminated is the candidate index excluded entering this round,
	// or FirstPreferences for the first round.
	Eliminated int `json:"eliminated" toml:"eliminated" bson:"eliminated"`
	// Votes holds, per candidate index, the votes newly held by or
	// transferred to that candidate in this round.
	Votes []float64 `json:"votes" toml:"votes" bson:"votes"`
}

// IsFirst reports whether the round is the first-preference round.
func (r Round) IsFirst() bool { return r.Eliminated == FirstPreferences }

// Total returns the sum of the round's votes.
func (r Round) Total() float64 {
	var sum float64
	for _, v := range r.Votes {
		sum += v
	}
	return sum
}

// Result is a complete tabulation: the candidates and the ordered rounds.
type Result struct {
	Title      string      `json:"title,omitempty" toml:"title" bson:"title,omitempty"`
	Candidates []Candidate `json:"candidates" toml:"candidates" bson:"candidates"`
	Flow       []Round     `json:"flow" toml:"flow" bson:"flow"`
}

// CandidateLabel returns the display label for candidate idx.
// Out-of-range indices get the generic fallback label.
func (r *Result) CandidateLabel(idx int) string {
	if idx < 0 || idx >= len(r.Candidates) {
		return Candidate(nil).Label(idx)
	}
	return r.Candidates[idx].Label(idx)
}

// TotalVotes returns the first-round total, or 0 when there are no rounds.
func (r *Result) TotalVotes() float64 {
	if len(r.Flow) == 0 {
		return 0
	}
	return r.Flow[0].Total()
}
