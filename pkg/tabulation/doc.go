// Package tabulation defines the input model for dopflow: a precomputed
// ranked-choice count expressed as a candidate list plus an ordered list of
// elimination rounds.
//
// # Format
//
// Results are read from JSON (the canonical format) or TOML:
//
//	{
//	  "title": "Example count",
//	  "candidates": [{"name": "A"}, {"name": "B"}, {"name": "C"}],
//	  "flow": [
//	    {"eliminated": -1, "votes": [40, 35, 25]},
//	    {"eliminated": 2,  "votes": [10, 15, 0]}
//	  ]
//	}
//
// The first round carries [FirstPreferences] (-1) as its eliminated index.
// Every later round names the candidate eliminated entering it, and its
// votes are the counts transferred to each candidate in that round, not
// running totals.
//
// Candidates are opaque key/value payloads. Only renderers look at the
// conventional keys "name", "party" and "color".
//
// # Validation
//
// [Result.Validate] checks every precondition the flow builder relies on
// and reports the first violation as a coded INVALID_TABULATION error.
package tabulation
