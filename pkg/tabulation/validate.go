package tabulation

import (
	"math"

	"github.com/matzehuels/dopflow/pkg/errors"
)

// Validate checks the preconditions of the flow builder:
//   - at least one candidate and one round
//   - the first round is FirstPreferences and no later round is
//   - every round has exactly one vote entry per candidate
//   - eliminated indices are in range and never repeat
//   - votes are finite and non-negative
//   - the first-round total is positive
//
// The first violation is returned as an INVALID_TABULATION error.
func (r *Result) Validate() error {
	if len(r.Candidates) == 0 {
		return invalid("no candidates")
	}
	if len(r.Flow) == 0 {
		return invalid("no rounds")
	}
	if !r.Flow[0].IsFirst() {
		return invalid("round 0: eliminated = %d, want %d", r.Flow[0].Eliminated, FirstPreferences)
	}

	eliminated := make(map[int]int, len(r.Flow))
	for i, round := range r.Flow {
		if len(round.Votes) != len(r.Candidates) {
			return invalid("round %d: %d vote entries for %d candidates", i, len(round.Votes), len(r.Candidates))
		}
		for idx, v := range round.Votes {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return invalid("round %d: candidate %d: votes must be finite", i, idx)
			}
			if v < 0 {
				return invalid("round %d: candidate %d: negative votes %g", i, idx, v)
			}
		}
		if i == 0 {
			continue
		}
		if round.IsFirst() {
			return invalid("round %d: only the first round may have eliminated = %d", i, FirstPreferences)
		}
		if round.Eliminated < 0 || round.Eliminated >= len(r.Candidates) {
			return invalid("round %d: eliminated index %d out of range [0, %d)", i, round.Eliminated, len(r.Candidates))
		}
		if prev, ok := eliminated[round.Eliminated]; ok {
			return invalid("round %d: candidate %d already eliminated in round %d", i, round.Eliminated, prev)
		}
		eliminated[round.Eliminated] = i
	}

	if total := r.Flow[0].Total(); total <= 0 {
		return invalid("first-round total is %g, want > 0", total)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidTabulation, format, args...)
}
