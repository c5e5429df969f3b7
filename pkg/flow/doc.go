// Package flow builds the vote-flow graph of a ranked-choice count.
//
// # Overview
//
// A count is a sequence of rounds. In each round after the first, one
// candidate is eliminated and their votes are transferred to the candidates
// still standing. [Build] turns such a count into a layered graph suitable
// for a Sankey-style diagram:
//
//   - one [Node] per standing candidate per round, carrying the candidate's
//     cumulative votes at that round
//   - two [Link] values into every node after the first round: a
//     [Redistribution] link from the eliminated candidate's previous node and
//     a [Continuation] link from the candidate's own previous node
//
// Links only connect consecutive rounds, so the graph is acyclic.
//
// # Usage
//
//	res, err := tabulation.ReadFile("count.json")
//	if err != nil {
//	    return err
//	}
//	g, err := flow.Build(res.Candidates, res.Flow)
//	if err != nil {
//	    return err
//	}
//	for _, n := range g.Round(g.RoundCount() - 1) {
//	    fmt.Printf("%s %.0f (%.1f%%)\n", n.Label(), n.Votes, n.VotePercentage)
//	}
//
// # Ordering
//
// Every round's nodes are sorted by descending votes with a stable sort, so
// candidates with equal votes keep their input order. Node ids record
// creation order (round, then candidate index) and are not affected by the
// sort.
//
// # Errors
//
// Build does not repair input. Rounds that contradict each other or the
// candidate list fail with [ErrFirstRound], [ErrVoteCount] or
// [ErrInconsistentRound]; a first round with no votes fails with
// [ErrZeroTotal]. Use tabulation.Result.Validate for a full precondition
// check with descriptive messages.
//
// # Concurrency
//
// Build has no shared state and may be called concurrently. The returned
// graph is not modified afterwards and is safe for concurrent reads.
package flow
