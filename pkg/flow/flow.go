package flow

import (
	"errors"
	"fmt"
	"slices"

	"github.com/matzehuels/dopflow/pkg/tabulation"
)

var (
	// ErrEmptyFlow is returned by [Build] when there are no rounds.
	ErrEmptyFlow = errors.New("flow has no rounds")

	// ErrFirstRound is returned by [Build] when the first round eliminates a
	// candidate, or when a later round claims to be a first-preference round.
	ErrFirstRound = errors.New("only the first round may carry first preferences")

	// ErrVoteCount is returned by [Build] when a round's votes do not have
	// exactly one entry per candidate.
	ErrVoteCount = errors.New("vote count does not match candidate count")

	// ErrInconsistentRound is returned by [Build] when a round refers to a
	// candidate that has no node in the previous round: an out-of-range
	// index or a candidate that was already eliminated.
	ErrInconsistentRound = errors.New("inconsistent round data")

	// ErrZeroTotal is returned by [Build] when the first round holds no
	// votes, leaving vote percentages undefined.
	ErrZeroTotal = errors.New("total votes is zero")
)

// LinkKind distinguishes the two links created for each surviving candidate
// at every transition.
type LinkKind int

const (
	// Redistribution carries votes transferred from the candidate
	// eliminated entering the target's round.
	Redistribution LinkKind = iota
	// Continuation carries the votes the candidate already held.
	Continuation
)

// String returns "redistribution" or "continuation".
func (k LinkKind) String() string {
	if k == Continuation {
		return "continuation"
	}
	return "redistribution"
}

// Node is one surviving candidate's standing in one round.
type Node struct {
	ID             int                  // Sequential in creation order; never renumbered
	Round          int                  // Index of the round this node belongs to
	CandidateIndex int                  // Index into the candidate list
	Data           tabulation.Candidate // Candidate payload, shared with the input

	Votes          float64 // Cumulative votes held at this round
	VotePercentage float64 // Votes / TotalVotes * 100
	Value          float64 // Same as Votes, for consumers expecting a weight

	SourceLinks []*Link // Links leaving this node
	TargetLinks []*Link // Links arriving at this node
	PrevNode    *Node   // Same candidate in the previous round; nil in round 0
}

// Link is a directed flow of votes between nodes in consecutive rounds.
type Link struct {
	Source *Node
	Target *Node
	Votes  float64
	Kind   LinkKind
}

// Graph is the result of [Build].
type Graph struct {
	// Nodes holds every node, grouped by round in round order and sorted by
	// descending votes within each round.
	Nodes []*Node
	// NodeGroups holds one slice per round, sorted like Nodes.
	NodeGroups [][]*Node
	// Links holds every link in creation order: for each surviving
	// candidate, its redistribution link followed by its continuation link.
	Links []*Link
	// TotalVotes is the sum of first-round votes.
	TotalVotes float64
	// Eliminated holds, per round, the candidate index eliminated entering
	// that round (tabulation.FirstPreferences for round 0).
	Eliminated []int
}

// lookup maps candidate index to that candidate's node in one round.
type lookup map[int]*Node

// builder holds the state shared by every round: the node id counter, the
// set of eliminated candidates and the accumulated links.
type builder struct {
	candidates []tabulation.Candidate
	nextID     int
	eliminated map[int]bool
	links      []*Link
}

// Build derives the flow graph for a tabulation.
//
// Rounds are folded in order. Each round produces one node per candidate not
// yet eliminated, excluding the candidate eliminated entering the round.
// From the second round on, each new node starts from its candidate's
// previous total plus the votes transferred to it, and receives a
// redistribution link from the eliminated candidate's previous node and a
// continuation link from its own previous node. Zero-vote redistribution
// links are kept.
//
// Groups are then sorted by descending votes. The sort is stable, so ties
// keep candidate order. Node ids are not renumbered by the sort.
//
// Build returns an error, and no graph, when the rounds are inconsistent
// with the candidate list or with each other. The inputs are never modified.
func Build(candidates []tabulation.Candidate, rounds []tabulation.Round) (*Graph, error) {
	if len(rounds) == 0 {
		return nil, ErrEmptyFlow
	}

	b := &builder{
		candidates: candidates,
		eliminated: make(map[int]bool),
	}

	var prev lookup
	groups := make([][]*Node, 0, len(rounds))
	eliminated := make([]int, 0, len(rounds))
	for i, round := range rounds {
		next, group, err := b.round(i, round, prev)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", i, err)
		}
		groups = append(groups, group)
		eliminated = append(eliminated, round.Eliminated)
		prev = next
	}

	var total float64
	for _, n := range groups[0] {
		total += n.Votes
	}
	if total == 0 {
		return nil, ErrZeroTotal
	}

	nodes := make([]*Node, 0, b.nextID)
	for _, group := range groups {
		slices.SortStableFunc(group, func(x, y *Node) int {
			switch {
			case x.Votes > y.Votes:
				return -1
			case x.Votes < y.Votes:
				return 1
			default:
				return 0
			}
		})
		nodes = append(nodes, group...)
	}

	for _, n := range nodes {
		n.VotePercentage = n.Votes / total * 100
	}

	return &Graph{
		Nodes:      nodes,
		NodeGroups: groups,
		Links:      b.links,
		TotalVotes: total,
		Eliminated: eliminated,
	}, nil
}

// BuildResult is Build applied to a decoded tabulation.
func BuildResult(res *tabulation.Result) (*Graph, error) {
	return Build(res.Candidates, res.Flow)
}

// round builds the nodes of one round from the previous round's lookup and
// returns the new lookup together with the round's nodes in candidate order.
func (b *builder) round(index int, round tabulation.Round, prev lookup) (lookup, []*Node, error) {
	first := index == 0
	if first != round.IsFirst() {
		return nil, nil, ErrFirstRound
	}
	if len(round.Votes) != len(b.candidates) {
		return nil, nil, fmt.Errorf("%w: %d votes for %d candidates", ErrVoteCount, len(round.Votes), len(b.candidates))
	}

	b.eliminated[round.Eliminated] = true

	var from *Node
	if !first {
		var ok bool
		if from, ok = prev[round.Eliminated]; !ok {
			return nil, nil, fmt.Errorf("%w: eliminated candidate %d has no previous node", ErrInconsistentRound, round.Eliminated)
		}
	}

	next := make(lookup, len(round.Votes))
	group := make([]*Node, 0, len(round.Votes))
	for idx, votes := range round.Votes {
		if b.eliminated[idx] {
			continue
		}
		n := &Node{
			ID:             b.nextID,
			Round:          index,
			CandidateIndex: idx,
			Data:           b.candidates[idx],
			Votes:          votes,
		}
		b.nextID++

		if !first {
			prevNode, ok := prev[idx]
			if !ok {
				return nil, nil, fmt.Errorf("%w: candidate %d has no previous node", ErrInconsistentRound, idx)
			}
			n.Votes += prevNode.Votes
			n.PrevNode = prevNode
			b.link(from, n, votes, Redistribution)
			b.link(prevNode, n, prevNode.Votes, Continuation)
		}

		n.Value = n.Votes
		next[idx] = n
		group = append(group, n)
	}
	return next, group, nil
}

func (b *builder) link(source, target *Node, votes float64, kind LinkKind) {
	l := &Link{Source: source, Target: target, Votes: votes, Kind: kind}
	b.links = append(b.links, l)
	source.SourceLinks = append(source.SourceLinks, l)
	target.TargetLinks = append(target.TargetLinks, l)
}
