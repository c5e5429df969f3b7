package flow

import "slices"

// RoundCount returns the number of rounds in the graph.
func (g *Graph) RoundCount() int { return len(g.NodeGroups) }

// Round returns the sorted nodes of round i, or nil when i is out of range.
func (g *Graph) Round(i int) []*Node {
	if i < 0 || i >= len(g.NodeGroups) {
		return nil
	}
	return g.NodeGroups[i]
}

// Eliminations returns a copy of the candidate index eliminated entering each
// round. Round 0 holds -1.
func (g *Graph) Eliminations() []int { return slices.Clone(g.Eliminated) }

// NodeByID returns the node with the given id.
func (g *Graph) NodeByID(id int) (*Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// Winner returns the leading node of the last round, or nil when the last
// round is empty.
func (g *Graph) Winner() *Node {
	if len(g.NodeGroups) == 0 {
		return nil
	}
	last := g.NodeGroups[len(g.NodeGroups)-1]
	if len(last) == 0 {
		return nil
	}
	return last[0]
}

// Received returns the votes transferred to n when it was created: the
// weight of its redistribution link, or its own votes in the first round.
func (n *Node) Received() float64 {
	for _, l := range n.TargetLinks {
		if l.Kind == Redistribution {
			return l.Votes
		}
	}
	return n.Votes
}

// Label returns the candidate's display label.
func (n *Node) Label() string {
	return n.Data.Label(n.CandidateIndex)
}
