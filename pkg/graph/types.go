package graph

import (
	"fmt"

	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/tabulation"
)

// =============================================================================
// Constants
// =============================================================================

// Link kinds as serialized.
const (
	KindRedistribution = "redistribution"
	KindContinuation   = "continuation"
)

// =============================================================================
// Graph - Flow Graph Serialization
// =============================================================================

// Graph is the canonical serialization format for flow graphs.
// Used for API responses, storage, caching, and files.
//
// Pointer relations of [flow.Graph] are replaced by node ids: links name
// their endpoints, nodes name their previous node, and groups list node ids
// in display order.
type Graph struct {
	Title      string  `json:"title,omitempty" bson:"title,omitempty"`
	TotalVotes float64 `json:"total_votes" bson:"total_votes"`
	Rounds     int     `json:"rounds" bson:"rounds"`
	Eliminated []int   `json:"eliminated" bson:"eliminated"`
	Nodes      []Node  `json:"nodes" bson:"nodes"`
	Groups     [][]int `json:"groups" bson:"groups"`
	Links      []Link  `json:"links" bson:"links"`
}

// =============================================================================
// Node
// =============================================================================

// Node is one candidate's standing in one round.
type Node struct {
	ID             int            `json:"id" bson:"id"`
	Candidate      int            `json:"candidate" bson:"candidate"`
	Round          int            `json:"round" bson:"round"`
	Label          string         `json:"label" bson:"label"`
	Votes          float64        `json:"votes" bson:"votes"`
	VotePercentage float64        `json:"vote_percentage" bson:"vote_percentage"`
	Value          float64        `json:"value" bson:"value"`
	Prev           *int           `json:"prev" bson:"prev"` // Previous-round node id; null in round 0
	Data           map[string]any `json:"data,omitempty" bson:"data,omitempty"`
}

// =============================================================================
// Link
// =============================================================================

// Link is a directed vote flow between two node ids.
type Link struct {
	Source int     `json:"source" bson:"source"`
	Target int     `json:"target" bson:"target"`
	Votes  float64 `json:"votes" bson:"votes"`
	Kind   string  `json:"kind" bson:"kind"`
}

// =============================================================================
// flow.Graph ↔ Graph Conversion
// =============================================================================

// FromFlow converts a built flow graph to its serialization format.
// Node order follows g.Nodes (round order, descending votes).
func FromFlow(g *flow.Graph) Graph {
	out := Graph{
		TotalVotes: g.TotalVotes,
		Rounds:     len(g.NodeGroups),
		Eliminated: append([]int(nil), g.Eliminated...),
		Nodes:      make([]Node, len(g.Nodes)),
		Groups:     make([][]int, len(g.NodeGroups)),
		Links:      make([]Link, len(g.Links)),
	}

	for i, n := range g.Nodes {
		out.Nodes[i] = nodeFromFlow(n)
	}
	for i, group := range g.NodeGroups {
		ids := make([]int, len(group))
		for j, n := range group {
			ids[j] = n.ID
		}
		out.Groups[i] = ids
	}
	for i, l := range g.Links {
		out.Links[i] = Link{
			Source: l.Source.ID,
			Target: l.Target.ID,
			Votes:  l.Votes,
			Kind:   l.Kind.String(),
		}
	}
	return out
}

// ToFlow rebuilds a flow graph, restoring node pointers, link lists and
// previous-node references from ids. It returns an error when an id is
// duplicated or refers to a node that does not exist, or when eliminated
// does not hold exactly one entry per round group.
func ToFlow(gj Graph) (*flow.Graph, error) {
	if len(gj.Eliminated) != len(gj.Groups) {
		return nil, fmt.Errorf("eliminated has %d entries for %d rounds", len(gj.Eliminated), len(gj.Groups))
	}
	byID := make(map[int]*flow.Node, len(gj.Nodes))
	g := &flow.Graph{
		TotalVotes: gj.TotalVotes,
		Eliminated: append([]int(nil), gj.Eliminated...),
		Nodes:      make([]*flow.Node, 0, len(gj.Nodes)),
		NodeGroups: make([][]*flow.Node, len(gj.Groups)),
		Links:      make([]*flow.Link, 0, len(gj.Links)),
	}

	for _, nj := range gj.Nodes {
		if _, dup := byID[nj.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", nj.ID)
		}
		n := &flow.Node{
			ID:             nj.ID,
			Round:          nj.Round,
			CandidateIndex: nj.Candidate,
			Data:           tabulation.Candidate(nj.Data),
			Votes:          nj.Votes,
			VotePercentage: nj.VotePercentage,
			Value:          nj.Value,
		}
		byID[nj.ID] = n
		g.Nodes = append(g.Nodes, n)
	}

	for _, nj := range gj.Nodes {
		if nj.Prev == nil {
			continue
		}
		prev, ok := byID[*nj.Prev]
		if !ok {
			return nil, fmt.Errorf("node %d: unknown previous node %d", nj.ID, *nj.Prev)
		}
		byID[nj.ID].PrevNode = prev
	}

	for i, ids := range gj.Groups {
		group := make([]*flow.Node, len(ids))
		for j, id := range ids {
			n, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("group %d: unknown node %d", i, id)
			}
			group[j] = n
		}
		g.NodeGroups[i] = group
	}

	for _, lj := range gj.Links {
		src, ok := byID[lj.Source]
		if !ok {
			return nil, fmt.Errorf("link %d→%d: unknown source", lj.Source, lj.Target)
		}
		dst, ok := byID[lj.Target]
		if !ok {
			return nil, fmt.Errorf("link %d→%d: unknown target", lj.Source, lj.Target)
		}
		l := &flow.Link{Source: src, Target: dst, Votes: lj.Votes, Kind: kindFromString(lj.Kind)}
		g.Links = append(g.Links, l)
		src.SourceLinks = append(src.SourceLinks, l)
		dst.TargetLinks = append(dst.TargetLinks, l)
	}

	return g, nil
}

// =============================================================================
// Internal Helpers
// =============================================================================

func nodeFromFlow(n *flow.Node) Node {
	node := Node{
		ID:             n.ID,
		Candidate:      n.CandidateIndex,
		Round:          n.Round,
		Label:          n.Label(),
		Votes:          n.Votes,
		VotePercentage: n.VotePercentage,
		Value:          n.Value,
		Data:           n.Data,
	}
	if n.PrevNode != nil {
		id := n.PrevNode.ID
		node.Prev = &id
	}
	return node
}

func kindFromString(s string) flow.LinkKind {
	if s == KindContinuation {
		return flow.Continuation
	}
	return flow.Redistribution
}
