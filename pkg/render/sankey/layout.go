package sankey

import (
	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/render"
)

// Default layout dimensions.
const (
	DefaultWidth       = 960
	DefaultHeight      = 500
	DefaultNodeWidth   = 24
	DefaultNodePadding = 16
)

// Options configures [Compute].
type Options struct {
	Width       float64 // Drawing width, node columns included
	Height      float64 // Drawing height available to the tallest round
	NodeWidth   float64 // Width of each node rectangle
	NodePadding float64 // Vertical gap between nodes of a round
}

// DefaultOptions returns the default layout dimensions.
func DefaultOptions() Options {
	return Options{
		Width:       DefaultWidth,
		Height:      DefaultHeight,
		NodeWidth:   DefaultNodeWidth,
		NodePadding: DefaultNodePadding,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = d.NodeWidth
	}
	if o.NodePadding < 0 {
		o.NodePadding = d.NodePadding
	}
	return o
}

// Layout holds positioned nodes and link bands for one flow graph.
type Layout struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	NodeWidth  float64 `json:"node_width"`
	Rounds     int     `json:"rounds"`
	TotalVotes float64 `json:"total_votes"`
	Nodes      []Node  `json:"nodes"`
	Links      []Link  `json:"links"`
}

// Node is a positioned node rectangle spanning (X0,Y0)-(X1,Y1).
type Node struct {
	ID             int     `json:"id"`
	Round          int     `json:"round"`
	Candidate      int     `json:"candidate"`
	Label          string  `json:"label"`
	Color          string  `json:"color"`
	Votes          float64 `json:"votes"`
	VotePercentage float64 `json:"vote_percentage"`
	X0             float64 `json:"x0"`
	Y0             float64 `json:"y0"`
	X1             float64 `json:"x1"`
	Y1             float64 `json:"y1"`
}

// Link is a band from the right edge of its source node (X0, centred on Y0)
// to the left edge of its target node (X1, centred on Y1).
type Link struct {
	Source int     `json:"source"`
	Target int     `json:"target"`
	Votes  float64 `json:"votes"`
	Kind   string  `json:"kind"`
	Width  float64 `json:"width"`
	X0     float64 `json:"x0"`
	Y0     float64 `json:"y0"`
	X1     float64 `json:"x1"`
	Y1     float64 `json:"y1"`
}

// Compute positions every node and link of g.
//
// Each round is one column. Nodes are stacked top-down in group order with
// NodePadding between them, and node heights share one vote scale chosen so
// the round with the most nodes fills Height. Link bands stack within their
// endpoints in link order. All coordinates are snapped to whole units.
func Compute(g *flow.Graph, opts Options) Layout {
	opts = opts.withDefaults()
	l := Layout{
		Width:      opts.Width,
		Height:     opts.Height,
		NodeWidth:  opts.NodeWidth,
		Rounds:     g.RoundCount(),
		TotalVotes: g.TotalVotes,
	}
	if l.Rounds == 0 {
		return l
	}

	maxLen := 0
	for _, group := range g.NodeGroups {
		maxLen = max(maxLen, len(group))
	}
	var scale float64
	if g.TotalVotes > 0 {
		scale = max(0, (opts.Height-opts.NodePadding*float64(maxLen-1))/g.TotalVotes)
	}
	dx := (opts.Width - opts.NodeWidth) / float64(max(l.Rounds-1, 1))

	index := make(map[*flow.Node]int, len(g.Nodes))
	l.Nodes = make([]Node, 0, len(g.Nodes))
	for r, group := range g.NodeGroups {
		x := float64(r) * dx
		y := 0.0
		for _, n := range group {
			h := n.Votes * scale
			index[n] = len(l.Nodes)
			l.Nodes = append(l.Nodes, Node{
				ID:             n.ID,
				Round:          r,
				Candidate:      n.CandidateIndex,
				Label:          n.Label(),
				Color:          colorFor(n),
				Votes:          n.Votes,
				VotePercentage: n.VotePercentage,
				X0:             x,
				Y0:             y,
				X1:             x + opts.NodeWidth,
				Y1:             y + h,
			})
			y += h + opts.NodePadding
		}
	}
	pos := func(n *flow.Node) *Node { return &l.Nodes[index[n]] }

	bands := make(map[*flow.Link]*Link, len(g.Links))
	l.Links = make([]Link, len(g.Links))
	for i, fl := range g.Links {
		l.Links[i] = Link{
			Source: fl.Source.ID,
			Target: fl.Target.ID,
			Votes:  fl.Votes,
			Kind:   fl.Kind.String(),
			Width:  fl.Votes * scale,
			X0:     pos(fl.Source).X1,
			X1:     pos(fl.Target).X0,
		}
		bands[fl] = &l.Links[i]
	}
	for _, n := range g.Nodes {
		p := pos(n)
		y := p.Y0
		for _, fl := range n.SourceLinks {
			b := bands[fl]
			b.Y0 = y + b.Width/2
			y += b.Width
		}
		y = p.Y0
		for _, fl := range n.TargetLinks {
			b := bands[fl]
			b.Y1 = y + b.Width/2
			y += b.Width
		}
	}

	snap(&l)
	return l
}

func snap(l *Layout) {
	for i := range l.Nodes {
		n := &l.Nodes[i]
		n.X0, n.Y0, n.X1, n.Y1 = render.Snap(n.X0), render.Snap(n.Y0), render.Snap(n.X1), render.Snap(n.Y1)
	}
	for i := range l.Links {
		k := &l.Links[i]
		k.X0, k.Y0, k.X1, k.Y1 = render.Snap(k.X0), render.Snap(k.Y0), render.Snap(k.X1), render.Snap(k.Y1)
		k.Width = render.Snap(k.Width)
	}
}

// palette colours candidates that carry no colour of their own.
var palette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

func colorFor(n *flow.Node) string {
	if c := n.Data.Color(); c != "" {
		return c
	}
	return palette[n.CandidateIndex%len(palette)]
}
