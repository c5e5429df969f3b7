package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/render/nodelink"
	"github.com/matzehuels/dopflow/pkg/render/sankey"
)

// =============================================================================
// Layout - Serializable Layout for Any Visualization
// =============================================================================

// Layout is the positioned form of a flow graph, discriminated by VizType.
// Sankey layouts carry coordinates; node-link layouts carry DOT source that
// Graphviz lays out at render time.
type Layout struct {
	VizType string         `json:"viz_type"`
	Sankey  *sankey.Layout `json:"sankey,omitempty"`
	DOT     string         `json:"dot,omitempty"`
}

// IsSankey reports whether l is a Sankey layout.
func (l Layout) IsSankey() bool { return l.VizType == VizTypeSankey }

// IsNodelink reports whether l is a node-link layout.
func (l Layout) IsNodelink() bool { return l.VizType == VizTypeNodelink }

// MarshalLayout converts a layout to JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.Marshal(l)
}

// UnmarshalLayout decodes a layout and checks its discriminator.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	switch {
	case l.IsSankey() && l.Sankey == nil:
		return Layout{}, fmt.Errorf("sankey layout missing coordinates")
	case l.IsNodelink() && l.DOT == "":
		return Layout{}, fmt.Errorf("nodelink layout missing DOT source")
	case !l.IsSankey() && !l.IsNodelink():
		return Layout{}, fmt.Errorf("unknown viz_type %q", l.VizType)
	}
	return l, nil
}

// =============================================================================
// Layout Generation
// =============================================================================

// GenerateLayout generates a layout for any visualization type.
func GenerateLayout(g *flow.Graph, opts Options) (Layout, error) {
	if err := opts.ValidateForLayout(); err != nil {
		return Layout{}, err
	}
	if opts.IsNodelink() {
		dot := nodelink.ToDOT(g, nodelinkOptions(opts))
		return Layout{VizType: VizTypeNodelink, DOT: dot}, nil
	}
	l := sankey.Compute(g, opts.SankeyOptions())
	return Layout{VizType: VizTypeSankey, Sankey: &l}, nil
}
