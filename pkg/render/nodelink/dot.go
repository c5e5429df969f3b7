package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the round, vote share and candidate data in node
	// labels. When false, only the candidate label and votes are shown.
	Detailed bool
	// HideEmpty omits links that carry no votes.
	HideEmpty bool
}

// ToDOT converts a flow graph to Graphviz DOT format for node-link visualization.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Rounds run left to right, one rank per round. Continuation links are drawn
// dashed so redistributions stand out.
func ToDOT(g *flow.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=11];\n")
	buf.WriteString("  ranksep=1.2;\n")
	buf.WriteString("  nodesep=0.3;\n")

	for r, group := range g.NodeGroups {
		fmt.Fprintf(&buf, "\n  subgraph round_%d {\n    rank=same;\n", r)
		for _, n := range group {
			fmt.Fprintf(&buf, "    %s [%s];\n", nodeID(n), strings.Join(fmtAttrs(n, opts.Detailed), ", "))
		}
		buf.WriteString("  }\n")
	}

	buf.WriteString("\n")
	for _, l := range g.Links {
		if opts.HideEmpty && l.Votes == 0 {
			continue
		}
		attrs := []string{fmt.Sprintf("label=%q", fmtVotes(l.Votes))}
		if l.Kind == flow.Continuation {
			attrs = append(attrs, "style=dashed", "color=grey50", "fontcolor=grey50")
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", nodeID(l.Source), nodeID(l.Target), strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeID(n *flow.Node) string {
	return fmt.Sprintf("%q", "n"+strconv.Itoa(n.ID))
}

func fmtLabel(n *flow.Node, detailed bool) string {
	label := n.Label() + "\n" + fmtVotes(n.Votes)
	if !detailed {
		return label
	}

	parts := []string{
		fmt.Sprintf("round: %d", n.Round),
		fmt.Sprintf("share: %.1f%%", n.VotePercentage),
	}
	for _, k := range slices.Sorted(maps.Keys(n.Data)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Data[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *flow.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", fmtLabel(n, detailed))}
	if c := n.Data.Color(); c != "" {
		attrs = append(attrs, fmt.Sprintf("color=%q", c), "penwidth=2")
	}
	return attrs
}

func fmtVotes(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// A scale of 2.0 produces a 2x resolution image.
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}
