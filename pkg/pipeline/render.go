package pipeline

import (
	"bytes"
	"fmt"

	pkgerrors "github.com/matzehuels/dopflow/pkg/errors"
	"github.com/matzehuels/dopflow/pkg/flow"
	"github.com/matzehuels/dopflow/pkg/graph"
	"github.com/matzehuels/dopflow/pkg/render"
	"github.com/matzehuels/dopflow/pkg/render/nodelink"
	"github.com/matzehuels/dopflow/pkg/render/sankey"
)

// RenderFromLayout generates output artifacts in the requested formats.
//
// DOT output is always derived from the graph, so it is available for both
// visualizations. JSON is the layout for Sankey diagrams and the serialized
// graph for node-link diagrams.
//
// g may be nil when only a layout is at hand; formats that need the graph
// (DOT for Sankey, JSON for node-link) then fail with an UNSUPPORTED error.
func RenderFromLayout(l Layout, g *flow.Graph, opts Options) (map[string][]byte, error) {
	if l.IsNodelink() {
		return renderNodelink(l, g, opts)
	}
	if l.Sankey == nil {
		return nil, fmt.Errorf("sankey layout missing coordinates")
	}
	return renderSankey(*l.Sankey, g, opts)
}

func renderSankey(l sankey.Layout, g *flow.Graph, opts Options) (map[string][]byte, error) {
	svgOpts := []sankey.SVGOption{sankey.WithLabels(!opts.NoLabels)}
	if opts.Title != "" {
		svgOpts = append(svgOpts, sankey.WithTitle(opts.Title))
	}

	var svg []byte
	svgOnce := func() []byte {
		if svg == nil {
			svg = sankey.RenderSVG(l, svgOpts...)
		}
		return svg
	}

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = svgOnce()
		case FormatPNG:
			data, err = render.ToPNG(svgOnce(), DefaultPNGScale)
		case FormatPDF:
			data, err = render.ToPDF(svgOnce())
		case FormatJSON:
			data, err = sankey.RenderJSON(l)
		case FormatDOT:
			if g == nil {
				return nil, errNeedsGraph(format, VizTypeSankey)
			}
			data = []byte(nodelink.ToDOT(g, nodelinkOptions(opts)))
		default:
			return nil, fmt.Errorf("unsupported sankey format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func renderNodelink(l Layout, g *flow.Graph, opts Options) (map[string][]byte, error) {
	if l.DOT == "" {
		return nil, fmt.Errorf("nodelink layout missing DOT string")
	}

	artifacts := make(map[string][]byte)
	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = nodelink.RenderSVG(l.DOT)
		case FormatPNG:
			data, err = nodelink.RenderPNG(l.DOT, DefaultPNGScale)
		case FormatPDF:
			data, err = nodelink.RenderPDF(l.DOT)
		case FormatDOT:
			data = []byte(l.DOT)
		case FormatJSON:
			if g == nil {
				return nil, errNeedsGraph(format, VizTypeNodelink)
			}
			gj := graph.FromFlow(g)
			gj.Title = opts.Title
			var buf bytes.Buffer
			err = graph.WriteGraph(gj, &buf)
			data = buf.Bytes()
		default:
			return nil, fmt.Errorf("unsupported nodelink format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func errNeedsGraph(format, vizType string) error {
	return pkgerrors.New(pkgerrors.ErrCodeUnsupported, "%s output of a %s diagram needs the flow graph, not just its layout", format, vizType)
}

func nodelinkOptions(opts Options) nodelink.Options {
	return nodelink.Options{Detailed: opts.Detailed, HideEmpty: opts.HideEmpty}
}
