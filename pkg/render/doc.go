// Package render provides visualization rendering for flow graphs.
//
// # Overview
//
// This package holds the helpers shared by every renderer:
//
//   - Coordinate snapping ([Snap], [SnapAll])
//   - Attribute merging ([Extend])
//   - Generic format conversion (SVG to PDF/PNG)
//
// The renderers themselves live in subpackages:
//
//   - [sankey]: multi-stage flow diagram (columns per round, vote bands)
//   - [nodelink]: Graphviz diagram of nodes and vote links
//
// # Format Conversion
//
// The [ToPDF] and [ToPNG] functions convert any SVG to other formats using
// the external rsvg-convert tool (from librsvg).
//
//	svg := sankey.RenderSVG(layout, sankey.WithTitle("Senate"))
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// [sankey]: github.com/matzehuels/dopflow/pkg/render/sankey
// [nodelink]: github.com/matzehuels/dopflow/pkg/render/nodelink
package render
