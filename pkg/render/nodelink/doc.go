// Package nodelink renders flow graphs as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz. Every
// node is one candidate in one round, drawn as a box, and every link is an
// arrow labelled with the votes it carries. It is an alternative to the
// Sankey diagram when exact vote transfers matter more than proportions.
//
// # Usage
//
//	dot := nodelink.ToDOT(g, nodelink.Options{HideEmpty: true})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(dot)
//	png, err := nodelink.RenderPNG(dot, 2.0)  // 2x scale
//
// # Options
//
//   - Detailed: node labels also show round, vote share and candidate data
//   - HideEmpty: zero-vote links are left out
//
// # DOT Format
//
// The generated DOT lays rounds out left to right (rankdir=LR), with each
// round in its own rank=same subgraph. Node ids are "n<ID>".
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
