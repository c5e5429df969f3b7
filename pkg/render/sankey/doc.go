// Package sankey lays out flow graphs as multi-stage Sankey diagrams.
//
// # Overview
//
// Each round of a [flow.Graph] becomes one column. A candidate's node is a
// rectangle whose height is proportional to its votes, and every link is a
// band whose width is proportional to the votes it carries. Redistribution
// bands are drawn stronger than continuation bands.
//
// # Usage
//
//	l := sankey.Compute(g, sankey.DefaultOptions())
//	svg := sankey.RenderSVG(l, sankey.WithTitle("Senate 2022"))
//	data, err := sankey.RenderJSON(l)
//
// [Compute] is deterministic: the same graph and options always produce the
// same coordinates, which are snapped with [render.Snap].
//
// [flow.Graph]: github.com/matzehuels/dopflow/pkg/flow.Graph
// [render.Snap]: github.com/matzehuels/dopflow/pkg/render.Snap
package sankey
