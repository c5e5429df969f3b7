// Package pkg provides the libraries behind dopflow, which turns
// round-by-round ranked-choice tabulations into vote-flow diagrams.
//
// # Overview
//
// A tabulation lists the candidates and, for every round of the count, the
// candidate eliminated entering the round and the votes each candidate
// received in it. dopflow folds those rounds into a flow graph: one node per
// surviving candidate per round, linked by the votes that stayed with a
// candidate and the votes that moved from the eliminated one.
//
// # Architecture
//
//	Tabulation (JSON or TOML)
//	         ↓
//	    [tabulation] package (decode + validate)
//	         ↓
//	    [flow] package (nodes, links, round groups)
//	         ↓
//	    [render/sankey] or [render/nodelink] (layout + drawing)
//	         ↓
//	    SVG/DOT/JSON/PNG/PDF output
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/dopflow/pkg/flow"
//	    "github.com/matzehuels/dopflow/pkg/render/sankey"
//	    "github.com/matzehuels/dopflow/pkg/tabulation"
//	)
//
//	res, _ := tabulation.ReadFile("senate.toml")
//	g, _ := flow.BuildResult(res)
//	l := sankey.Compute(g, sankey.DefaultOptions())
//	svg := sankey.RenderSVG(l, sankey.WithTitle(res.Title))
//
// # Main Packages
//
// [tabulation] - Input model and JSON/TOML decoding.
//
// [flow] - The flow graph builder and its query helpers.
//
// [graph] - JSON node-link serialization of flow graphs.
//
// [render/sankey] - Column layout and SVG drawing for Sankey diagrams.
//
// [render/nodelink] - Graphviz DOT generation and rendering.
//
// [render] - SVG to PDF/PNG conversion and coordinate snapping.
//
// [pipeline] - Load → build → layout → render with caching, shared by the CLI
// and the HTTP API.
//
// [cache] - File, Redis and null caches keyed by content hashes.
//
// [store] - Stored graph records in memory or MongoDB.
//
// [config] - TOML configuration with environment overrides.
//
// [observability] - Hooks for pipeline stages and HTTP requests.
//
// [errors] - Coded errors mapped to CLI messages and HTTP statuses.
//
// [tabulation]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/tabulation
// [flow]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/flow
// [graph]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/graph
// [render/sankey]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/render/sankey
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/render/nodelink
// [render]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/render
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/cache
// [store]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/store
// [config]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/dopflow/pkg/errors
package pkg
