// Package graph provides the serialization format for flow graphs.
//
// This package defines the canonical wire format for dopflow's graph data,
// used for JSON files, API responses, caching, and document storage.
//
// # Architecture
//
// The package sits at the serialization boundary between the builder's
// pointer-linked representation and external formats:
//
//   - [Graph], [Node], [Link]: Serialization types (this package)
//   - pkg/flow.Graph: Internal graph representation
//
// Use [FromFlow] and [ToFlow] to convert between them.
//
// # Graph Serialization
//
// Pointers are replaced by node ids:
//
//	{
//	  "total_votes": 100,
//	  "rounds": 2,
//	  "eliminated": [-1, 2],
//	  "nodes": [{"id": 0, "candidate": 0, "round": 0, "label": "A", "votes": 40, "prev": null}],
//	  "groups": [[0, 1, 2], [3, 4]],
//	  "links": [{"source": 2, "target": 3, "votes": 10, "kind": "redistribution"}]
//	}
//
// Common operations:
//
//	g, _ := graph.ReadGraphFile("flow.json")       // File → flow.Graph
//	graph.WriteGraphFile(graph.FromFlow(g), path)  // flow.Graph → File
//	data, _ := graph.MarshalGraph(g)               // flow.Graph → []byte
//	parsed, _ := graph.UnmarshalGraph(data)        // []byte → Graph
//
// The same struct tags serve BSON, so [Graph] is stored as-is by pkg/store.
package graph
