// Package io provides JSON import and export for node graphs.
//
// # Overview
//
// Graphs are persisted as a [nodegraph.Document]: a flat list of nodes,
// pins, links, properties and asset references that refer to each other by
// integer id. The format is designed for:
//
//   - Saving and reloading editor sessions without losing ids or links
//   - Exchanging graphs with the command-line tools and the HTTP API
//   - Storing graphs in any of the [store] backends
//
// # JSON Format
//
//	{
//	  "version": 1,
//	  "class": "mixgraph",
//	  "next_id": 9,
//	  "nodes": [
//	    {"class": "event.frame", "id": 1, "position": [0, 0], "inputs": [], "outputs": [2]}
//	  ],
//	  "pins": [
//	    {"class": "flow", "id": 2, "node": 1, "name": "out", "direction": "output"}
//	  ],
//	  "links": [
//	    {"id": 8, "start": 2, "end": 5}
//	  ]
//	}
//
// Value pins carry their default value; property pins carry the id of the
// property they are bound to. Properties store their class-specific payload
// verbatim and may reference an asset by id.
//
// # Import
//
// Use [ImportJSON] to read a graph from a file path, or [ReadJSON] to read
// from any io.Reader. Both need the [nodegraph.Registry] the graph's classes
// were registered in:
//
//	reg, _ := nodes.NewRegistry()
//	g, err := io.ImportJSON("portal.json", reg, nodegraph.Options{})
//
// Documents written by a newer version of the format are rejected with
// [ErrUnsupportedVersion]. Structural problems (dangling ids, unknown
// classes, links that break the typing rules) are reported by
// [nodegraph.Restore] and wrap [nodegraph.ErrCorrupt] or the matching
// sentinel.
//
// # Export
//
// Use [ExportJSON] to write a graph to a file, or [WriteJSON] to write to any
// io.Writer. Records are written in id order, so exporting an unchanged
// graph twice produces identical bytes.
//
// [store]: github.com/matzehuels/mixgraph/pkg/store
package io
