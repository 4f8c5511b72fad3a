// Package nodelink renders node graphs as node-link diagrams.
//
// # Overview
//
// This package produces Graphviz diagrams of a [nodegraph.Graph], laid out
// left to right in the direction data and control flow. It is used by the
// dot command of the CLI and by the HTTP API to preview stored graphs.
//
// # Usage
//
// Convert a graph to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Detailed: pin labels include the pin type and, for unlinked inputs,
//     the default value
//   - Properties: graph properties become separate nodes with dotted
//     edges to the pins bound to them
//   - Failed: node ids to highlight, typically taken from the errors of
//     the last evaluated frame
//
// # DOT Format
//
// Nodes are Graphviz records with one port per pin, so links attach to the
// pin they connect. Flow links are bold; data links are plain.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
//
// [nodegraph.Graph]: github.com/matzehuels/mixgraph/pkg/nodegraph.Graph
package nodelink
