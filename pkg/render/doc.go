// Package render groups the visualizations of node graphs.
//
// # Node-Link Diagrams
//
// The [nodelink] subpackage renders node graphs as Graphviz diagrams with
// one record per node and one port per pin.
//
//	dot := nodelink.ToDOT(g, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// [nodelink]: github.com/matzehuels/mixgraph/pkg/render/nodelink
package render
