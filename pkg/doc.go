// Package pkg provides the core libraries of mixgraph, a node-graph
// dataflow engine for mixed-reality compositing.
//
// # Overview
//
// A mixgraph document is a graph of typed nodes joined by links between
// pins. Flow links order side effects; data links carry values. Every
// frame, event nodes start flow chains that end in draw layers, which
// composite a material over the camera feed inside or outside stencil
// volumes:
//
//	graph document (JSON)
//	         ↓
//	    [io] package (decode + restore against a registry)
//	         ↓
//	    [nodegraph] package (pins, links, properties, evaluation)
//	         ↓
//	    [compositor] package (stencil test, blend, winding per layer)
//	         ↓
//	    [scene] package (render provider, stencil registry, camera)
//
// # Quick Start
//
// Build a starter graph and evaluate one frame against a scene:
//
//	reg, _ := nodes.NewRegistry()
//	g := nodegraph.New(reg, nodegraph.Options{Class: nodes.GraphClass})
//	nodes.Chain(g, nodes.Layer{Material: "portal.mat", Mode: int32(compositor.Inside)})
//
//	sc, _ := config.LoadScene("room.toml")
//	sess, _ := session.New(g, sc)
//	defer sess.Close()
//	frame, _ := sess.Step(ctx)
//
// # Main Packages
//
// [nodegraph] - Graph model, type system, document restore and the
// flow-chain evaluator. Built-in node variants live in [nodegraph/nodes].
//
// [compositor] - Stencil modes and the draw state a layer derives from
// the camera position relative to a stencil volume.
//
// [scene] - Math types and the collaborators of an evaluation: render
// provider, stencil registry, clock and video source. The recorder
// implementation captures draw calls for headless runs.
//
// [session] - Headless evaluation of a graph over successive frames, and
// a registry of long-lived sessions with idle expiry.
//
// [store] - Graph document storage (file, memory, Redis, MongoDB,
// PostgreSQL, S3) with content hashing and retries.
//
// [server] - HTTP API over the store and sessions.
//
// [render/nodelink] - Graphviz diagrams of graph documents.
//
// [cache] - Cache of rendered diagrams keyed by document hash.
//
// [io] - JSON import and export of graph documents.
//
// [config], [errors] and [observability] carry settings, coded errors and
// instrumentation hooks shared by all of the above.
//
// # Testing
//
//	go test ./pkg/...                # All tests
//	go test ./pkg/nodegraph/...      # Specific package
//	go test -run Example ./pkg/...   # Examples only
//
// [io]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/io
// [nodegraph]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/nodegraph
// [nodegraph/nodes]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/nodegraph/nodes
// [compositor]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/compositor
// [scene]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/scene
// [session]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/session
// [store]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/store
// [server]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/server
// [render/nodelink]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/render/nodelink
// [cache]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/cache
// [config]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/config
// [errors]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/mixgraph/pkg/observability
package pkg
