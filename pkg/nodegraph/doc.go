// Package nodegraph implements a node-graph dataflow engine.
//
// A [Graph] is an arena of nodes, pins, links, graph properties and asset
// references. Every entity is addressed by an [ID] drawn from one
// monotonically increasing counter per graph, so ids are unique across
// entity kinds and never reused.
//
// # Variants
//
// The set of node, pin, property and asset classes is closed and supplied
// by a [Registry] when the graph is created. A [NodeClass] declares the
// node's static pins and a factory for its [Behavior]. Behaviours opt into
// structural callbacks by implementing [LinkObserver], [PinObserver],
// [PropertyObserver], [PostLoader], [FlowRouter] or [Disposer].
//
// # Pins and Links
//
// A link joins an output pin to an input pin of another node. Types must
// be [Compatible]: identical, or a scalar output widening into an array
// input of the same element kind. An input holds at most one link and a
// flow output drives at most one successor. [Graph.CreateLink] refuses
// occupied pins; [Graph.Reconnect] replaces the existing link.
//
// # Evaluation
//
// Execution follows flow pins. [Graph.EvaluateFlowPinChain] evaluates a
// node, follows its flow output to the next node and repeats, bounded by
// [Evaluator.MaxIterations]. Before a node runs, its data inputs are
// pulled: linked inputs evaluate upstream data-only nodes on demand, bound
// inputs carry the property reference and the rest use their literal
// default. Failures never escape as Go errors; they are appended to the
// [Evaluator] as [EvalError] values.
//
// # Persistence
//
// [Graph.Snapshot] produces a flat [Document] and [Restore] rebuilds a
// graph from one, including the id counter.
//
// # Notifications
//
// [Graph.Subscribe] registers a [Listener] that receives an [Event] after
// every successful mutation.
package nodegraph
