package nodegraph

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/mixgraph/pkg/observability"
)

// Evaluate pulls the node's inputs and runs its behaviour. Failures are
// recorded on ev and reported as false.
func (n *Node) Evaluate(ev *Evaluator) bool {
	g := n.graph
	if g == nil || g.nodes[n.ID] != n {
		ev.Report(&EvalError{Kind: InvalidNode, NodeID: n.ID, Message: "node is not part of a graph"})
		return false
	}
	if ev.InputEvaluation() && !g.pullInputs(ev, n) {
		return false
	}
	ev.evaluations++
	if err := n.Behavior.Evaluate(&Context{Eval: ev, Graph: g, Node: n}); err != nil {
		e := asEvalError(n, err)
		ev.Report(e)
		g.logger.Warn("node evaluation failed", "node", n.ID, "class", n.Class, "kind", e.Kind, "err", e)
		return false
	}
	return true
}

// pullInputs refreshes every data input of n from its link, its property
// binding or its literal default, in declaration order. Upstream nodes
// without flow pins are evaluated on demand; flow nodes are read as they
// were left by their own chain.
func (g *Graph) pullInputs(ev *Evaluator, n *Node) bool {
	for _, pid := range n.Inputs {
		p := g.pins[pid]
		if p == nil || p.Type.Kind == KindFlow {
			continue
		}
		switch {
		case len(p.links) > 0:
			src := g.pins[g.links[p.links[0]].Start]
			up := g.nodes[src.Node]
			if up == nil {
				ev.Report(&EvalError{Kind: InvalidNode, NodeID: src.Node, PinID: p.ID, Message: "upstream node missing"})
				return false
			}
			if !up.HasFlowPins() {
				if ev.visiting[up.ID] {
					ev.Report(&EvalError{Kind: EvaluationError, NodeID: n.ID, PinID: p.ID, Message: fmt.Sprintf("data cycle through node %d", up.ID)})
					return false
				}
				ev.visiting[up.ID] = true
				ok := up.Evaluate(ev)
				delete(ev.visiting, up.ID)
				if !ok {
					return false
				}
			}
			p.value = src.value.Widen(p.Type)
		case p.Property != NoID:
			p.value = PropertyRef(p.Property)
		default:
			p.value = p.Default.Clone()
		}
	}
	return true
}

// EvaluateFlowPinChain evaluates start and then follows flow links from
// node to node until a node has no successor. It stops at the first
// failing node. A chain that runs more than ev.MaxIterations node
// evaluations records an infiniteLoop error and stops. It reports whether
// the chain completed.
func (g *Graph) EvaluateFlowPinChain(ev *Evaluator, start *Node) bool {
	if start == nil || g.nodes[start.ID] != start {
		e := &EvalError{Kind: InvalidNode, Message: "flow chain start is not part of the graph"}
		if start != nil {
			e.NodeID = start.ID
		}
		ev.Report(e)
		return false
	}
	limit := ev.maxIterations()
	count := 0
	for n := start; n != nil; n = g.flowSuccessor(n) {
		if count >= limit {
			ev.Report(&EvalError{Kind: InfiniteLoop, NodeID: n.ID, Message: fmt.Sprintf("flow chain exceeded %d evaluations", limit)})
			g.logger.Warn("flow chain aborted", "start", start.ID, "node", n.ID, "limit", limit)
			return false
		}
		if !n.Evaluate(ev) {
			return false
		}
		count++
	}
	return true
}

func (g *Graph) flowSuccessor(n *Node) *Node {
	out := n.OutputFlowPin()
	if out == nil || len(out.links) == 0 {
		return nil
	}
	in := g.pins[g.links[out.links[0]].End]
	if in == nil {
		return nil
	}
	return g.nodes[in.Node]
}

// EvaluateEvent runs a flow chain from every node of the given class in id
// order. A failing chain does not stop the others. It reports whether all
// chains completed.
func (g *Graph) EvaluateEvent(ev *Evaluator, class string) bool {
	ok := true
	for _, n := range g.NodesByClass(class) {
		if !g.EvaluateFlowPinChain(ev, n) {
			ok = false
		}
	}
	return ok
}

// EvaluateFrame runs the chains of the graph's event class and reports the
// frame to the registered observability hooks.
func (g *Graph) EvaluateFrame(ctx context.Context, ev *Evaluator) bool {
	hooks := observability.Eval()
	starts := g.NodesByClass(g.eventClass)
	hooks.OnFrameStart(ctx, g.class, len(starts))
	began := time.Now()
	before := len(ev.errs)

	ok := true
	for _, n := range starts {
		if ctx.Err() != nil {
			ok = false
			break
		}
		if !g.EvaluateFlowPinChain(ev, n) {
			ok = false
		}
	}

	for _, e := range ev.errs[before:] {
		class := ""
		if n := g.nodes[e.NodeID]; n != nil {
			class = n.Class
		}
		hooks.OnNodeError(ctx, class, e.Kind.String())
	}
	hooks.OnFrameComplete(ctx, g.class, ev.evaluations, len(ev.errs)-before, time.Since(began))
	return ok
}
