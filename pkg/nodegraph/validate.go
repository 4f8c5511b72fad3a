package nodegraph

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks the structural invariants of the graph: every id
// referenced by a node, pin, link, property or asset resolves to an entity
// of the right kind, adjacency is symmetric, inputs carry at most one link,
// flow outputs at most one, and no id is at or beyond the counter.
// All violations are returned joined, each wrapping ErrCorrupt.
func (g *Graph) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrCorrupt}, args...)...))
	}
	checkID := func(id ID) {
		if id <= NoID || id >= g.nextID {
			bad("id %d outside allocated range", id)
		}
	}

	for _, n := range g.Nodes() {
		checkID(n.ID)
		if n.graph != g {
			bad("node %d detached", n.ID)
		}
		for _, pid := range slices.Concat(n.Inputs, n.Outputs) {
			p := g.pins[pid]
			if p == nil {
				bad("node %d lists missing pin %d", n.ID, pid)
			} else if p.Node != n.ID {
				bad("node %d lists pin %d owned by node %d", n.ID, pid, p.Node)
			}
		}
	}
	for _, p := range g.Pins() {
		checkID(p.ID)
		n := g.nodes[p.Node]
		if n == nil {
			bad("pin %d owned by missing node %d", p.ID, p.Node)
		} else if !slices.Contains(n.pinIDs(p.Direction), p.ID) {
			bad("pin %d not listed by node %d", p.ID, p.Node)
		}
		if p.Direction == Input && len(p.links) > 1 {
			bad("input pin %d has %d links", p.ID, len(p.links))
		}
		if p.Direction == Output && p.Type.Kind == KindFlow && len(p.links) > 1 {
			bad("flow output %d has %d links", p.ID, len(p.links))
		}
		for _, lid := range p.links {
			l := g.links[lid]
			if l == nil || (l.Start != p.ID && l.End != p.ID) {
				bad("pin %d lists foreign link %d", p.ID, lid)
			}
		}
		if p.Property != NoID {
			if g.properties[p.Property] == nil {
				bad("pin %d bound to missing property %d", p.ID, p.Property)
			} else if _, ok := g.bound[p.Property][p.ID]; !ok {
				bad("pin %d binding not indexed", p.ID)
			}
		}
	}
	for _, l := range g.Links() {
		checkID(l.ID)
		start, end := g.pins[l.Start], g.pins[l.End]
		if start == nil || end == nil {
			bad("link %d has missing endpoint", l.ID)
			continue
		}
		if start.Direction != Output || end.Direction != Input {
			bad("link %d joins %s to %s", l.ID, start.Direction, end.Direction)
		}
		if !slices.Contains(start.links, l.ID) || !slices.Contains(end.links, l.ID) {
			bad("link %d not listed by both endpoints", l.ID)
		}
		if !Compatible(start.Type, end.Type) {
			bad("link %d joins %s to %s", l.ID, start.Type, end.Type)
		}
	}
	for _, p := range g.Properties() {
		checkID(p.ID)
		if p.Asset != NoID && g.assets[p.Asset] == nil {
			bad("property %d wraps missing asset %d", p.ID, p.Asset)
		}
	}
	for _, a := range g.Assets() {
		checkID(a.ID)
	}
	return errors.Join(errs...)
}
