package nodegraph

import (
	"fmt"
	"slices"
)

// CreateNode instantiates a node of the given class together with the pins
// its class declares.
func (g *Graph) CreateNode(class string) (*Node, error) {
	cls, ok := g.reg.nodes[class]
	if !ok {
		return nil, fmt.Errorf("%w: node %q", ErrUnknownClass, class)
	}
	n := g.insertNode(g.AllocateID(), cls)
	var pins []*Pin
	for _, spec := range cls.Pins {
		p, err := g.insertPin(g.AllocateID(), n, spec)
		if err != nil {
			// Unreachable for classes that passed RegisterNode.
			g.dropNode(n)
			return nil, err
		}
		n.appendPin(p)
		pins = append(pins, p)
	}
	g.logger.Debug("node created", "id", n.ID, "class", class)
	g.publish(Created, EntityNode, n.ID)
	for _, p := range pins {
		g.publish(Created, EntityPin, p.ID)
	}
	return n, nil
}

// DeleteNode disconnects and removes every pin of the node, then the node
// itself. It reports false when the id is unknown.
func (g *Graph) DeleteNode(id ID) bool {
	n := g.nodes[id]
	if n == nil {
		return false
	}
	n.deleting = true
	g.DisconnectAllPins(id)
	for _, pid := range slices.Concat(n.Inputs, n.Outputs) {
		g.removePin(g.pins[pid])
	}
	if d, ok := n.Behavior.(Disposer); ok {
		d.Dispose(n)
	}
	g.dropNode(n)
	g.logger.Debug("node deleted", "id", id, "class", n.Class)
	g.publish(Deleted, EntityNode, id)
	return true
}

// SetNodePosition moves a node in the editor's canvas space.
func (g *Graph) SetNodePosition(id ID, x, y float64) error {
	n := g.nodes[id]
	if n == nil {
		return fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	n.Position = [2]float64{x, y}
	g.publish(Modified, EntityNode, id)
	return nil
}

// CreatePin adds a pin to an existing node at runtime. Pin names must be
// unique among the node's pins of the same direction.
func (g *Graph) CreatePin(nodeID ID, spec PinSpec) (*Pin, error) {
	n := g.nodes[nodeID]
	if n == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNode, nodeID)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: empty pin name", ErrDuplicateName)
	}
	if n.findPin(n.pinIDs(spec.Direction), spec.Name) != nil {
		return nil, fmt.Errorf("%w: node %d already has %s pin %q", ErrDuplicateName, nodeID, spec.Direction, spec.Name)
	}
	p, err := g.insertPin(g.AllocateID(), n, spec)
	if err != nil {
		return nil, err
	}
	n.appendPin(p)
	g.logger.Debug("pin created", "id", p.ID, "node", nodeID, "name", spec.Name, "class", spec.Class)
	g.publish(Created, EntityPin, p.ID)
	g.publish(Modified, EntityNode, nodeID)
	return p, nil
}

// DeletePin disconnects and removes a pin. It reports false when the id
// is unknown.
func (g *Graph) DeletePin(id ID) bool {
	p := g.pins[id]
	if p == nil {
		return false
	}
	g.DisconnectPin(id)
	n := g.nodes[p.Node]
	g.removePin(p)
	if n != nil {
		n.Inputs = slices.DeleteFunc(n.Inputs, func(x ID) bool { return x == id })
		n.Outputs = slices.DeleteFunc(n.Outputs, func(x ID) bool { return x == id })
		g.publish(Modified, EntityNode, n.ID)
	}
	return true
}

// SetPinDefault replaces the literal a pin carries when it is neither
// linked nor bound.
func (g *Graph) SetPinDefault(id ID, v Value) error {
	p := g.pins[id]
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPin, id)
	}
	if !v.Conforms(p.Type) {
		return fmt.Errorf("%w: %s value for %s pin %q", ErrIncompatibleTypes, v.Kind, p.Type, p.Name)
	}
	p.Default = v.Clone()
	if !p.Linked() {
		p.value = p.Default.Clone()
	}
	g.publish(Modified, EntityPin, id)
	return nil
}

// CreateLink joins an output pin to an input pin. The two ids may be given
// in either order. It fails when the input already has a link, or when a
// flow output already drives a successor; use Reconnect to replace.
func (g *Graph) CreateLink(a, b ID) (*Link, error) {
	out, in, err := g.checkLink(a, b)
	if err != nil {
		return nil, err
	}
	if len(in.links) > 0 {
		return nil, fmt.Errorf("%w: pin %d", ErrInputOccupied, in.ID)
	}
	if out.Type.Kind == KindFlow && len(out.links) > 0 {
		return nil, fmt.Errorf("%w: pin %d", ErrFlowOccupied, out.ID)
	}
	return g.connect(out, in), nil
}

// Reconnect joins an output pin to an input pin, first removing the link
// already occupying the input and, for flow pins, the link already leaving
// the output. Nothing is removed if the new link would be invalid.
func (g *Graph) Reconnect(a, b ID) (*Link, error) {
	out, in, err := g.checkLink(a, b)
	if err != nil {
		return nil, err
	}
	for _, lid := range slices.Clone(in.links) {
		g.DeleteLink(lid)
	}
	if out.Type.Kind == KindFlow {
		for _, lid := range slices.Clone(out.links) {
			g.DeleteLink(lid)
		}
	}
	// Observers of the removed links may have restructured the nodes.
	if g.pins[out.ID] == nil || g.pins[in.ID] == nil {
		return nil, fmt.Errorf("%w: pin removed while reconnecting", ErrUnknownPin)
	}
	return g.connect(out, in), nil
}

// DeleteLink removes a link. It reports false when the id is unknown.
func (g *Graph) DeleteLink(id ID) bool {
	l := g.links[id]
	if l == nil {
		return false
	}
	start, end := g.pins[l.Start], g.pins[l.End]
	start.links = slices.DeleteFunc(start.links, func(x ID) bool { return x == id })
	end.links = slices.DeleteFunc(end.links, func(x ID) bool { return x == id })
	delete(g.links, id)
	g.logger.Debug("link deleted", "id", id, "start", l.Start, "end", l.End)
	g.notifyLink(l, false)
	g.publish(Deleted, EntityLink, id)
	return true
}

// DisconnectPin removes every link attached to a pin. It reports false
// when the id is unknown.
func (g *Graph) DisconnectPin(id ID) bool {
	p := g.pins[id]
	if p == nil {
		return false
	}
	for _, lid := range slices.Clone(p.links) {
		g.DeleteLink(lid)
	}
	return true
}

// DisconnectAllPins removes every link attached to any pin of a node. It
// reports false when the id is unknown.
func (g *Graph) DisconnectAllPins(nodeID ID) bool {
	n := g.nodes[nodeID]
	if n == nil {
		return false
	}
	for _, pid := range slices.Concat(n.Inputs, n.Outputs) {
		g.DisconnectPin(pid)
	}
	return true
}

// checkLink validates a prospective link and returns its endpoints in
// output, input order. Occupancy is not checked.
func (g *Graph) checkLink(a, b ID) (out, in *Pin, err error) {
	pa, pb := g.pins[a], g.pins[b]
	if pa == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPin, a)
	}
	if pb == nil {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownPin, b)
	}
	if pa.Direction == pb.Direction {
		return nil, nil, fmt.Errorf("%w: both pins are %ss", ErrDirection, pa.Direction)
	}
	out, in = pa, pb
	if pa.Direction == Input {
		out, in = pb, pa
	}
	if out.Node == in.Node {
		return nil, nil, fmt.Errorf("%w: node %d", ErrSameNode, out.Node)
	}
	if !Compatible(out.Type, in.Type) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrIncompatibleTypes, out.Type, in.Type)
	}
	return out, in, nil
}

func (g *Graph) connect(out, in *Pin) *Link {
	l := &Link{ID: g.AllocateID(), Start: out.ID, End: in.ID}
	g.links[l.ID] = l
	out.links = append(out.links, l.ID)
	in.links = append(in.links, l.ID)
	g.logger.Debug("link created", "id", l.ID, "start", out.ID, "end", in.ID)
	g.notifyLink(l, true)
	g.publish(Created, EntityLink, l.ID)
	return l
}

func (g *Graph) notifyLink(l *Link, connected bool) {
	if g.loading {
		return
	}
	for _, pid := range []ID{l.Start, l.End} {
		p := g.pins[pid]
		if p == nil {
			continue
		}
		n := g.nodes[p.Node]
		if n == nil || n.deleting {
			continue
		}
		obs, ok := n.Behavior.(LinkObserver)
		if !ok {
			continue
		}
		if connected {
			obs.OnLinkConnected(n, l)
		} else {
			obs.OnLinkDisconnected(n, l)
		}
	}
}

func (g *Graph) insertNode(id ID, cls *NodeClass) *Node {
	n := &Node{ID: id, Class: cls.Name, class: cls, graph: g}
	if cls.New != nil {
		n.Behavior = cls.New()
	}
	if n.Behavior == nil {
		n.Behavior = nopBehavior{}
	}
	g.nodes[id] = n
	return n
}

func (g *Graph) dropNode(n *Node) {
	for _, pid := range slices.Concat(n.Inputs, n.Outputs) {
		delete(g.pins, pid)
	}
	delete(g.nodes, n.ID)
	n.graph = nil
}

func (g *Graph) insertPin(id ID, n *Node, spec PinSpec) (*Pin, error) {
	pc, ok := g.reg.pins[spec.Class]
	if !ok {
		return nil, fmt.Errorf("%w: pin %q", ErrUnknownClass, spec.Class)
	}
	def := Zero(pc.Type)
	if pc.Default != nil {
		def = pc.Default.Clone()
	}
	if spec.Default != nil {
		if !spec.Default.Conforms(pc.Type) {
			return nil, fmt.Errorf("%w: default for %s pin %q", ErrIncompatibleTypes, pc.Type, spec.Name)
		}
		def = spec.Default.Clone()
	}
	p := &Pin{
		ID:        id,
		Name:      spec.Name,
		Class:     spec.Class,
		Type:      pc.Type,
		Direction: spec.Direction,
		Node:      n.ID,
		Default:   def,
		value:     def.Clone(),
	}
	g.pins[id] = p
	return p, nil
}

// removePin drops a disconnected pin and its property binding.
func (g *Graph) removePin(p *Pin) {
	if p == nil {
		return
	}
	g.unbind(p)
	delete(g.pins, p.ID)
	g.logger.Debug("pin deleted", "id", p.ID, "node", p.Node, "name", p.Name)
	g.publish(Deleted, EntityPin, p.ID)
}

func (n *Node) appendPin(p *Pin) {
	if p.Direction == Input {
		n.Inputs = append(n.Inputs, p.ID)
	} else {
		n.Outputs = append(n.Outputs, p.ID)
	}
}

func (n *Node) pinIDs(d Direction) []ID {
	if d == Input {
		return n.Inputs
	}
	return n.Outputs
}

type nopBehavior struct{}

func (nopBehavior) Evaluate(*Context) error { return nil }
