package nodegraph

import (
	"slices"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Behavior is the per-node logic of a node class.
type Behavior interface {
	// Evaluate computes the node's outputs from its inputs. A returned
	// *EvalError is recorded as is; any other error is recorded as an
	// evaluationError.
	Evaluate(c *Context) error
}

// LinkObserver is implemented by behaviours that react to links being
// attached to or detached from one of their pins. Both endpoint nodes are
// notified.
type LinkObserver interface {
	OnLinkConnected(n *Node, l *Link)
	OnLinkDisconnected(n *Node, l *Link)
}

// PinObserver is implemented by behaviours that react to a pin's property
// binding changing, directly or through an upstream [PropertySource].
type PinObserver interface {
	OnPinChanged(n *Node, p *Pin)
}

// PropertyObserver is implemented by behaviours that hold property
// references of their own. It runs after the graph has cleared every pin
// bound to the property and before the property is removed.
type PropertyObserver interface {
	OnPropertyDeleted(n *Node, p *Property)
}

// PostLoader is implemented by behaviours that finish their setup after a
// document has been fully restored.
type PostLoader interface {
	PostLoad(n *Node) error
}

// PropertySource is implemented by behaviours that forward a property
// reference from an input to an output, so that downstream nodes can
// resolve the property without evaluating the graph.
type PropertySource interface {
	// ForwardedInput returns the input pin whose property out carries.
	ForwardedInput(n *Node, out *Pin) *Pin
}

// FlowRouter is implemented by flow nodes that pick their successor output
// at evaluation time. Without it the first flow output is followed.
type FlowRouter interface {
	NextFlowPin(n *Node) *Pin
}

// Disposer is implemented by behaviours holding external subscriptions.
// Dispose runs when the node is deleted.
type Disposer interface {
	Dispose(n *Node)
}

// Node is one vertex of the graph.
type Node struct {
	ID       ID
	Class    string
	Position [2]float64
	// Inputs and Outputs list the node's pin ids in declaration order.
	Inputs   []ID
	Outputs  []ID
	Behavior Behavior

	class    *NodeClass
	graph    *Graph
	deleting bool
}

// Graph returns the graph owning n, or nil once n is deleted.
func (n *Node) Graph() *Graph { return n.graph }

// Descriptor returns the node's class descriptor.
func (n *Node) Descriptor() *NodeClass { return n.class }

// Input returns the input pin with the given name.
func (n *Node) Input(name string) *Pin { return n.findPin(n.Inputs, name) }

// Output returns the output pin with the given name.
func (n *Node) Output(name string) *Pin { return n.findPin(n.Outputs, name) }

// InputPins returns the input pins in order.
func (n *Node) InputPins() []*Pin { return n.resolvePins(n.Inputs) }

// OutputPins returns the output pins in order.
func (n *Node) OutputPins() []*Pin { return n.resolvePins(n.Outputs) }

// HasFlowPins reports whether the node takes part in flow chains.
func (n *Node) HasFlowPins() bool {
	for _, p := range n.resolvePins(slices.Concat(n.Inputs, n.Outputs)) {
		if p.Type.Kind == KindFlow {
			return true
		}
	}
	return false
}

// OutputFlowPin returns the flow output the chain continues through.
func (n *Node) OutputFlowPin() *Pin {
	if r, ok := n.Behavior.(FlowRouter); ok {
		return r.NextFlowPin(n)
	}
	for _, p := range n.OutputPins() {
		if p.Type.Kind == KindFlow {
			return p
		}
	}
	return nil
}

// IsStatic reports whether p was declared by the node class rather than
// created at runtime.
func (n *Node) IsStatic(p *Pin) bool {
	for _, s := range n.class.Pins {
		if s.Name == p.Name && s.Direction == p.Direction && s.Class == p.Class {
			return true
		}
	}
	return false
}

func (n *Node) findPin(ids []ID, name string) *Pin {
	if n.graph == nil {
		return nil
	}
	for _, id := range ids {
		if p := n.graph.pins[id]; p != nil && p.Name == name {
			return p
		}
	}
	return nil
}

func (n *Node) resolvePins(ids []ID) []*Pin {
	if n.graph == nil {
		return nil
	}
	out := make([]*Pin, 0, len(ids))
	for _, id := range ids {
		if p := n.graph.pins[id]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// Pin is a typed connection point on a node.
type Pin struct {
	ID        ID
	Name      string
	Class     string
	Type      PinType
	Direction Direction
	Node      ID
	// Default is the literal used when the pin is neither linked nor bound.
	Default Value
	// Property is the bound property, or NoID.
	Property ID

	links []ID
	value Value
}

// Links returns the ids of links attached to the pin.
func (p *Pin) Links() []ID { return slices.Clone(p.links) }

// Linked reports whether any link is attached.
func (p *Pin) Linked() bool { return len(p.links) > 0 }

// Value returns the pin's current value: the last pulled input or the
// last written output.
func (p *Pin) Value() Value { return p.value }

// Link joins an output pin (Start) to an input pin (End).
type Link struct {
	ID    ID
	Start ID
	End   ID
}

// Property is a named, graph-scoped value that pins may reference by id.
type Property struct {
	ID    ID
	Name  string
	Class string
	// Asset is the wrapped asset reference, or NoID.
	Asset ID
	// Value is the class payload, as returned by PropertyClass.New.
	Value any

	res *resolved
}

type resolved struct {
	provider scene.RenderProvider
	class    *AssetClass
	path     string
	handle   scene.Handle
}

// AssetRef is a named, graph-scoped reference to an external resource
// path.
type AssetRef struct {
	ID    ID
	Name  string
	Class string
	Path  string
}
