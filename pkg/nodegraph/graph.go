package nodegraph

import (
	"cmp"
	"io"
	"maps"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// DefaultEventClass is the node class EvaluateFrame starts chains from
// when Options.EventClass is empty.
const DefaultEventClass = "event.frame"

// Options configures a Graph.
type Options struct {
	// Class names the graph type. It is persisted with the document.
	Class string
	// EventClass is the node class whose instances start a frame.
	EventClass string
	// Resources is used for structural work that needs rendering
	// resources outside a frame, such as introspecting a material's
	// uniforms when it is bound. May be nil.
	Resources scene.RenderProvider
	// Logger receives debug output for mutations and warnings for
	// evaluation failures. Nil discards.
	Logger *log.Logger
}

// Graph is an arena of nodes, pins, links, properties and asset references
// addressed by integer ids drawn from one counter.
//
// All mutations go through Graph methods, which keep pin adjacency, link
// cardinality and property bindings consistent and publish an [Event] after
// each successful change. A Graph is not safe for concurrent use; the
// caller owns it from a single goroutine.
type Graph struct {
	reg        *Registry
	class      string
	eventClass string
	resources  scene.RenderProvider
	logger     *log.Logger

	nextID     ID
	nodes      map[ID]*Node
	pins       map[ID]*Pin
	links      map[ID]*Link
	properties map[ID]*Property
	assets     map[ID]*AssetRef

	// bound maps a property to the pins that reference it.
	bound map[ID]map[ID]struct{}

	listeners    []subscription
	nextListener int
	loading      bool
}

// New returns an empty graph over the variants in reg.
func New(reg *Registry, opts Options) *Graph {
	g := &Graph{
		reg:        reg,
		class:      opts.Class,
		eventClass: opts.EventClass,
		resources:  opts.Resources,
		logger:     opts.Logger,
		nextID:     1,
		nodes:      make(map[ID]*Node),
		pins:       make(map[ID]*Pin),
		links:      make(map[ID]*Link),
		properties: make(map[ID]*Property),
		assets:     make(map[ID]*AssetRef),
		bound:      make(map[ID]map[ID]struct{}),
	}
	if g.eventClass == "" {
		g.eventClass = DefaultEventClass
	}
	if g.logger == nil {
		g.logger = log.New(io.Discard)
	}
	return g
}

// AllocateID returns the next unused id. Ids are never reused, even after
// the entity they named is deleted.
func (g *Graph) AllocateID() ID {
	id := g.nextID
	g.nextID++
	return id
}

// NextID returns the id the next allocation will return.
func (g *Graph) NextID() ID { return g.nextID }

// Registry returns the variants the graph was created with.
func (g *Graph) Registry() *Registry { return g.reg }

// Class returns the graph type name.
func (g *Graph) Class() string { return g.class }

// EventClass returns the node class EvaluateFrame starts from.
func (g *Graph) EventClass() string { return g.eventClass }

// Resources returns the provider for structural resource work, or nil.
func (g *Graph) Resources() scene.RenderProvider { return g.resources }

// SetResources replaces the provider for structural resource work.
func (g *Graph) SetResources(p scene.RenderProvider) { g.resources = p }

// Logger returns the graph's logger.
func (g *Graph) Logger() *log.Logger { return g.logger }

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id ID) *Node { return g.nodes[id] }

// Pin returns the pin with the given id, or nil.
func (g *Graph) Pin(id ID) *Pin { return g.pins[id] }

// Link returns the link with the given id, or nil.
func (g *Graph) Link(id ID) *Link { return g.links[id] }

// Property returns the property with the given id, or nil.
func (g *Graph) Property(id ID) *Property { return g.properties[id] }

// Asset returns the asset reference with the given id, or nil.
func (g *Graph) Asset(id ID) *AssetRef { return g.assets[id] }

// PropertyByName returns the property with the given name, or nil.
func (g *Graph) PropertyByName(name string) *Property {
	for _, p := range g.properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// AssetByName returns the asset reference with the given name, or nil.
func (g *Graph) AssetByName(name string) *AssetRef {
	for _, a := range g.assets {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// Nodes returns all nodes ordered by id.
func (g *Graph) Nodes() []*Node { return sortedByID(g.nodes) }

// Pins returns all pins ordered by id.
func (g *Graph) Pins() []*Pin { return sortedByID(g.pins) }

// Links returns all links ordered by id.
func (g *Graph) Links() []*Link { return sortedByID(g.links) }

// Properties returns all properties ordered by id.
func (g *Graph) Properties() []*Property { return sortedByID(g.properties) }

// Assets returns all asset references ordered by id.
func (g *Graph) Assets() []*AssetRef { return sortedByID(g.assets) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// NodesByClass returns the nodes of the given class ordered by id.
func (g *Graph) NodesByClass(class string) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Class == class {
			out = append(out, n)
		}
	}
	return out
}

// LinksOf returns the links attached to any pin of the node, ordered by id.
func (g *Graph) LinksOf(nodeID ID) []*Link {
	n := g.nodes[nodeID]
	if n == nil {
		return nil
	}
	seen := make(map[ID]*Link)
	for _, pid := range slices.Concat(n.Inputs, n.Outputs) {
		if p := g.pins[pid]; p != nil {
			for _, lid := range p.links {
				seen[lid] = g.links[lid]
			}
		}
	}
	return sortedByID(seen)
}

// Upstream returns the output pin feeding an input pin, or nil.
func (g *Graph) Upstream(inputPin ID) *Pin {
	p := g.pins[inputPin]
	if p == nil || p.Direction != Input || len(p.links) == 0 {
		return nil
	}
	return g.pins[g.links[p.links[0]].Start]
}

// Downstream returns the input pins fed by an output pin, ordered by id.
func (g *Graph) Downstream(outputPin ID) []*Pin {
	p := g.pins[outputPin]
	if p == nil || p.Direction != Output {
		return nil
	}
	out := make([]*Pin, 0, len(p.links))
	for _, lid := range p.links {
		out = append(out, g.pins[g.links[lid].End])
	}
	slices.SortFunc(out, func(a, b *Pin) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// BoundPins returns the pins referencing a property, ordered by id.
func (g *Graph) BoundPins(propertyID ID) []*Pin {
	out := make([]*Pin, 0, len(g.bound[propertyID]))
	for _, id := range slices.Sorted(maps.Keys(g.bound[propertyID])) {
		out = append(out, g.pins[id])
	}
	return out
}

// ResolveProperty returns the property an input pin refers to without
// evaluating the graph: the pin's own binding, or the binding found by
// following links back through [PropertySource] nodes.
func (g *Graph) ResolveProperty(pinID ID) *Property {
	seen := make(map[ID]bool)
	for {
		p := g.pins[pinID]
		if p == nil || seen[pinID] {
			return nil
		}
		seen[pinID] = true
		if p.Property != NoID {
			return g.properties[p.Property]
		}
		up := g.Upstream(pinID)
		if up == nil {
			return nil
		}
		n := g.nodes[up.Node]
		src, ok := n.Behavior.(PropertySource)
		if !ok {
			return nil
		}
		in := src.ForwardedInput(n, up)
		if in == nil {
			return nil
		}
		pinID = in.ID
	}
}

type identified interface {
	*Node | *Pin | *Link | *Property | *AssetRef
}

func sortedByID[T identified](m map[ID]T) []T {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}
