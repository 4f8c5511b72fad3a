package nodegraph

import (
	"fmt"
	"slices"
	"sort"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Direction is the side of a node a pin sits on.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// MarshalText encodes the direction by name.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText decodes "input" or "output".
func (d *Direction) UnmarshalText(b []byte) error {
	switch string(b) {
	case "input":
		*d = Input
	case "output":
		*d = Output
	default:
		return fmt.Errorf("unknown pin direction %q", b)
	}
	return nil
}

// PinSpec declares one pin of a node class, or a pin created at runtime.
type PinSpec struct {
	Name      string
	Class     string
	Direction Direction
	// Default overrides the pin class default when non-nil.
	Default *Value
}

// NodeClass is the static descriptor of a node variant.
type NodeClass struct {
	Name        string
	Category    string
	Description string
	// Event marks entry points of a flow chain.
	Event bool
	Pins  []PinSpec
	// New constructs the behaviour of a fresh node. Nil means the node
	// does nothing when evaluated.
	New func() Behavior
}

// PinClass is the static descriptor of a pin variant.
type PinClass struct {
	Name string
	Type PinType
	// Default is the literal a new pin starts with. The zero Value of Type
	// is used when unset.
	Default *Value
}

// PropertyClass is the static descriptor of a graph property variant.
type PropertyClass struct {
	Name string
	// Asset names the asset class the property wraps, if any.
	Asset string
	// New returns a pointer to a fresh payload. The payload is persisted
	// as JSON. Nil means the class carries no payload.
	New func() any
}

// AssetClass is the static descriptor of an asset reference variant.
type AssetClass struct {
	Name string
	// Load resolves a path to a rendering handle.
	Load func(p scene.RenderProvider, path string) (scene.Handle, error)
	// Release gives a handle obtained from Load back to the provider.
	Release func(p scene.RenderProvider, h scene.Handle)
}

// Registry holds the variants a graph type supports. It is populated once
// before graphs are created and must not change afterwards.
type Registry struct {
	nodes      map[string]*NodeClass
	pins       map[string]*PinClass
	properties map[string]*PropertyClass
	assets     map[string]*AssetClass
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:      make(map[string]*NodeClass),
		pins:       make(map[string]*PinClass),
		properties: make(map[string]*PropertyClass),
		assets:     make(map[string]*AssetClass),
	}
}

// RegisterPin adds a pin class.
func (r *Registry) RegisterPin(c PinClass) error {
	if c.Name == "" {
		return fmt.Errorf("%w: pin class without name", ErrInvalidClass)
	}
	if _, ok := r.pins[c.Name]; ok {
		return fmt.Errorf("%w: pin %q", ErrDuplicateClass, c.Name)
	}
	if c.Default != nil && !c.Default.Conforms(c.Type) {
		return fmt.Errorf("%w: pin %q default is not a %s", ErrInvalidClass, c.Name, c.Type)
	}
	r.pins[c.Name] = &c
	return nil
}

// RegisterAsset adds an asset class.
func (r *Registry) RegisterAsset(c AssetClass) error {
	if c.Name == "" {
		return fmt.Errorf("%w: asset class without name", ErrInvalidClass)
	}
	if _, ok := r.assets[c.Name]; ok {
		return fmt.Errorf("%w: asset %q", ErrDuplicateClass, c.Name)
	}
	r.assets[c.Name] = &c
	return nil
}

// RegisterProperty adds a property class. The wrapped asset class, if
// any, must already be registered.
func (r *Registry) RegisterProperty(c PropertyClass) error {
	if c.Name == "" {
		return fmt.Errorf("%w: property class without name", ErrInvalidClass)
	}
	if _, ok := r.properties[c.Name]; ok {
		return fmt.Errorf("%w: property %q", ErrDuplicateClass, c.Name)
	}
	if c.Asset != "" {
		if _, ok := r.assets[c.Asset]; !ok {
			return fmt.Errorf("%w: property %q wraps unknown asset class %q", ErrInvalidClass, c.Name, c.Asset)
		}
	}
	r.properties[c.Name] = &c
	return nil
}

// RegisterNode adds a node class. Every pin it declares must reference a
// registered pin class, and pin names must be unique per direction.
func (r *Registry) RegisterNode(c NodeClass) error {
	if c.Name == "" {
		return fmt.Errorf("%w: node class without name", ErrInvalidClass)
	}
	if _, ok := r.nodes[c.Name]; ok {
		return fmt.Errorf("%w: node %q", ErrDuplicateClass, c.Name)
	}
	seen := make(map[Direction]map[string]bool, 2)
	for _, p := range c.Pins {
		pc, ok := r.pins[p.Class]
		if !ok {
			return fmt.Errorf("%w: node %q pin %q has unknown class %q", ErrInvalidClass, c.Name, p.Name, p.Class)
		}
		if p.Default != nil && !p.Default.Conforms(pc.Type) {
			return fmt.Errorf("%w: node %q pin %q default is not a %s", ErrInvalidClass, c.Name, p.Name, pc.Type)
		}
		if seen[p.Direction] == nil {
			seen[p.Direction] = make(map[string]bool)
		}
		if p.Name == "" || seen[p.Direction][p.Name] {
			return fmt.Errorf("%w: node %q has empty or repeated %s pin %q", ErrInvalidClass, c.Name, p.Direction, p.Name)
		}
		seen[p.Direction][p.Name] = true
	}
	c.Pins = slices.Clone(c.Pins)
	r.nodes[c.Name] = &c
	return nil
}

// NodeClass returns the node class with the given name.
func (r *Registry) NodeClass(name string) (*NodeClass, bool) {
	c, ok := r.nodes[name]
	return c, ok
}

// PinClass returns the pin class with the given name.
func (r *Registry) PinClass(name string) (*PinClass, bool) {
	c, ok := r.pins[name]
	return c, ok
}

// PropertyClass returns the property class with the given name.
func (r *Registry) PropertyClass(name string) (*PropertyClass, bool) {
	c, ok := r.properties[name]
	return c, ok
}

// AssetClass returns the asset class with the given name.
func (r *Registry) AssetClass(name string) (*AssetClass, bool) {
	c, ok := r.assets[name]
	return c, ok
}

// NodeClasses returns all node classes sorted by name.
func (r *Registry) NodeClasses() []*NodeClass { return sortedValues(r.nodes) }

// PinClasses returns all pin classes sorted by name.
func (r *Registry) PinClasses() []*PinClass { return sortedValues(r.pins) }

// PropertyClasses returns all property classes sorted by name.
func (r *Registry) PropertyClasses() []*PropertyClass { return sortedValues(r.properties) }

// AssetClasses returns all asset classes sorted by name.
func (r *Registry) AssetClasses() []*AssetClass { return sortedValues(r.assets) }

func sortedValues[T any](m map[string]*T) []*T {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*T, len(keys))
	for i, k := range keys {
		out[i] = m[k]
	}
	return out
}
