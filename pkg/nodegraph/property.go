package nodegraph

import (
	"fmt"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

// CreateProperty adds a graph property of the given class. An empty name
// is replaced by one derived from the class and id. Names are unique per
// graph.
func (g *Graph) CreateProperty(class, name string) (*Property, error) {
	cls, ok := g.reg.properties[class]
	if !ok {
		return nil, fmt.Errorf("%w: property %q", ErrUnknownClass, class)
	}
	if name != "" {
		if err := apperrors.ValidatePropertyName(name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidName, err)
		}
		if g.PropertyByName(name) != nil {
			return nil, fmt.Errorf("%w: property %q", ErrDuplicateName, name)
		}
	}
	id := g.AllocateID()
	if name == "" {
		name = fmt.Sprintf("%s_%d", class, id)
	}
	p := &Property{ID: id, Name: name, Class: class}
	if cls.New != nil {
		p.Value = cls.New()
	}
	g.properties[id] = p
	g.logger.Debug("property created", "id", id, "class", class, "name", name)
	g.publish(Created, EntityProperty, id)
	return p, nil
}

// RenameProperty changes a property's name.
func (g *Graph) RenameProperty(id ID, name string) error {
	p := g.properties[id]
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownProperty, id)
	}
	if name == "" {
		return fmt.Errorf("%w: empty property name", ErrDuplicateName)
	}
	if err := apperrors.ValidatePropertyName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	if other := g.PropertyByName(name); other != nil && other.ID != id {
		return fmt.Errorf("%w: property %q", ErrDuplicateName, name)
	}
	p.Name = name
	g.publish(Modified, EntityProperty, id)
	return nil
}

// SetPropertyValue replaces a property's payload and notifies the pins
// bound to it.
func (g *Graph) SetPropertyValue(id ID, v any) error {
	p := g.properties[id]
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownProperty, id)
	}
	p.Value = v
	g.publish(Modified, EntityProperty, id)
	g.notifyBound(id)
	return nil
}

// SetPropertyAsset points a property at an asset reference of the class
// the property wraps. NoID clears it.
func (g *Graph) SetPropertyAsset(id, assetID ID) error {
	p := g.properties[id]
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownProperty, id)
	}
	if assetID != NoID {
		a := g.assets[assetID]
		if a == nil {
			return fmt.Errorf("%w: %d", ErrUnknownAsset, assetID)
		}
		if want := g.reg.properties[p.Class].Asset; a.Class != want {
			return fmt.Errorf("%w: property %q wraps %q assets, not %q", ErrIncompatibleTypes, p.Name, want, a.Class)
		}
	}
	g.releaseProperty(p)
	p.Asset = assetID
	g.publish(Modified, EntityProperty, id)
	g.notifyBound(id)
	return nil
}

// DeleteProperty removes a property. Every pin bound to it is cleared
// first, then behaviours implementing [PropertyObserver] are told. It
// reports false when the id is unknown.
func (g *Graph) DeleteProperty(id ID) bool {
	p := g.properties[id]
	if p == nil {
		return false
	}
	for _, pin := range g.BoundPins(id) {
		g.UnbindProperty(pin.ID)
	}
	for _, n := range g.Nodes() {
		if obs, ok := n.Behavior.(PropertyObserver); ok {
			obs.OnPropertyDeleted(n, p)
		}
	}
	g.releaseProperty(p)
	delete(g.properties, id)
	delete(g.bound, id)
	g.logger.Debug("property deleted", "id", id, "name", p.Name)
	g.publish(Deleted, EntityProperty, id)
	return true
}

// CreateAsset adds an asset reference of the given class pointing at path.
// An empty name is replaced by one derived from the class and id.
func (g *Graph) CreateAsset(class, name, path string) (*AssetRef, error) {
	if _, ok := g.reg.assets[class]; !ok {
		return nil, fmt.Errorf("%w: asset %q", ErrUnknownClass, class)
	}
	if name != "" {
		if err := apperrors.ValidatePropertyName(name); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidName, err)
		}
		if g.AssetByName(name) != nil {
			return nil, fmt.Errorf("%w: asset %q", ErrDuplicateName, name)
		}
	}
	id := g.AllocateID()
	if name == "" {
		name = fmt.Sprintf("%s_asset_%d", class, id)
	}
	a := &AssetRef{ID: id, Name: name, Class: class, Path: path}
	g.assets[id] = a
	g.logger.Debug("asset created", "id", id, "class", class, "path", path)
	g.publish(Created, EntityAsset, id)
	return a, nil
}

// SetAssetPath repoints an asset reference. Properties wrapping it drop
// their resolved handles and their bound pins are notified.
func (g *Graph) SetAssetPath(id ID, path string) error {
	a := g.assets[id]
	if a == nil {
		return fmt.Errorf("%w: %d", ErrUnknownAsset, id)
	}
	a.Path = path
	g.publish(Modified, EntityAsset, id)
	for _, p := range g.wrapping(id) {
		g.releaseProperty(p)
		g.notifyBound(p.ID)
	}
	return nil
}

// DeleteAsset removes an asset reference and clears every property that
// wraps it. It reports false when the id is unknown.
func (g *Graph) DeleteAsset(id ID) bool {
	a := g.assets[id]
	if a == nil {
		return false
	}
	for _, p := range g.wrapping(id) {
		g.releaseProperty(p)
		p.Asset = NoID
		g.publish(Modified, EntityProperty, p.ID)
		g.notifyBound(p.ID)
	}
	delete(g.assets, id)
	g.logger.Debug("asset deleted", "id", id, "path", a.Path)
	g.publish(Deleted, EntityAsset, id)
	return true
}

// BindProperty makes a property pin reference a property. The property's
// class must match the pin's declared property class.
func (g *Graph) BindProperty(pinID, propertyID ID) error {
	pin := g.pins[pinID]
	if pin == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPin, pinID)
	}
	if pin.Type.Kind != KindProperty {
		return fmt.Errorf("%w: %s pin %q", ErrNotPropertyPin, pin.Type, pin.Name)
	}
	p := g.properties[propertyID]
	if p == nil {
		return fmt.Errorf("%w: %d", ErrUnknownProperty, propertyID)
	}
	if p.Class != pin.Type.PropertyClass {
		return fmt.Errorf("%w: %s property for %s pin", ErrIncompatibleTypes, p.Class, pin.Type)
	}
	if pin.Property == propertyID {
		return nil
	}
	g.unbind(pin)
	g.bind(pin, propertyID)
	g.publish(Modified, EntityPin, pinID)
	g.notifyPinChanged(pin)
	return nil
}

// UnbindProperty clears a pin's property reference. It reports false when
// the pin is unknown or was not bound.
func (g *Graph) UnbindProperty(pinID ID) bool {
	pin := g.pins[pinID]
	if pin == nil || pin.Property == NoID {
		return false
	}
	g.unbind(pin)
	g.publish(Modified, EntityPin, pinID)
	g.notifyPinChanged(pin)
	return true
}

// ResolveAsset returns the rendering handle of the asset a property wraps,
// loading it through p on first use. The handle is cached on the property
// until the asset changes or the provider differs. Providers are compared
// by identity and must be comparable values.
func (g *Graph) ResolveAsset(p scene.RenderProvider, prop *Property) (scene.Handle, error) {
	if p == nil {
		return 0, fmt.Errorf("%w: no render provider", ErrNoLoader)
	}
	a := g.assets[prop.Asset]
	if a == nil {
		return 0, fmt.Errorf("%w: property %q", ErrUnboundAsset, prop.Name)
	}
	cls := g.reg.assets[a.Class]
	if cls == nil || cls.Load == nil {
		return 0, fmt.Errorf("%w: %q", ErrNoLoader, a.Class)
	}
	if r := prop.res; r != nil {
		if r.provider == p && r.path == a.Path {
			return r.handle, nil
		}
		g.releaseProperty(prop)
	}
	h, err := cls.Load(p, a.Path)
	if err != nil {
		return 0, fmt.Errorf("load %s %q: %w", a.Class, a.Path, err)
	}
	prop.res = &resolved{provider: p, class: cls, path: a.Path, handle: h}
	g.logger.Debug("asset resolved", "property", prop.Name, "path", a.Path, "handle", h)
	return h, nil
}

// ReleaseResources gives every cached handle back to its provider.
func (g *Graph) ReleaseResources() {
	for _, p := range g.Properties() {
		g.releaseProperty(p)
	}
}

func (g *Graph) releaseProperty(p *Property) {
	r := p.res
	if r == nil {
		return
	}
	p.res = nil
	if r.class.Release != nil {
		r.class.Release(r.provider, r.handle)
	}
}

func (g *Graph) wrapping(assetID ID) []*Property {
	var out []*Property
	for _, p := range g.Properties() {
		if p.Asset == assetID {
			out = append(out, p)
		}
	}
	return out
}

func (g *Graph) bind(pin *Pin, propertyID ID) {
	pin.Property = propertyID
	pin.value = PropertyRef(propertyID)
	set := g.bound[propertyID]
	if set == nil {
		set = make(map[ID]struct{})
		g.bound[propertyID] = set
	}
	set[pin.ID] = struct{}{}
}

func (g *Graph) unbind(pin *Pin) {
	if pin.Property == NoID {
		return
	}
	delete(g.bound[pin.Property], pin.ID)
	pin.Property = NoID
	pin.value = pin.Default.Clone()
}

func (g *Graph) notifyBound(propertyID ID) {
	for _, pin := range g.BoundPins(propertyID) {
		g.notifyPinChanged(pin)
	}
}

// notifyPinChanged tells the owning node that a pin's property changed and
// follows links downstream from property-forwarding nodes.
func (g *Graph) notifyPinChanged(pin *Pin) {
	if g.loading {
		return
	}
	seen := make(map[ID]bool)
	queue := []*Pin{pin}
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		n := g.nodes[p.Node]
		if n == nil || n.deleting {
			continue
		}
		if obs, ok := n.Behavior.(PinObserver); ok {
			obs.OnPinChanged(n, p)
		}
		src, ok := n.Behavior.(PropertySource)
		if !ok {
			continue
		}
		for _, out := range n.OutputPins() {
			if src.ForwardedInput(n, out) != p {
				continue
			}
			queue = append(queue, g.Downstream(out.ID)...)
		}
	}
}
