package nodes

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/mixgraph/pkg/compositor"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Draw-layer settings pins.
const (
	PinStencilMode            = "stencilMode"
	PinInvertWhenCameraInside = "invertWhenCameraInside"
	PinBlendMode              = "blendMode"
	PinFlipY                  = "flipY"
	PinStencilKinds           = "stencilKinds"
)

// AllStencilKinds is the stencilKinds mask enabling quads, boxes and models.
const AllStencilKinds = 1<<scene.StencilQuad | 1<<scene.StencilBox | 1<<scene.StencilModel

func drawLayerPins() []nodegraph.PinSpec {
	return []nodegraph.PinSpec{
		in("in", PinFlow),
		in("material", PinMaterial),
		withDefault(in(PinStencilMode, PinInt), nodegraph.Int(int32(compositor.Inside))),
		withDefault(in(PinInvertWhenCameraInside, PinInt), nodegraph.Int(0)),
		withDefault(in(PinBlendMode, PinInt), nodegraph.Int(int32(scene.BlendSourceOver))),
		withDefault(in(PinFlipY, PinInt), nodegraph.Int(0)),
		withDefault(in(PinStencilKinds, PinInt), nodegraph.Int(AllStencilKinds)),
		out("next", PinFlow),
		out("draws", PinInt),
	}
}

var (
	errNoMaterial = errors.New("no material bound")
	errNoProvider = errors.New("no resource provider")
)

var uniformPinClass = map[scene.UniformType]string{
	scene.UniformFloat:   PinFloat,
	scene.UniformFloat2:  PinFloat2,
	scene.UniformFloat3:  PinFloat3,
	scene.UniformFloat4:  PinFloat4,
	scene.UniformTexture: PinTexture,
}

// drawLayer draws its material once per stencil instance. Besides its
// static pins it exposes one input pin per material uniform; those pins
// are rebuilt whenever the material the layer resolves to changes.
type drawLayer struct {
	registry   scene.StencilRegistry
	cancel     func()
	dirty      bool
	ids        map[scene.StencilKind][]int
	rebuilding bool
}

func (d *drawLayer) Evaluate(c *nodegraph.Context) error {
	ev := c.Eval
	if ev.Render == nil {
		return c.Fail(nodegraph.EvaluationError, nil, "no render provider")
	}
	prop, err := c.Property("material")
	if err != nil {
		return err
	}
	mat, err := c.Graph.ResolveAsset(ev.Render, prop)
	if err != nil {
		return c.Wrap(nodegraph.MaterialError, c.Node.Input("material"), err)
	}
	settings, err := d.settings(c)
	if err != nil {
		return err
	}
	uniforms, textures := uniformValues(c.Node)

	passes := compositor.Plan(settings, d.stencils(ev.Stencils), ev.Camera)
	for _, pass := range passes {
		call := settings.DrawCall(pass, ev.Surface, mat)
		maps.Copy(call.Uniforms, uniforms)
		maps.Copy(call.Textures, textures)
		if err := ev.Render.Draw(call); err != nil {
			return c.Wrap(nodegraph.EvaluationError, nil, fmt.Errorf("draw: %w", err))
		}
	}
	return c.SetOutput("draws", nodegraph.Int(int32(len(passes))))
}

func (d *drawLayer) settings(c *nodegraph.Context) (compositor.Settings, error) {
	var s compositor.Settings
	mode, err := c.Int(PinStencilMode)
	if err != nil {
		return s, err
	}
	if mode < int32(compositor.Inside) || mode > int32(compositor.Disabled) {
		return s, c.Fail(nodegraph.EvaluationError, c.Node.Input(PinStencilMode), "stencil mode %d out of range", mode)
	}
	s.Mode = compositor.StencilMode(mode)

	blend, err := c.Int(PinBlendMode)
	if err != nil {
		return s, err
	}
	switch scene.BlendMode(blend) {
	case scene.BlendSource, scene.BlendSourceOver:
		s.Blend = scene.BlendMode(blend)
	default:
		return s, c.Fail(nodegraph.EvaluationError, c.Node.Input(PinBlendMode), "blend mode %d out of range", blend)
	}

	invert, err := c.Int(PinInvertWhenCameraInside)
	if err != nil {
		return s, err
	}
	flip, err := c.Int(PinFlipY)
	if err != nil {
		return s, err
	}
	mask, err := c.Int(PinStencilKinds)
	if err != nil {
		return s, err
	}
	s.InvertWhenCameraInside = invert != 0
	s.FlipY = flip != 0
	s.Kinds = []scene.StencilKind{}
	for _, k := range scene.StencilKinds {
		if mask&(1<<k) != 0 {
			s.Kinds = append(s.Kinds, k)
		}
	}
	return s, nil
}

// stencils returns the registered stencils in kind, then id order. The id
// lists are cached and refreshed only after the registry reports a change.
func (d *drawLayer) stencils(reg scene.StencilRegistry) []scene.Stencil {
	if reg == nil {
		d.detach()
		return nil
	}
	if reg != d.registry {
		d.detach()
		d.registry = reg
		d.cancel = reg.Subscribe(func(scene.StencilEvent) { d.dirty = true })
		d.dirty = true
	}
	if d.dirty {
		d.ids = make(map[scene.StencilKind][]int, len(scene.StencilKinds))
		for _, k := range scene.StencilKinds {
			d.ids[k] = reg.StencilIDs(k)
		}
		d.dirty = false
	}
	var out []scene.Stencil
	for _, k := range scene.StencilKinds {
		for _, id := range d.ids[k] {
			if s, ok := reg.Stencil(k, id); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

func (d *drawLayer) detach() {
	if d.cancel != nil {
		d.cancel()
	}
	d.cancel = nil
	d.registry = nil
	d.ids = nil
}

func (d *drawLayer) OnLinkConnected(n *nodegraph.Node, l *nodegraph.Link) {
	if p := n.Input("material"); p != nil && l.End == p.ID {
		d.rebuild(n)
	}
}

func (d *drawLayer) OnLinkDisconnected(n *nodegraph.Node, l *nodegraph.Link) {
	if p := n.Input("material"); p != nil && l.End == p.ID {
		d.rebuild(n)
	}
}

func (d *drawLayer) OnPinChanged(n *nodegraph.Node, p *nodegraph.Pin) {
	if p.Name == "material" && p.Direction == nodegraph.Input {
		d.rebuild(n)
	}
}

func (d *drawLayer) PostLoad(n *nodegraph.Node) error {
	d.rebuild(n)
	return nil
}

func (d *drawLayer) Dispose(*nodegraph.Node) { d.detach() }

// rebuild brings the uniform pins in line with the current material. When
// the material cannot be introspected the pins are left as they are.
func (d *drawLayer) rebuild(n *nodegraph.Node) {
	if d.rebuilding {
		return
	}
	d.rebuilding = true
	defer func() { d.rebuilding = false }()

	g := n.Graph()
	uniforms, err := materialUniforms(g, n)
	if err != nil {
		g.Logger().Debug("uniform pins unchanged", "node", n.ID, "reason", err)
		return
	}
	if err := syncUniformPins(g, n, uniforms); err != nil {
		g.Logger().Warn("uniform pin rebuild failed", "node", n.ID, "err", err)
	}
}

func materialUniforms(g *nodegraph.Graph, n *nodegraph.Node) ([]scene.Uniform, error) {
	in := n.Input("material")
	if in == nil {
		return nil, errNoMaterial
	}
	prop := g.ResolveProperty(in.ID)
	if prop == nil {
		return nil, errNoMaterial
	}
	p := g.Resources()
	if p == nil {
		return nil, errNoProvider
	}
	h, err := g.ResolveAsset(p, prop)
	if err != nil {
		return nil, err
	}
	return p.MaterialUniforms(h)
}

// syncUniformPins removes uniform pins whose name or type no longer
// matches the material, keeping their links, and appends pins for new
// uniforms seeded with the material defaults.
func syncUniformPins(g *nodegraph.Graph, n *nodegraph.Node, uniforms []scene.Uniform) error {
	want := make(map[string]string, len(uniforms))
	var order []scene.Uniform
	for _, u := range uniforms {
		class, ok := uniformPinClass[u.Type]
		if !ok {
			continue
		}
		if p := n.Input(u.Name); p != nil && n.IsStatic(p) {
			g.Logger().Warn("uniform shadows a draw-layer setting", "node", n.ID, "uniform", u.Name)
			continue
		}
		if _, dup := want[u.Name]; dup {
			continue
		}
		want[u.Name] = class
		order = append(order, u)
	}

	keep := make(map[string]bool)
	for _, p := range n.InputPins() {
		if n.IsStatic(p) {
			continue
		}
		if want[p.Name] == p.Class {
			keep[p.Name] = true
			continue
		}
		g.DeletePin(p.ID)
	}
	for _, u := range order {
		if keep[u.Name] {
			continue
		}
		def := uniformDefault(u)
		if _, err := g.CreatePin(n.ID, nodegraph.PinSpec{
			Name:      u.Name,
			Class:     want[u.Name],
			Direction: nodegraph.Input,
			Default:   &def,
		}); err != nil {
			return err
		}
	}
	return nil
}

func uniformDefault(u scene.Uniform) nodegraph.Value {
	switch u.Type {
	case scene.UniformTexture:
		return nodegraph.Texture(0)
	case scene.UniformFloat2:
		return nodegraph.Float2(component(u.Default, 0), component(u.Default, 1))
	case scene.UniformFloat3:
		return nodegraph.Float3(component(u.Default, 0), component(u.Default, 1), component(u.Default, 2))
	case scene.UniformFloat4:
		return nodegraph.Float4(component(u.Default, 0), component(u.Default, 1), component(u.Default, 2), component(u.Default, 3))
	}
	return nodegraph.Float(component(u.Default, 0))
}

func component(fs []float32, i int) float32 {
	if i < len(fs) {
		return fs[i]
	}
	return 0
}

// uniformValues collects the values of the uniform pins pulled for this
// evaluation. Unlinked pins carry their default, so every numeric uniform
// the material exposes is pushed on each draw.
func uniformValues(n *nodegraph.Node) (map[string][]float32, map[string]scene.Handle) {
	uniforms := make(map[string][]float32)
	textures := make(map[string]scene.Handle)
	for _, p := range n.InputPins() {
		if n.IsStatic(p) {
			continue
		}
		v := p.Value()
		if v.Kind == nodegraph.KindTexture {
			if v.Handle != 0 {
				textures[p.Name] = v.Handle
			}
			continue
		}
		uniforms[p.Name] = slices.Clone(v.Floats)
	}
	return uniforms, textures
}

// UniformPins returns the names of a draw layer's material uniform pins in
// order.
func UniformPins(n *nodegraph.Node) []string {
	var names []string
	for _, p := range n.InputPins() {
		if !n.IsStatic(p) {
			names = append(names, p.Name)
		}
	}
	return names
}
