package nodegraph

import (
	"errors"
	"testing"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// newTestRegistry builds a small closed set of variants exercising every
// engine feature without depending on the built-in node library.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	must(r.RegisterPin(PinClass{Name: "flow", Type: PinType{Kind: KindFlow}}))
	must(r.RegisterPin(PinClass{Name: "float", Type: PinType{Kind: KindFloat}}))
	must(r.RegisterPin(PinClass{Name: "int", Type: PinType{Kind: KindInt}}))
	must(r.RegisterPin(PinClass{Name: "floatArray", Type: PinType{Kind: KindArray, Elem: KindFloat}}))
	must(r.RegisterPin(PinClass{Name: "material", Type: PinType{Kind: KindProperty, PropertyClass: "material"}}))

	must(r.RegisterAsset(AssetClass{
		Name:    "material",
		Load:    func(p scene.RenderProvider, path string) (scene.Handle, error) { return p.LoadMaterial(path) },
		Release: func(p scene.RenderProvider, h scene.Handle) { p.ReleaseMaterial(h) },
	}))
	must(r.RegisterProperty(PropertyClass{Name: "material", Asset: "material"}))
	must(r.RegisterProperty(PropertyClass{Name: "floatArray", New: func() any { return &[]float32{} }}))

	must(r.RegisterNode(NodeClass{
		Name:  "test.event",
		Event: true,
		Pins:  []PinSpec{{Name: "next", Class: "flow", Direction: Output}},
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.step",
		Pins: []PinSpec{
			{Name: "in", Class: "flow", Direction: Input},
			{Name: "x", Class: "float", Direction: Input},
			{Name: "next", Class: "flow", Direction: Output},
			{Name: "y", Class: "float", Direction: Output},
		},
		New: func() Behavior { return &stepBehavior{} },
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.const",
		Pins: []PinSpec{
			{Name: "value", Class: "float", Direction: Input},
			{Name: "out", Class: "float", Direction: Output},
		},
		New: func() Behavior { return &constBehavior{} },
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.add",
		Pins: []PinSpec{
			{Name: "a", Class: "float", Direction: Input},
			{Name: "b", Class: "float", Direction: Input},
			{Name: "out", Class: "float", Direction: Output},
		},
		New: func() Behavior { return addBehavior{} },
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.sum",
		Pins: []PinSpec{
			{Name: "values", Class: "floatArray", Direction: Input},
			{Name: "out", Class: "float", Direction: Output},
		},
		New: func() Behavior { return sumBehavior{} },
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.fail",
		Pins: []PinSpec{
			{Name: "in", Class: "flow", Direction: Input},
			{Name: "next", Class: "flow", Direction: Output},
		},
		New: func() Behavior { return failBehavior{} },
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.material",
		Pins: []PinSpec{
			{Name: "in", Class: "flow", Direction: Input},
			{Name: "material", Class: "material", Direction: Input},
		},
		New: func() Behavior { return &materialBehavior{} },
	}))
	must(r.RegisterNode(NodeClass{
		Name: "test.getter",
		Pins: []PinSpec{
			{Name: "property", Class: "material", Direction: Input},
			{Name: "material", Class: "material", Direction: Output},
		},
		New: func() Behavior { return getterBehavior{} },
	}))
	return r
}

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	return New(newTestRegistry(t), Options{Class: "test"})
}

func mustNode(t *testing.T, g *Graph, class string) *Node {
	t.Helper()
	n, err := g.CreateNode(class)
	if err != nil {
		t.Fatalf("CreateNode(%q): %v", class, err)
	}
	return n
}

func mustLink(t *testing.T, g *Graph, out, in *Pin) *Link {
	t.Helper()
	l, err := g.CreateLink(out.ID, in.ID)
	if err != nil {
		t.Fatalf("CreateLink(%s, %s): %v", out.Name, in.Name, err)
	}
	return l
}

type stepBehavior struct {
	runs    int
	seen    []float32
	linked  int
	removed int
}

func (b *stepBehavior) Evaluate(c *Context) error {
	b.runs++
	x, err := c.Float("x")
	if err != nil {
		return err
	}
	b.seen = append(b.seen, x)
	return c.SetOutput("y", Float(x*2))
}

func (b *stepBehavior) OnLinkConnected(*Node, *Link)    { b.linked++ }
func (b *stepBehavior) OnLinkDisconnected(*Node, *Link) { b.removed++ }

type constBehavior struct{ runs int }

func (b *constBehavior) Evaluate(c *Context) error {
	b.runs++
	v, err := c.Input("value")
	if err != nil {
		return err
	}
	return c.SetOutput("out", v)
}

type addBehavior struct{}

func (addBehavior) Evaluate(c *Context) error {
	a, err := c.Float("a")
	if err != nil {
		return err
	}
	b, err := c.Float("b")
	if err != nil {
		return err
	}
	return c.SetOutput("out", Float(a+b))
}

type sumBehavior struct{}

func (sumBehavior) Evaluate(c *Context) error {
	vs, err := c.Floats("values")
	if err != nil {
		return err
	}
	var total float32
	for _, v := range vs {
		total += v
	}
	return c.SetOutput("out", Float(total))
}

var errBoom = errors.New("boom")

type failBehavior struct{}

func (failBehavior) Evaluate(*Context) error { return errBoom }

type materialBehavior struct {
	handle  scene.Handle
	changed int
	loaded  int
}

func (b *materialBehavior) Evaluate(c *Context) error {
	prop, err := c.Property("material")
	if err != nil {
		return err
	}
	h, err := c.Graph.ResolveAsset(c.Eval.Render, prop)
	if err != nil {
		return c.Wrap(MaterialError, c.Node.Input("material"), err)
	}
	b.handle = h
	return nil
}

func (b *materialBehavior) OnPinChanged(*Node, *Pin) { b.changed++ }

func (b *materialBehavior) PostLoad(*Node) error {
	b.loaded++
	return nil
}

type getterBehavior struct{}

func (getterBehavior) Evaluate(c *Context) error {
	v, err := c.Input("property")
	if err != nil {
		return err
	}
	return c.SetOutput("material", v)
}

func (getterBehavior) ForwardedInput(n *Node, _ *Pin) *Pin { return n.Input("property") }
