package nodes

import (
	"math"
	"testing"
	"time"

	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

// probe evaluates n directly, pulling its inputs.
func probe(t *testing.T, n *nodegraph.Node, frame nodegraph.Frame) *nodegraph.Evaluator {
	t.Helper()
	ev := nodegraph.NewEvaluator(frame)
	n.Evaluate(ev)
	return ev
}

func newGraph(t *testing.T) *nodegraph.Graph {
	t.Helper()
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return nodegraph.New(reg, nodegraph.Options{Class: GraphClass})
}

func create(t *testing.T, g *nodegraph.Graph, class string) *nodegraph.Node {
	t.Helper()
	n, err := g.CreateNode(class)
	if err != nil {
		t.Fatalf("CreateNode(%s): %v", class, err)
	}
	return n
}

func TestRegisterTwiceFails(t *testing.T) {
	reg, err := NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	if err := Register(reg); err == nil {
		t.Error("second Register should report duplicates")
	}
	for _, name := range []string{EventFrame, DrawLayer, MathSum, PropertyMaterial, VideoFrame} {
		if _, ok := reg.NodeClass(name); !ok {
			t.Errorf("node class %s not registered", name)
		}
	}
}

func TestMathNodes(t *testing.T) {
	g := newGraph(t)
	a := create(t, g, ValueFloat)
	b := create(t, g, ValueFloat)
	add := create(t, g, MathAdd)
	mul := create(t, g, MathMultiply)
	sin := create(t, g, MathSine)

	_ = g.SetPinDefault(a.Input("value").ID, nodegraph.Float(3))
	_ = g.SetPinDefault(b.Input("value").ID, nodegraph.Float(4))
	for _, l := range [][2]*nodegraph.Pin{
		{a.Output("out"), add.Input("a")},
		{b.Output("out"), add.Input("b")},
		{add.Output("out"), mul.Input("a")},
		{b.Output("out"), mul.Input("b")},
		{mul.Output("out"), sin.Input("x")},
	} {
		if _, err := g.CreateLink(l[0].ID, l[1].ID); err != nil {
			t.Fatal(err)
		}
	}
	_ = g.SetPinDefault(sin.Input("frequency").ID, nodegraph.Float(0.5))
	_ = g.SetPinDefault(sin.Input("amplitude").ID, nodegraph.Float(2))

	ev := probe(t, sin, nodegraph.Frame{})
	if ev.Failed() {
		t.Fatalf("errors: %v", ev.Errors())
	}
	if got := mul.Output("out").Value().Scalar(); got != 28 {
		t.Errorf("(3+4)*4 = %v", got)
	}
	want := float32(2 * math.Sin(14))
	if got := sin.Output("out").Value().Scalar(); math.Abs(float64(got-want)) > 1e-5 {
		t.Errorf("sine = %v, want %v", got, want)
	}
}

func TestMathSumWidensAndReadsProperty(t *testing.T) {
	g := newGraph(t)
	sum := create(t, g, MathSum)
	one := create(t, g, ValueFloat)
	_ = g.SetPinDefault(one.Input("value").ID, nodegraph.Float(2.5))
	if _, err := g.CreateLink(one.Output("out").ID, sum.Input("values").ID); err != nil {
		t.Fatalf("scalar into array: %v", err)
	}
	probe(t, sum, nodegraph.Frame{})
	if got := sum.Output("out").Value().Scalar(); got != 2.5 {
		t.Errorf("sum of widened scalar = %v", got)
	}

	g.DisconnectPin(sum.Input("values").ID)
	getter := create(t, g, PropertyFloatArray)
	prop, _ := g.CreateProperty(FloatArray, "weights")
	_ = g.SetPropertyValue(prop.ID, &FloatArrayValue{Values: []float32{1, 2, 3.5}})
	_ = g.BindProperty(getter.Input("property").ID, prop.ID)
	if _, err := g.CreateLink(getter.Output("values").ID, sum.Input("values").ID); err != nil {
		t.Fatal(err)
	}
	probe(t, sum, nodegraph.Frame{})
	if got := sum.Output("out").Value().Scalar(); got != 6.5 {
		t.Errorf("sum of property = %v, want 6.5", got)
	}
}

func TestTimeAndVideoNodes(t *testing.T) {
	g := newGraph(t)
	tf := create(t, g, TimeFrame)
	probe(t, tf, nodegraph.Frame{Delta: 20 * time.Millisecond, Elapsed: 3 * time.Second})
	if got := tf.Output("delta").Value().Scalar(); math.Abs(float64(got)-0.02) > 1e-6 {
		t.Errorf("delta = %v", got)
	}
	if got := tf.Output("elapsed").Value().Scalar(); got != 3 {
		t.Errorf("elapsed = %v", got)
	}

	vf := create(t, g, VideoFrame)
	ev := probe(t, vf, nodegraph.Frame{Video: scene.StaticVideo{}})
	if errs := ev.Errors(); len(errs) != 1 || errs[0].Kind != nodegraph.MissingOutput {
		t.Errorf("no frame errors = %v, want missingOutput", errs)
	}
	ev = probe(t, vf, nodegraph.Frame{Video: scene.StaticVideo{Frame: 7}})
	if ev.Failed() || vf.Output("texture").Value().Handle != 7 {
		t.Errorf("texture = %+v, errors = %v", vf.Output("texture").Value(), ev.Errors())
	}
}

func TestTextureGetterLoadsTexture(t *testing.T) {
	g := newGraph(t)
	rec := scene.NewRecorder()
	tg := create(t, g, PropertyTexture)
	a, _ := g.CreateAsset(Texture, "", "noise.png")
	p, _ := g.CreateProperty(Texture, "")
	_ = g.SetPropertyAsset(p.ID, a.ID)
	_ = g.BindProperty(tg.Input("property").ID, p.ID)

	ev := probe(t, tg, nodegraph.Frame{Render: rec})
	if ev.Failed() {
		t.Fatalf("errors: %v", ev.Errors())
	}
	want, _ := rec.LoadTexture("noise.png")
	if got := tg.Output("texture").Value().Handle; got != want {
		t.Errorf("handle = %d, want %d", got, want)
	}
}
