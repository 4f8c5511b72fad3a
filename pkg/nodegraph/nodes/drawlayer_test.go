package nodes

import (
	"errors"
	"slices"
	"testing"

	"github.com/matzehuels/mixgraph/pkg/compositor"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

type fixture struct {
	g        *nodegraph.Graph
	rec      *scene.Recorder
	stencils *scene.MemoryStencils
	layer    *nodegraph.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	rec := scene.NewRecorder()
	rec.DefineMaterial("tinted.mat",
		scene.Uniform{Name: "tint", Type: scene.UniformFloat4, Default: []float32{1, 0, 0, 1}},
		scene.Uniform{Name: "strength", Type: scene.UniformFloat, Default: []float32{0.5}},
	)
	rec.DefineMaterial("tint-only.mat",
		scene.Uniform{Name: "tint", Type: scene.UniformFloat4},
	)
	rec.DefineMaterial("plain.mat")

	g := nodegraph.New(reg, nodegraph.Options{Class: GraphClass, Resources: rec})
	layer, err := g.CreateNode(DrawLayer)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	return &fixture{g: g, rec: rec, stencils: scene.NewMemoryStencils(), layer: layer}
}

func (f *fixture) material(t *testing.T, path string) *nodegraph.Property {
	t.Helper()
	a, err := f.g.CreateAsset(Material, "", path)
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	p, err := f.g.CreateProperty(Material, "")
	if err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}
	if err := f.g.SetPropertyAsset(p.ID, a.ID); err != nil {
		t.Fatalf("SetPropertyAsset: %v", err)
	}
	return p
}

func (f *fixture) bind(t *testing.T, p *nodegraph.Property) {
	t.Helper()
	if err := f.g.BindProperty(f.layer.Input("material").ID, p.ID); err != nil {
		t.Fatalf("BindProperty: %v", err)
	}
}

func (f *fixture) setInt(t *testing.T, pin string, v int32) {
	t.Helper()
	if err := f.g.SetPinDefault(f.layer.Input(pin).ID, nodegraph.Int(v)); err != nil {
		t.Fatalf("SetPinDefault(%s): %v", pin, err)
	}
}

func (f *fixture) run(t *testing.T, camera scene.Vec3) []scene.DrawCall {
	t.Helper()
	f.rec.Reset()
	ev := nodegraph.NewEvaluator(nodegraph.Frame{
		Surface:  99,
		Camera:   camera,
		Render:   f.rec,
		Stencils: f.stencils,
	})
	if !f.g.EvaluateFlowPinChain(ev, f.layer) {
		t.Fatalf("evaluation failed: %v", ev.Errors())
	}
	return f.rec.Calls()
}

func TestDrawLayerInsideOutsideScenario(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "plain.mat"))
	quad := f.stencils.Add(scene.Stencil{Kind: scene.StencilQuad, Transform: scene.Identity()})

	front := scene.Vec3{0, 0, 2}
	calls := f.run(t, front)
	if len(calls) != 1 {
		t.Fatalf("draw calls = %d, want 1", len(calls))
	}
	c := calls[0]
	if c.Test != scene.TestInside || c.Stencil == nil || c.Stencil.ID != quad || c.Surface != 99 {
		t.Errorf("call = %+v, want inside test on quad %d", c, quad)
	}

	f.setInt(t, PinInvertWhenCameraInside, 1)
	behind := scene.Vec3{0, 0, -2}
	calls = f.run(t, behind)
	if len(calls) != 1 || calls[0].Test != scene.TestOutside {
		t.Errorf("calls from behind with invert = %+v, want one outside draw", calls)
	}

	// Without invert, the side the camera is on does not matter.
	f.setInt(t, PinInvertWhenCameraInside, 0)
	if calls = f.run(t, behind); calls[0].Test != scene.TestInside {
		t.Errorf("test = %s, want inside", calls[0].Test)
	}
}

func TestDrawLayerOnePassPerStencil(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "plain.mat"))

	if calls := f.run(t, scene.Vec3{}); len(calls) != 0 {
		t.Fatalf("no stencils: %d draws, want 0", len(calls))
	}

	f.stencils.Add(scene.Stencil{Kind: scene.StencilQuad, Transform: scene.Identity()})
	box := f.stencils.Add(scene.Stencil{Kind: scene.StencilBox, Transform: scene.Identity()})
	f.stencils.Add(scene.Stencil{Kind: scene.StencilModel, Transform: scene.Identity()})
	if calls := f.run(t, scene.Vec3{5, 5, 5}); len(calls) != 3 {
		t.Fatalf("draws = %d, want 3", len(calls))
	}

	// The cached id lists follow registry changes.
	f.stencils.Remove(scene.StencilBox, box)
	if calls := f.run(t, scene.Vec3{5, 5, 5}); len(calls) != 2 {
		t.Errorf("draws after removal = %d, want 2", len(calls))
	}

	f.setInt(t, PinStencilKinds, 1<<scene.StencilModel)
	calls := f.run(t, scene.Vec3{5, 5, 5})
	if len(calls) != 1 || calls[0].Stencil.Kind != scene.StencilModel {
		t.Errorf("model-only calls = %+v", calls)
	}

	f.setInt(t, PinStencilMode, int32(compositor.Disabled))
	calls = f.run(t, scene.Vec3{5, 5, 5})
	if len(calls) != 1 || calls[0].Test != scene.TestNone || calls[0].Stencil != nil {
		t.Errorf("disabled calls = %+v, want one unmasked draw", calls)
	}
	if got := f.layer.Output("draws").Value().Ints[0]; got != 1 {
		t.Errorf("draws output = %d, want 1", got)
	}
}

func TestDrawLayerFlipAndBlend(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "plain.mat"))
	f.setInt(t, PinStencilMode, int32(compositor.Disabled))

	c := f.run(t, scene.Vec3{})[0]
	if c.Blend != scene.BlendSourceOver || c.UV != [4]float32{0, 0, 1, 1} || c.Winding != scene.WindingCCW {
		t.Errorf("default call = %+v", c)
	}

	f.setInt(t, PinFlipY, 1)
	f.setInt(t, PinBlendMode, int32(scene.BlendSource))
	c = f.run(t, scene.Vec3{})[0]
	if c.Blend != scene.BlendSource || c.UV != [4]float32{0, 1, 1, 0} || c.Winding != scene.WindingCW {
		t.Errorf("flipped call = %+v", c)
	}
}

func TestDrawLayerDynamicPinRebuild(t *testing.T) {
	f := newFixture(t)
	if got := UniformPins(f.layer); len(got) != 0 {
		t.Fatalf("fresh layer has uniform pins %v", got)
	}

	f.bind(t, f.material(t, "tinted.mat"))
	if got := UniformPins(f.layer); !slices.Equal(got, []string{"tint", "strength"}) {
		t.Fatalf("uniform pins = %v, want [tint strength]", got)
	}
	tint, strength := f.layer.Input("tint"), f.layer.Input("strength")
	if tint.Class != PinFloat4 || strength.Class != PinFloat {
		t.Fatalf("classes = %s, %s", tint.Class, strength.Class)
	}
	if strength.Default.Scalar() != 0.5 {
		t.Errorf("strength default = %v, want material default 0.5", strength.Default.Scalar())
	}

	color, _ := f.g.CreateNode(ValueFloat4)
	gain, _ := f.g.CreateNode(ValueFloat)
	tintLink, err := f.g.CreateLink(color.Output("out").ID, tint.ID)
	if err != nil {
		t.Fatal(err)
	}
	strengthLink, err := f.g.CreateLink(gain.Output("out").ID, strength.ID)
	if err != nil {
		t.Fatal(err)
	}

	f.bind(t, f.material(t, "tint-only.mat"))
	if got := UniformPins(f.layer); !slices.Equal(got, []string{"tint"}) {
		t.Fatalf("uniform pins = %v, want [tint]", got)
	}
	if f.g.Pin(strength.ID) != nil || f.g.Link(strengthLink.ID) != nil {
		t.Error("strength pin or its link survived")
	}
	if f.layer.Input("tint").ID != tint.ID || f.g.Link(tintLink.ID) == nil {
		t.Error("tint pin or its link was not preserved")
	}
	if err := f.g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDrawLayerPushesUniformValues(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "tinted.mat"))
	f.setInt(t, PinStencilMode, int32(compositor.Disabled))

	gain, _ := f.g.CreateNode(ValueFloat)
	if err := f.g.SetPinDefault(gain.Input("value").ID, nodegraph.Float(0.9)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.g.CreateLink(gain.Output("out").ID, f.layer.Input("strength").ID); err != nil {
		t.Fatal(err)
	}

	c := f.run(t, scene.Vec3{})[0]
	if got := c.Uniforms["strength"]; !slices.Equal(got, []float32{0.9}) {
		t.Errorf("strength = %v, want linked 0.9", got)
	}
	if got := c.Uniforms["tint"]; !slices.Equal(got, []float32{1, 0, 0, 1}) {
		t.Errorf("tint = %v, want material default", got)
	}
}

func TestDrawLayerMaterialThroughGetter(t *testing.T) {
	f := newFixture(t)
	getter, _ := f.g.CreateNode(PropertyMaterial)
	if _, err := f.g.CreateLink(getter.Output("material").ID, f.layer.Input("material").ID); err != nil {
		t.Fatal(err)
	}
	if err := f.g.BindProperty(getter.Input("property").ID, f.material(t, "tinted.mat").ID); err != nil {
		t.Fatal(err)
	}
	if got := UniformPins(f.layer); len(got) != 2 {
		t.Fatalf("uniform pins through getter = %v", got)
	}
	f.setInt(t, PinStencilMode, int32(compositor.Disabled))
	if calls := f.run(t, scene.Vec3{}); len(calls) != 1 {
		t.Errorf("draws = %d, want 1", len(calls))
	}
}

func TestDrawLayerErrors(t *testing.T) {
	f := newFixture(t)
	ev := nodegraph.NewEvaluator(nodegraph.Frame{Render: f.rec})
	if f.g.EvaluateFlowPinChain(ev, f.layer) {
		t.Fatal("unbound layer evaluated")
	}
	if errs := ev.Errors(); errs[0].Kind != nodegraph.MissingInput {
		t.Errorf("kind = %s, want missingInput", errs[0].Kind)
	}

	f.bind(t, f.material(t, "missing.mat"))
	ev.Reset(nodegraph.Frame{Render: f.rec})
	f.g.EvaluateFlowPinChain(ev, f.layer)
	if errs := ev.Errors(); len(errs) != 1 || errs[0].Kind != nodegraph.MaterialError {
		t.Errorf("errors = %v, want materialError", errs)
	}
}

func TestDrawLayerSurvivesRestore(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "tinted.mat"))
	doc, err := f.g.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	restored, err := nodegraph.Restore(f.g.Registry(), doc, nodegraph.Options{Resources: f.rec})
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	layer := restored.Node(f.layer.ID)
	if got := UniformPins(layer); !slices.Equal(got, []string{"tint", "strength"}) {
		t.Errorf("restored uniform pins = %v", got)
	}
	again, _ := restored.Snapshot()
	if len(again.Pins) != len(doc.Pins) {
		t.Errorf("post-load rebuild changed pin count: %d -> %d", len(doc.Pins), len(again.Pins))
	}
}

func TestDrawLayerDeleteDisposesSubscription(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "plain.mat"))
	f.run(t, scene.Vec3{})
	f.g.DeleteNode(f.layer.ID)
	// A registry change after deletion must not reach the deleted layer.
	f.stencils.Add(scene.Stencil{Kind: scene.StencilBox, Transform: scene.Identity()})
	if d := f.layer.Behavior.(*drawLayer); d.cancel != nil || d.registry != nil {
		t.Error("subscription still held after delete")
	}
}

func TestDrawLayerWithoutMaterialPin(t *testing.T) {
	f := newFixture(t)
	f.bind(t, f.material(t, "tinted.mat"))
	pins := UniformPins(f.layer)

	f.g.DeletePin(f.layer.Input("material").ID)
	if err := f.g.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := UniformPins(f.layer); !slices.Equal(got, pins) {
		t.Errorf("uniform pins = %v, want %v", got, pins)
	}

	doc, err := f.g.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := nodegraph.Restore(f.g.Registry(), doc, nodegraph.Options{Resources: f.rec}); !errors.Is(err, nodegraph.ErrCorrupt) {
		t.Errorf("Restore err = %v, want ErrCorrupt", err)
	}
}
