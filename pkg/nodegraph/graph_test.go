package nodegraph

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"testing"

	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
)

func TestCreateNodeInstantiatesPins(t *testing.T) {
	g := newTestGraph(t)
	n := mustNode(t, g, "test.step")

	if len(n.Inputs) != 2 || len(n.Outputs) != 2 {
		t.Fatalf("pins = %d in / %d out, want 2 / 2", len(n.Inputs), len(n.Outputs))
	}
	x := n.Input("x")
	if x == nil || x.Type.Kind != KindFloat || x.Node != n.ID {
		t.Fatalf("Input(x) = %+v", x)
	}
	if n.Output("x") != nil {
		t.Error("Output(x) should not find an input pin")
	}
	if !n.HasFlowPins() {
		t.Error("step node should have flow pins")
	}
	if _, err := g.CreateNode("nope"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("CreateNode(nope) err = %v, want ErrUnknownClass", err)
	}
}

func TestIDsAreUniqueAndNeverReused(t *testing.T) {
	g := newTestGraph(t)
	seen := make(map[ID]bool)
	record := func(id ID) {
		t.Helper()
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
	}

	a := mustNode(t, g, "test.const")
	b := mustNode(t, g, "test.add")
	l := mustLink(t, g, a.Output("out"), b.Input("a"))
	p, _ := g.CreateProperty("material", "")
	as, _ := g.CreateAsset("material", "", "m.mat")
	for _, id := range []ID{a.ID, b.ID, l.ID, p.ID, as.ID} {
		record(id)
	}
	for _, pin := range g.Pins() {
		record(pin.ID)
	}

	last := g.NextID()
	g.DeleteNode(a.ID)
	c := mustNode(t, g, "test.const")
	if c.ID < last {
		t.Errorf("new node id %d reuses the range below %d", c.ID, last)
	}
	record(c.ID)
	for _, pid := range slices.Concat(c.Inputs, c.Outputs) {
		record(pid)
	}
}

func TestCreateLinkRules(t *testing.T) {
	g := newTestGraph(t)
	src := mustNode(t, g, "test.const")
	other := mustNode(t, g, "test.const")
	add := mustNode(t, g, "test.add")
	sum := mustNode(t, g, "test.sum")
	ev := mustNode(t, g, "test.event")
	s1 := mustNode(t, g, "test.step")
	s2 := mustNode(t, g, "test.step")
	getter := mustNode(t, g, "test.getter")

	mustLink(t, g, other.Output("out"), add.Input("b"))
	mustLink(t, g, ev.Output("next"), s1.Input("in"))

	tests := []struct {
		name string
		a, b ID
		want error
	}{
		{"unknown pin", src.Output("out").ID, 9999, ErrUnknownPin},
		{"two inputs", add.Input("a").ID, sum.Input("values").ID, ErrDirection},
		{"same node", src.Output("out").ID, src.Input("value").ID, ErrSameNode},
		{"float to flow", src.Output("out").ID, s2.Input("in").ID, ErrIncompatibleTypes},
		{"property to float", getter.Output("material").ID, add.Input("a").ID, ErrIncompatibleTypes},
		{"occupied input", src.Output("out").ID, add.Input("b").ID, ErrInputOccupied},
		{"flow output taken", ev.Output("next").ID, s2.Input("in").ID, ErrFlowOccupied},
		{"widening", src.Output("out").ID, sum.Input("values").ID, nil},
		{"reversed order", add.Input("a").ID, src.Output("out").ID, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links := len(g.Links())
			l, err := g.CreateLink(tt.a, tt.b)
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				if len(g.Links()) != links {
					t.Error("failed CreateLink changed the graph")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateLink: %v", err)
			}
			if g.pins[l.Start].Direction != Output || g.pins[l.End].Direction != Input {
				t.Errorf("link %d is not output to input", l.ID)
			}
		})
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestDataOutputFansOut(t *testing.T) {
	g := newTestGraph(t)
	src := mustNode(t, g, "test.const")
	a := mustNode(t, g, "test.add")
	b := mustNode(t, g, "test.add")
	mustLink(t, g, src.Output("out"), a.Input("a"))
	mustLink(t, g, src.Output("out"), b.Input("a"))
	if n := len(src.Output("out").Links()); n != 2 {
		t.Errorf("data output has %d links, want 2", n)
	}
}

func TestReconnectReplacesExistingLink(t *testing.T) {
	g := newTestGraph(t)
	first := mustNode(t, g, "test.const")
	second := mustNode(t, g, "test.const")
	add := mustNode(t, g, "test.add")
	old := mustLink(t, g, first.Output("out"), add.Input("a"))

	if _, err := g.Reconnect(second.Output("out").ID, add.Input("b").ID); err != nil {
		t.Fatalf("Reconnect to free pin: %v", err)
	}
	l, err := g.Reconnect(second.Output("out").ID, add.Input("a").ID)
	if err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if g.Link(old.ID) != nil {
		t.Error("old link still present")
	}
	if links := add.Input("a").Links(); len(links) != 1 || links[0] != l.ID {
		t.Errorf("input links = %v, want [%d]", links, l.ID)
	}
	if first.Output("out").Linked() {
		t.Error("old source still lists the removed link")
	}

	// An invalid reconnect leaves the existing link alone.
	ev := mustNode(t, g, "test.event")
	if _, err := g.Reconnect(ev.Output("next").ID, add.Input("a").ID); !errors.Is(err, ErrIncompatibleTypes) {
		t.Fatalf("err = %v, want ErrIncompatibleTypes", err)
	}
	if g.Link(l.ID) == nil {
		t.Error("failed Reconnect removed the existing link")
	}
}

func TestReconnectFlowOutput(t *testing.T) {
	g := newTestGraph(t)
	ev := mustNode(t, g, "test.event")
	a := mustNode(t, g, "test.step")
	b := mustNode(t, g, "test.step")
	mustLink(t, g, ev.Output("next"), a.Input("in"))

	if _, err := g.Reconnect(ev.Output("next").ID, b.Input("in").ID); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if a.Input("in").Linked() {
		t.Error("previous successor still linked")
	}
	if n := len(ev.Output("next").Links()); n != 1 {
		t.Errorf("flow output has %d links, want 1", n)
	}
}

func TestConnectDisconnectSymmetry(t *testing.T) {
	g := newTestGraph(t)
	ev := mustNode(t, g, "test.event")
	step := mustNode(t, g, "test.step")
	out, in := ev.Output("next"), step.Input("in")

	l := mustLink(t, g, out, in)
	if !slices.Contains(out.Links(), l.ID) || !slices.Contains(in.Links(), l.ID) {
		t.Fatal("link not listed on both endpoints")
	}
	sb := step.Behavior.(*stepBehavior)
	if sb.linked != 1 {
		t.Errorf("OnLinkConnected calls = %d, want 1", sb.linked)
	}

	if !g.DeleteLink(l.ID) {
		t.Fatal("DeleteLink reported unknown link")
	}
	if out.Linked() || in.Linked() {
		t.Error("link still listed after delete")
	}
	if sb.removed != 1 {
		t.Errorf("OnLinkDisconnected calls = %d, want 1", sb.removed)
	}
	if g.DeleteLink(l.ID) {
		t.Error("second DeleteLink should report false")
	}
}

func TestDeleteNodeCascades(t *testing.T) {
	g := newTestGraph(t)
	src := mustNode(t, g, "test.const")
	mid := mustNode(t, g, "test.add")
	dst := mustNode(t, g, "test.add")
	in := mustLink(t, g, src.Output("out"), mid.Input("a"))
	out := mustLink(t, g, mid.Output("out"), dst.Input("a"))
	pins := slices.Concat(mid.Inputs, mid.Outputs)

	if !g.DeleteNode(mid.ID) {
		t.Fatal("DeleteNode reported unknown node")
	}
	if g.Node(mid.ID) != nil {
		t.Error("node still present")
	}
	for _, pid := range pins {
		if g.Pin(pid) != nil {
			t.Errorf("pin %d still present", pid)
		}
	}
	if g.Link(in.ID) != nil || g.Link(out.ID) != nil {
		t.Error("links of deleted node still present")
	}
	if src.Output("out").Linked() || dst.Input("a").Linked() {
		t.Error("neighbours still reference removed links")
	}
	if mid.Graph() != nil {
		t.Error("deleted node still attached to graph")
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if g.DeleteNode(mid.ID) {
		t.Error("second DeleteNode should report false")
	}
}

func TestCreateAndDeleteDynamicPin(t *testing.T) {
	g := newTestGraph(t)
	n := mustNode(t, g, "test.add")
	src := mustNode(t, g, "test.const")

	def := Float(0.5)
	p, err := g.CreatePin(n.ID, PinSpec{Name: "c", Class: "float", Direction: Input, Default: &def})
	if err != nil {
		t.Fatalf("CreatePin: %v", err)
	}
	if n.IsStatic(p) || !n.IsStatic(n.Input("a")) {
		t.Error("IsStatic misclassifies pins")
	}
	if !p.Default.Equal(def) {
		t.Errorf("default = %+v, want %+v", p.Default, def)
	}
	if _, err := g.CreatePin(n.ID, PinSpec{Name: "c", Class: "float", Direction: Input}); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate pin err = %v", err)
	}
	mustLink(t, g, src.Output("out"), p)

	if !g.DeletePin(p.ID) {
		t.Fatal("DeletePin reported unknown pin")
	}
	if slices.Contains(n.Inputs, p.ID) || src.Output("out").Linked() {
		t.Error("pin removal left references behind")
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestSetPinDefault(t *testing.T) {
	g := newTestGraph(t)
	n := mustNode(t, g, "test.add")
	if err := g.SetPinDefault(n.Input("a").ID, Float(3)); err != nil {
		t.Fatalf("SetPinDefault: %v", err)
	}
	if got := n.Input("a").Default.Scalar(); got != 3 {
		t.Errorf("default = %v, want 3", got)
	}
	if err := g.SetPinDefault(n.Input("a").ID, Int(3)); !errors.Is(err, ErrIncompatibleTypes) {
		t.Errorf("int default err = %v", err)
	}
	if err := g.SetPinDefault(9999, Float(1)); !errors.Is(err, ErrUnknownPin) {
		t.Errorf("unknown pin err = %v", err)
	}
}

func TestEventsFollowSuccessfulMutations(t *testing.T) {
	g := newTestGraph(t)
	var events []Event
	cancel := g.Subscribe(func(e Event) { events = append(events, e) })

	n := mustNode(t, g, "test.const")
	if len(events) != 3 {
		t.Fatalf("events = %v, want node + 2 pins", events)
	}
	if events[0] != (Event{Op: Created, Entity: EntityNode, ID: n.ID}) {
		t.Errorf("first event = %v", events[0])
	}

	events = nil
	if _, err := g.CreateLink(n.Output("out").ID, n.Input("value").ID); err == nil {
		t.Fatal("self link should fail")
	}
	if len(events) != 0 {
		t.Errorf("failed mutation published %v", events)
	}

	cancel()
	mustNode(t, g, "test.const")
	if len(events) != 0 {
		t.Errorf("cancelled listener received %v", events)
	}
}

func TestDeletePropertyClearsBindings(t *testing.T) {
	g := newTestGraph(t)
	a := mustNode(t, g, "test.material")
	b := mustNode(t, g, "test.material")
	prop, err := g.CreateProperty("material", "")
	if err != nil {
		t.Fatalf("CreateProperty: %v", err)
	}
	if prop.Name != fmt.Sprintf("material_%d", prop.ID) {
		t.Errorf("generated name = %q", prop.Name)
	}
	for _, n := range []*Node{a, b} {
		if err := g.BindProperty(n.Input("material").ID, prop.ID); err != nil {
			t.Fatalf("BindProperty: %v", err)
		}
	}
	if len(g.BoundPins(prop.ID)) != 2 {
		t.Fatalf("bound pins = %d, want 2", len(g.BoundPins(prop.ID)))
	}

	var modified []ID
	g.Subscribe(func(e Event) {
		if e.Entity == EntityPin && e.Op == Modified {
			modified = append(modified, e.ID)
		}
	})
	if !g.DeleteProperty(prop.ID) {
		t.Fatal("DeleteProperty reported unknown property")
	}
	for _, n := range []*Node{a, b} {
		if n.Input("material").Property != NoID {
			t.Errorf("node %d still bound", n.ID)
		}
		if mb := n.Behavior.(*materialBehavior); mb.changed != 2 {
			t.Errorf("node %d OnPinChanged calls = %d, want 2 (bind + clear)", n.ID, mb.changed)
		}
	}
	if len(modified) != 2 {
		t.Errorf("pin modified events = %v, want 2", modified)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestBindPropertyChecksClass(t *testing.T) {
	g := newTestGraph(t)
	n := mustNode(t, g, "test.material")
	add := mustNode(t, g, "test.add")
	arr, _ := g.CreateProperty("floatArray", "weights")
	mat, _ := g.CreateProperty("material", "")

	if err := g.BindProperty(n.Input("material").ID, arr.ID); !errors.Is(err, ErrIncompatibleTypes) {
		t.Errorf("class mismatch err = %v", err)
	}
	if err := g.BindProperty(add.Input("a").ID, mat.ID); !errors.Is(err, ErrNotPropertyPin) {
		t.Errorf("value pin err = %v", err)
	}
	if _, err := g.CreateProperty("material", "weights"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate name err = %v", err)
	}
	if err := g.RenameProperty(mat.ID, "weights"); !errors.Is(err, ErrDuplicateName) {
		t.Errorf("rename to taken name err = %v", err)
	}
	if g.UnbindProperty(n.Input("material").ID) {
		t.Error("UnbindProperty on unbound pin should report false")
	}
}

func TestPropertyAndAssetNamesValidated(t *testing.T) {
	g := newTestGraph(t)
	prop, _ := g.CreateProperty("material", "wall")

	for _, name := range []string{" wall", "wall\n", strings.Repeat("w", 65)} {
		if _, err := g.CreateProperty("material", name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("CreateProperty(%q) err = %v", name, err)
		}
		if err := g.RenameProperty(prop.ID, name); !errors.Is(err, ErrInvalidName) || apperrors.GetCode(err) != apperrors.ErrCodeInvalidName {
			t.Errorf("RenameProperty(%q) err = %v", name, err)
		}
		if _, err := g.CreateAsset("material", name, "stone.mat"); !errors.Is(err, ErrInvalidName) {
			t.Errorf("CreateAsset(%q) err = %v", name, err)
		}
	}
	if prop.Name != "wall" {
		t.Errorf("rejected rename changed name to %q", prop.Name)
	}
}

func TestBindingPropagatesThroughPropertySource(t *testing.T) {
	g := newTestGraph(t)
	getter := mustNode(t, g, "test.getter")
	user := mustNode(t, g, "test.material")
	mustLink(t, g, getter.Output("material"), user.Input("material"))
	prop, _ := g.CreateProperty("material", "")

	if err := g.BindProperty(getter.Input("property").ID, prop.ID); err != nil {
		t.Fatalf("BindProperty: %v", err)
	}
	if mb := user.Behavior.(*materialBehavior); mb.changed != 1 {
		t.Errorf("downstream OnPinChanged calls = %d, want 1", mb.changed)
	}
	if got := g.ResolveProperty(user.Input("material").ID); got != prop {
		t.Errorf("ResolveProperty = %v, want %v", got, prop)
	}
}

func TestDeleteAssetClearsProperties(t *testing.T) {
	g := newTestGraph(t)
	asset, err := g.CreateAsset("material", "", "stone.mat")
	if err != nil {
		t.Fatalf("CreateAsset: %v", err)
	}
	prop, _ := g.CreateProperty("material", "")
	if err := g.SetPropertyAsset(prop.ID, asset.ID); err != nil {
		t.Fatalf("SetPropertyAsset: %v", err)
	}
	if !g.DeleteAsset(asset.ID) {
		t.Fatal("DeleteAsset reported unknown asset")
	}
	if prop.Asset != NoID {
		t.Errorf("property still wraps asset %d", prop.Asset)
	}
	if err := g.SetPropertyAsset(prop.ID, asset.ID); !errors.Is(err, ErrUnknownAsset) {
		t.Errorf("err = %v, want ErrUnknownAsset", err)
	}
}

func TestValidateDetectsCorruption(t *testing.T) {
	g := newTestGraph(t)
	src := mustNode(t, g, "test.const")
	dst := mustNode(t, g, "test.add")
	mustLink(t, g, src.Output("out"), dst.Input("a"))

	delete(g.pins, dst.Input("b").ID)
	g.pins[src.Output("out").ID].links = nil

	err := g.Validate()
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("Validate = %v, want ErrCorrupt", err)
	}
}
