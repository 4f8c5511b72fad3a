package scene

import (
	"slices"
	"testing"
)

func TestMemoryStencils(t *testing.T) {
	m := NewMemoryStencils()

	var events []StencilEvent
	cancel := m.Subscribe(func(ev StencilEvent) { events = append(events, ev) })

	q1 := m.Add(Stencil{Kind: StencilQuad, Transform: Identity()})
	q2 := m.Add(Stencil{Kind: StencilQuad, Transform: Identity()})
	b1 := m.Add(Stencil{Kind: StencilBox, Transform: Identity()})

	if got := m.StencilIDs(StencilQuad); !slices.Equal(got, []int{q1, q2}) {
		t.Errorf("StencilIDs(quad) = %v, want %v", got, []int{q1, q2})
	}
	if got := m.StencilIDs(StencilModel); len(got) != 0 {
		t.Errorf("StencilIDs(model) = %v, want empty", got)
	}

	s, ok := m.Stencil(StencilBox, b1)
	if !ok || s.ID != b1 {
		t.Fatalf("Stencil(box, %d) = %v, %v", b1, s, ok)
	}

	if !m.Remove(StencilQuad, q1) {
		t.Error("Remove should succeed for a registered stencil")
	}
	if m.Remove(StencilQuad, q1) {
		t.Error("Remove should fail the second time")
	}
	if len(events) != 4 || !events[3].Removed {
		t.Errorf("events = %+v, want 4 with the last a removal", events)
	}

	cancel()
	m.Add(Stencil{Kind: StencilModel})
	if len(events) != 4 {
		t.Error("cancelled subscriber should not be notified")
	}
}

func TestParseStencilKind(t *testing.T) {
	for _, k := range StencilKinds {
		got, err := ParseStencilKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseStencilKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseStencilKind("sphere"); err == nil {
		t.Error("expected error for unknown kind")
	}
}
