package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matzehuels/mixgraph/pkg/compositor"
	"github.com/matzehuels/mixgraph/pkg/config"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/nodegraph/nodes"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

const roomScene = `
camera = [0, 0, 5]
video_frame = 7
frames = 3
frame_step = "20ms"

[[stencils]]
kind = "box"

[[stencils]]
kind = "quad"
transform = { position = [0, 0, 10] }

[[materials]]
path = "portal.mat"
uniforms = [
  { name = "tint", type = "float4", default = [1, 0, 0, 1] },
]
`

func newSession(t *testing.T) *Session {
	t.Helper()
	reg, err := nodes.NewRegistry()
	if err != nil {
		t.Fatal(err)
	}
	g := nodegraph.New(reg, nodegraph.Options{Class: nodes.GraphClass})
	if _, err := nodes.Chain(g, nodes.Layer{Material: "portal.mat", Mode: int32(compositor.Inside)}); err != nil {
		t.Fatal(err)
	}
	sc, err := config.DecodeScene(roomScene)
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(g, sc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRebuildsUniformPins(t *testing.T) {
	s := newSession(t)
	layer := s.Graph().NodesByClass(nodes.DrawLayer)[0]
	if layer.Input("tint") == nil {
		t.Fatal("draw layer has no tint pin after the scene was applied")
	}
}

func TestSessionRun(t *testing.T) {
	s := newSession(t)
	frames := s.Run(context.Background(), 3)
	if len(frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(frames))
	}
	for i, f := range frames {
		if f.Index != i {
			t.Errorf("frame %d index = %d", i, f.Index)
		}
		if !f.Completed || len(f.Errors) != 0 {
			t.Errorf("frame %d: completed = %v, errors = %v", i, f.Completed, f.Errors)
		}
		if len(f.Draws) != 2 {
			t.Fatalf("frame %d draws = %d, want one per stencil", i, len(f.Draws))
		}
	}
	if got := frames[2].Elapsed; got != 40*time.Millisecond {
		t.Errorf("elapsed of frame 2 = %v", got)
	}
	d := frames[0].Draws[0]
	if d.StencilKind != "quad" && d.StencilKind != "box" {
		t.Errorf("stencil kind = %q", d.StencilKind)
	}
	if got := d.Uniforms["tint"]; len(got) != 4 || got[0] != 1 {
		t.Errorf("tint uniform = %v", got)
	}
}

func TestSessionStencilChangesBetweenFrames(t *testing.T) {
	s := newSession(t)
	ctx := context.Background()
	f, _ := s.Step(ctx)
	before := len(f.Draws)
	s.Stencils().Add(scene.Stencil{Kind: scene.StencilBox, Transform: scene.Identity()})
	f, _ = s.Step(ctx)
	if len(f.Draws) != before+1 {
		t.Errorf("draws = %d, want %d", len(f.Draws), before+1)
	}
}

func TestSessionClosed(t *testing.T) {
	s := newSession(t)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := s.Step(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Step after Close = %v", err)
	}
	if frames := s.Run(context.Background(), 2); len(frames) != 0 {
		t.Errorf("Run after Close returned %d frames", len(frames))
	}
}

func TestSessionCanceledContext(t *testing.T) {
	s := newSession(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	frames := s.Run(ctx, 5)
	if len(frames) != 1 || frames[0].Completed {
		t.Errorf("frames = %d, completed = %v", len(frames), frames[0].Completed)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Now()
	r.now = func() time.Time { return now }

	s := newSession(t)
	r.Add(s)
	if got, err := r.Get(s.ID); err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown = %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := r.Get(s.ID); !errors.Is(err, ErrExpired) {
		t.Errorf("Get expired = %v", err)
	}
	if len(r.IDs()) != 0 {
		t.Errorf("expired session still registered")
	}

	s2 := newSession(t)
	r.Add(s2)
	now = now.Add(2 * time.Minute)
	if n := r.Cleanup(); n != 1 {
		t.Errorf("Cleanup removed %d", n)
	}
	if _, err := s2.Step(context.Background()); !errors.Is(err, ErrClosed) {
		t.Error("cleaned up session should be closed")
	}
}

func TestGenerateID(t *testing.T) {
	a, err := GenerateID()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateID()
	if a == b || len(a) != 24 {
		t.Errorf("ids %q, %q", a, b)
	}
}
