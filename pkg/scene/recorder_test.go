package scene

import (
	"errors"
	"testing"
	"time"
)

func TestRecorderMaterials(t *testing.T) {
	r := NewRecorder()
	h := r.DefineMaterial("mat/glow", Uniform{Name: "tint", Type: UniformFloat4})

	got, err := r.LoadMaterial("mat/glow")
	if err != nil || got != h {
		t.Fatalf("LoadMaterial = %v, %v; want %v", got, err, h)
	}
	if r.LoadCount(h) != 1 {
		t.Errorf("LoadCount = %d, want 1", r.LoadCount(h))
	}
	r.ReleaseMaterial(h)
	if r.LoadCount(h) != 0 {
		t.Errorf("LoadCount after release = %d, want 0", r.LoadCount(h))
	}

	if _, err := r.LoadMaterial("mat/missing"); !errors.Is(err, ErrUnknownMaterial) {
		t.Errorf("LoadMaterial(missing) error = %v, want ErrUnknownMaterial", err)
	}

	u, err := r.MaterialUniforms(h)
	if err != nil || len(u) != 1 || u[0].Name != "tint" {
		t.Errorf("MaterialUniforms = %v, %v", u, err)
	}
}

func TestRecorderDraw(t *testing.T) {
	r := NewRecorder()
	uniforms := map[string][]float32{"a": {1}}
	if err := r.Draw(DrawCall{Material: 3, Uniforms: uniforms}); err != nil {
		t.Fatal(err)
	}
	uniforms["a"] = []float32{2}
	calls := r.Calls()
	if len(calls) != 1 || calls[0].Uniforms["a"][0] != 1 {
		t.Errorf("recorded call should not alias caller maps: %+v", calls)
	}

	r.Reset()
	if len(r.Calls()) != 0 {
		t.Error("Reset should discard calls")
	}

	r.DrawErr = errors.New("device lost")
	if err := r.Draw(DrawCall{}); err == nil {
		t.Error("Draw should return DrawErr")
	}
}

func TestFixedClockAndVideo(t *testing.T) {
	c := &FixedClock{Step: 16 * time.Millisecond}
	c.Tick()
	c.Tick()
	if c.Elapsed() != 32*time.Millisecond || c.Delta() != 16*time.Millisecond {
		t.Errorf("clock = %v/%v", c.Elapsed(), c.Delta())
	}

	if _, ok := (StaticVideo{}).CurrentFrame(); ok {
		t.Error("zero StaticVideo should report no frame")
	}
	if h, ok := (StaticVideo{Frame: 9}).CurrentFrame(); !ok || h != 9 {
		t.Errorf("CurrentFrame = %v, %v", h, ok)
	}
}
