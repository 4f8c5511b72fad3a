package scene

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// ErrUnknownMaterial is returned by [Recorder.LoadMaterial] for paths that
// were never defined.
var ErrUnknownMaterial = errors.New("unknown material")

// ErrUnknownHandle is returned when a handle was not issued by the provider.
var ErrUnknownHandle = errors.New("unknown handle")

// Recorder is an in-memory [RenderProvider] that records draw calls instead
// of rasterizing them. Materials must be declared with [Recorder.DefineMaterial]
// before they can be loaded; textures and meshes are allocated on demand.
//
// Recorder is not safe for concurrent use.
type Recorder struct {
	next      Handle
	materials map[string]Handle
	uniforms  map[Handle][]Uniform
	textures  map[string]Handle
	meshes    map[string]Handle
	loaded    map[Handle]int
	calls     []DrawCall

	// DrawErr, when set, is returned from every Draw call.
	DrawErr error
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		materials: make(map[string]Handle),
		uniforms:  make(map[Handle][]Uniform),
		textures:  make(map[string]Handle),
		meshes:    make(map[string]Handle),
		loaded:    make(map[Handle]int),
	}
}

// DefineMaterial declares a material at path exposing uniforms. Redefining
// a path replaces its uniform table and keeps its handle.
func (r *Recorder) DefineMaterial(path string, uniforms ...Uniform) Handle {
	h, ok := r.materials[path]
	if !ok {
		h = r.alloc()
		r.materials[path] = h
	}
	r.uniforms[h] = slices.Clone(uniforms)
	return h
}

// LoadMaterial implements [RenderProvider].
func (r *Recorder) LoadMaterial(path string) (Handle, error) {
	h, ok := r.materials[path]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownMaterial, path)
	}
	r.loaded[h]++
	return h, nil
}

// ReleaseMaterial implements [RenderProvider].
func (r *Recorder) ReleaseMaterial(h Handle) {
	if r.loaded[h] > 0 {
		r.loaded[h]--
	}
}

// LoadCount returns how many outstanding loads a handle has.
func (r *Recorder) LoadCount(h Handle) int { return r.loaded[h] }

// MaterialUniforms implements [RenderProvider].
func (r *Recorder) MaterialUniforms(h Handle) ([]Uniform, error) {
	u, ok := r.uniforms[h]
	if !ok {
		return nil, fmt.Errorf("%w: material %d", ErrUnknownHandle, h)
	}
	return slices.Clone(u), nil
}

// LoadTexture implements [RenderProvider].
func (r *Recorder) LoadTexture(path string) (Handle, error) {
	return r.lookupOrAlloc(r.textures, path), nil
}

// LoadMesh implements [RenderProvider].
func (r *Recorder) LoadMesh(path string) (Handle, error) {
	return r.lookupOrAlloc(r.meshes, path), nil
}

// Draw implements [RenderProvider].
func (r *Recorder) Draw(call DrawCall) error {
	if r.DrawErr != nil {
		return r.DrawErr
	}
	call.Uniforms = maps.Clone(call.Uniforms)
	call.Textures = maps.Clone(call.Textures)
	r.calls = append(r.calls, call)
	return nil
}

// Calls returns the draw calls recorded since the last Reset.
func (r *Recorder) Calls() []DrawCall { return slices.Clone(r.calls) }

// Reset discards recorded draw calls.
func (r *Recorder) Reset() { r.calls = r.calls[:0] }

func (r *Recorder) alloc() Handle {
	r.next++
	return r.next
}

func (r *Recorder) lookupOrAlloc(m map[string]Handle, path string) Handle {
	if h, ok := m[path]; ok {
		return h
	}
	h := r.alloc()
	m[path] = h
	return h
}

var _ RenderProvider = (*Recorder)(nil)

// StaticVideo is a [VideoSource] that always returns Frame.
// A zero Frame means no frame is available.
type StaticVideo struct {
	Frame Handle
}

// CurrentFrame implements [VideoSource].
func (v StaticVideo) CurrentFrame() (Handle, bool) { return v.Frame, v.Frame != 0 }

// FixedClock is a [TimeSource] that advances by Step on every Tick.
type FixedClock struct {
	Step    time.Duration
	elapsed time.Duration
}

// Tick advances the clock by one step.
func (c *FixedClock) Tick() { c.elapsed += c.Step }

// Delta implements [TimeSource].
func (c *FixedClock) Delta() time.Duration { return c.Step }

// Elapsed implements [TimeSource].
func (c *FixedClock) Elapsed() time.Duration { return c.elapsed }
