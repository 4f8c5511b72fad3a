// Package compositor decides how a draw layer is masked and blended over the
// stencil volumes registered with the scene.
//
// A layer is drawn once per stencil instance of every enabled stencil kind.
// For each instance the configured [StencilMode] is turned into an effective
// [scene.StencilTest]; when InvertWhenCameraInside is set and the viewing
// camera sits inside the stencil volume, inside and outside swap so that a
// wall-like stencil reads correctly from both sides.
//
// The package is pure policy: it never talks to a rendering backend. The
// draw-layer node turns the returned [Pass] list into [scene.DrawCall]s.
package compositor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// ErrUnknownMode is returned when parsing an unrecognized mode name.
var ErrUnknownMode = errors.New("unknown mode")

// StencilMode is the configured stencil test of a layer.
type StencilMode int

const (
	// Inside draws the layer only within stencil volumes.
	Inside StencilMode = iota
	// Outside draws the layer only outside stencil volumes.
	Outside
	// Disabled draws the layer once without masking.
	Disabled
)

var modeNames = map[StencilMode]string{Inside: "inside", Outside: "outside", Disabled: "disabled"}

func (m StencilMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("StencilMode(%d)", int(m))
}

// ParseStencilMode converts "inside", "outside" or "disabled".
func ParseStencilMode(s string) (StencilMode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: stencil mode %q", ErrUnknownMode, s)
}

// ParseBlendMode converts "replace" or "alpha".
func ParseBlendMode(s string) (scene.BlendMode, error) {
	switch strings.ToLower(s) {
	case "replace":
		return scene.BlendSource, nil
	case "alpha":
		return scene.BlendSourceOver, nil
	}
	return 0, fmt.Errorf("%w: blend mode %q", ErrUnknownMode, s)
}

// Settings configures one draw layer.
type Settings struct {
	Mode                   StencilMode
	InvertWhenCameraInside bool
	Blend                  scene.BlendMode
	FlipY                  bool
	// Kinds restricts which stencil kinds mask the layer. Nil means all.
	Kinds []scene.StencilKind
}

// Pass is one masked draw of the layer.
type Pass struct {
	// Stencil is nil for an unmasked pass.
	Stencil *scene.Stencil
	Test    scene.StencilTest
	// CameraInside records the inside test that produced Test.
	CameraInside bool
}

// CameraInside reports whether camera lies within the stencil volume.
//
// A box is the unit cube in local space. A quad's volume is the half space
// behind its face (local z < 0). A model uses its local bounds, falling back
// to the unit cube when the bounds are empty.
func CameraInside(s scene.Stencil, camera scene.Vec3) bool {
	local := s.Transform.InverseTransformPoint(camera)
	switch s.Kind {
	case scene.StencilQuad:
		return local[2] < 0
	case scene.StencilBox:
		return scene.UnitCube.Contains(local)
	case scene.StencilModel:
		if s.Bounds.Empty() {
			return scene.UnitCube.Contains(local)
		}
		return s.Bounds.Contains(local)
	}
	return false
}

// EffectiveTest resolves the stencil test for one stencil instance.
func EffectiveTest(mode StencilMode, invertWhenCameraInside, cameraInside bool) scene.StencilTest {
	var test scene.StencilTest
	switch mode {
	case Inside:
		test = scene.TestInside
	case Outside:
		test = scene.TestOutside
	default:
		return scene.TestNone
	}
	if invertWhenCameraInside && cameraInside {
		if test == scene.TestInside {
			return scene.TestOutside
		}
		return scene.TestInside
	}
	return test
}

// UVRect returns the texture-coordinate rectangle (u0, v0, u1, v1).
// Flipping swaps the v range for buffers stored with the opposite row order.
func UVRect(flipY bool) [4]float32 {
	if flipY {
		return [4]float32{0, 1, 1, 0}
	}
	return [4]float32{0, 0, 1, 1}
}

// FrontFace returns the triangle winding that keeps the quad front-facing
// after an optional vertical flip.
func FrontFace(flipY bool) scene.Winding {
	if flipY {
		return scene.WindingCW
	}
	return scene.WindingCCW
}

// Plan returns the passes for a layer given the registered stencils.
// Stencils of kinds not enabled by s.Kinds are skipped. With Mode Disabled
// the result is a single unmasked pass regardless of the stencils.
func Plan(s Settings, stencils []scene.Stencil, camera scene.Vec3) []Pass {
	if s.Mode == Disabled {
		return []Pass{{Test: scene.TestNone}}
	}
	var passes []Pass
	for i := range stencils {
		st := &stencils[i]
		if !s.enabled(st.Kind) {
			continue
		}
		inside := CameraInside(*st, camera)
		passes = append(passes, Pass{
			Stencil:      st,
			Test:         EffectiveTest(s.Mode, s.InvertWhenCameraInside, inside),
			CameraInside: inside,
		})
	}
	return passes
}

func (s Settings) enabled(k scene.StencilKind) bool {
	if s.Kinds == nil {
		return true
	}
	for _, e := range s.Kinds {
		if e == k {
			return true
		}
	}
	return false
}

// DrawCall builds the draw call for a pass.
func (s Settings) DrawCall(p Pass, surface, material scene.Handle) scene.DrawCall {
	call := scene.DrawCall{
		Surface:  surface,
		Material: material,
		Test:     p.Test,
		Blend:    s.Blend,
		UV:       UVRect(s.FlipY),
		Winding:  FrontFace(s.FlipY),
		Uniforms: make(map[string][]float32),
		Textures: make(map[string]scene.Handle),
	}
	if p.Stencil != nil && p.Test != scene.TestNone {
		call.Stencil = &scene.StencilRef{
			Kind:      p.Stencil.Kind,
			ID:        p.Stencil.ID,
			Transform: p.Stencil.Transform,
			Mesh:      p.Stencil.Mesh,
		}
	}
	return call
}
