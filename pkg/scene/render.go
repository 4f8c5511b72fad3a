package scene

import (
	"fmt"
	"strings"
	"time"
)

// Handle is an opaque reference to a rendering resource owned by the
// rendering backend. The zero Handle refers to nothing.
type Handle uint64

// UniformType is the declared type of a material uniform.
type UniformType int

const (
	UniformFloat UniformType = iota
	UniformFloat2
	UniformFloat3
	UniformFloat4
	UniformTexture
)

var uniformTypeNames = map[UniformType]string{
	UniformFloat:   "float",
	UniformFloat2:  "float2",
	UniformFloat3:  "float3",
	UniformFloat4:  "float4",
	UniformTexture: "texture",
}

func (u UniformType) String() string {
	if s, ok := uniformTypeNames[u]; ok {
		return s
	}
	return fmt.Sprintf("UniformType(%d)", int(u))
}

// Components returns the number of float components, or 0 for textures.
func (u UniformType) Components() int {
	switch u {
	case UniformFloat:
		return 1
	case UniformFloat2:
		return 2
	case UniformFloat3:
		return 3
	case UniformFloat4:
		return 4
	}
	return 0
}

// ParseUniformType converts a uniform type name such as "float4".
func ParseUniformType(s string) (UniformType, error) {
	for t, name := range uniformTypeNames {
		if strings.EqualFold(s, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown uniform type %q", s)
}

// Uniform describes one uniform a material exposes.
type Uniform struct {
	Name    string
	Type    UniformType
	Default []float32
}

// StencilTest selects which side of the stencil mask a draw writes to.
type StencilTest int

const (
	// TestNone draws without stencil masking.
	TestNone StencilTest = iota
	// TestInside draws only where the stencil volume covers the pixel.
	TestInside
	// TestOutside draws only where the stencil volume does not cover the pixel.
	TestOutside
)

func (t StencilTest) String() string {
	switch t {
	case TestInside:
		return "inside"
	case TestOutside:
		return "outside"
	}
	return "none"
}

// BlendMode selects how a layer combines with the render target.
// Names follow Porter-Duff compositing.
type BlendMode int

const (
	// BlendSource replaces the destination with the source.
	BlendSource BlendMode = iota
	// BlendSourceOver alpha-blends the source over the destination.
	BlendSourceOver
)

func (b BlendMode) String() string {
	if b == BlendSourceOver {
		return "alpha"
	}
	return "replace"
}

// Winding is the front-face triangle winding order of a draw.
type Winding int

const (
	WindingCCW Winding = iota
	WindingCW
)

func (w Winding) String() string {
	if w == WindingCW {
		return "cw"
	}
	return "ccw"
}

// StencilRef identifies the stencil volume a draw is masked against.
type StencilRef struct {
	Kind      StencilKind
	ID        int
	Transform Transform
	Mesh      Handle
}

// DrawCall is one masked, blended draw of a material over the surface.
type DrawCall struct {
	Surface  Handle
	Material Handle
	// Stencil is nil when Test is TestNone.
	Stencil *StencilRef
	Test    StencilTest
	Blend   BlendMode
	// UV is the texture-coordinate rectangle (u0, v0, u1, v1).
	UV       [4]float32
	Winding  Winding
	Uniforms map[string][]float32
	Textures map[string]Handle
}

// RenderProvider allocates and binds rendering resources by opaque handle.
type RenderProvider interface {
	LoadMaterial(path string) (Handle, error)
	ReleaseMaterial(h Handle)
	// MaterialUniforms introspects the uniforms a material exposes.
	MaterialUniforms(h Handle) ([]Uniform, error)
	LoadTexture(path string) (Handle, error)
	LoadMesh(path string) (Handle, error)
	Draw(call DrawCall) error
}

// VideoSource provides the current decoded video frame.
type VideoSource interface {
	// CurrentFrame returns the frame texture, or false when no frame has
	// been decoded yet.
	CurrentFrame() (Handle, bool)
}

// TimeSource provides per-frame timing.
type TimeSource interface {
	Delta() time.Duration
	Elapsed() time.Duration
}
