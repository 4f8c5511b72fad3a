package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Scene describes the collaborators of a headless evaluation.
//
//	camera = [0, 1.6, 3]
//	video_frame = 42
//	frames = 10
//	frame_step = "16ms"
//
//	[[stencils]]
//	kind = "box"
//	transform = { position = [0, 1, 0], scale = [2, 2, 2] }
//
//	[[materials]]
//	path = "portal.mat"
//	uniforms = [
//	  { name = "tint", type = "float4", default = [1, 1, 1, 1] },
//	]
type Scene struct {
	Camera     scene.Vec3 `toml:"camera"`
	Surface    uint64     `toml:"surface"`
	VideoFrame uint64     `toml:"video_frame"`
	Frames     int        `toml:"frames"`
	FrameStep  duration   `toml:"frame_step"`

	Stencils  []StencilSpec  `toml:"stencils"`
	Materials []MaterialSpec `toml:"materials"`
}

// StencilSpec is a stencil volume entry.
type StencilSpec struct {
	Kind      string           `toml:"kind"`
	Transform *scene.Transform `toml:"transform"`
	Bounds    scene.AABB       `toml:"bounds"`
	// Mesh is the asset path of a model stencil's mesh.
	Mesh string `toml:"mesh"`
}

// MaterialSpec declares a material and its uniform table.
type MaterialSpec struct {
	Path     string        `toml:"path"`
	Uniforms []UniformSpec `toml:"uniforms"`
}

// UniformSpec is one material uniform.
type UniformSpec struct {
	Name    string    `toml:"name"`
	Type    string    `toml:"type"`
	Default []float32 `toml:"default"`
}

// LoadScene reads a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := DecodeScene(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// DecodeScene parses a scene description. Frames defaults to 1 and
// FrameStep to 1/60 s.
func DecodeScene(data string) (*Scene, error) {
	s := &Scene{Surface: 1, Frames: 1, FrameStep: duration{time.Second / 60}}
	if _, err := toml.Decode(data, s); err != nil {
		return nil, err
	}
	if s.Frames < 1 {
		return nil, fmt.Errorf("frames must be at least 1, got %d", s.Frames)
	}
	for i, st := range s.Stencils {
		if _, err := scene.ParseStencilKind(st.Kind); err != nil {
			return nil, fmt.Errorf("stencils[%d]: %w", i, err)
		}
	}
	for i, m := range s.Materials {
		if m.Path == "" {
			return nil, fmt.Errorf("materials[%d]: empty path", i)
		}
		for _, u := range m.Uniforms {
			t, err := scene.ParseUniformType(u.Type)
			if err != nil {
				return nil, fmt.Errorf("materials[%d] uniform %q: %w", i, u.Name, err)
			}
			if n := t.Components(); n > 0 && len(u.Default) > 0 && len(u.Default) != n {
				return nil, fmt.Errorf("materials[%d] uniform %q: %s default needs %d components", i, u.Name, t, n)
			}
		}
	}
	return s, nil
}

// Apply declares the scene's materials on rec and registers its stencils.
// Model stencils load their mesh through rec.
func (s *Scene) Apply(rec *scene.Recorder, stencils *scene.MemoryStencils) error {
	for _, m := range s.Materials {
		uniforms := make([]scene.Uniform, len(m.Uniforms))
		for i, u := range m.Uniforms {
			t, err := scene.ParseUniformType(u.Type)
			if err != nil {
				return err
			}
			uniforms[i] = scene.Uniform{Name: u.Name, Type: t, Default: u.Default}
		}
		rec.DefineMaterial(m.Path, uniforms...)
	}
	for _, spec := range s.Stencils {
		kind, err := scene.ParseStencilKind(spec.Kind)
		if err != nil {
			return err
		}
		st := scene.Stencil{Kind: kind, Transform: scene.Identity(), Bounds: spec.Bounds}
		if spec.Transform != nil {
			st.Transform = *spec.Transform
		}
		if spec.Mesh != "" {
			if st.Mesh, err = rec.LoadMesh(spec.Mesh); err != nil {
				return err
			}
		}
		stencils.Add(st)
	}
	return nil
}

// Clock returns a clock advancing by the scene's frame step.
func (s *Scene) Clock() *scene.FixedClock {
	return &scene.FixedClock{Step: s.FrameStep.Duration}
}

// Video returns the scene's video source.
func (s *Scene) Video() scene.StaticVideo {
	return scene.StaticVideo{Frame: scene.Handle(s.VideoFrame)}
}
