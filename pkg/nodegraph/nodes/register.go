package nodes

import (
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Pin class names.
const (
	PinFlow               = "flow"
	PinFloat              = "float"
	PinFloat2             = "float2"
	PinFloat3             = "float3"
	PinFloat4             = "float4"
	PinInt                = "int"
	PinInt2               = "int2"
	PinInt3               = "int3"
	PinInt4               = "int4"
	PinTexture            = "texture"
	PinMesh               = "mesh"
	PinFloatArray         = "floatArray"
	PinMaterial           = "material"
	PinTextureProperty    = "textureProperty"
	PinModel              = "model"
	PinFloatArrayProperty = "floatArrayProperty"
)

// Asset and property class names.
const (
	Material   = "material"
	Texture    = "texture"
	Model      = "model"
	FloatArray = "floatArray"
)

// Graph class persisted with documents built from this registry.
const GraphClass = "mixgraph"

// NewRegistry returns a registry holding every built-in variant.
func NewRegistry() (*nodegraph.Registry, error) {
	r := nodegraph.NewRegistry()
	if err := Register(r); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds every built-in variant to r.
func Register(r *nodegraph.Registry) error {
	for _, c := range pinClasses() {
		if err := r.RegisterPin(c); err != nil {
			return err
		}
	}
	for _, c := range assetClasses() {
		if err := r.RegisterAsset(c); err != nil {
			return err
		}
	}
	for _, c := range propertyClasses() {
		if err := r.RegisterProperty(c); err != nil {
			return err
		}
	}
	for _, c := range nodeClasses() {
		if err := r.RegisterNode(c); err != nil {
			return err
		}
	}
	return nil
}

func pinClasses() []nodegraph.PinClass {
	typ := func(k nodegraph.ValueKind) nodegraph.PinType { return nodegraph.PinType{Kind: k} }
	prop := func(class string) nodegraph.PinType {
		return nodegraph.PinType{Kind: nodegraph.KindProperty, PropertyClass: class}
	}
	return []nodegraph.PinClass{
		{Name: PinFlow, Type: typ(nodegraph.KindFlow)},
		{Name: PinFloat, Type: typ(nodegraph.KindFloat)},
		{Name: PinFloat2, Type: typ(nodegraph.KindFloat2)},
		{Name: PinFloat3, Type: typ(nodegraph.KindFloat3)},
		{Name: PinFloat4, Type: typ(nodegraph.KindFloat4)},
		{Name: PinInt, Type: typ(nodegraph.KindInt)},
		{Name: PinInt2, Type: typ(nodegraph.KindInt2)},
		{Name: PinInt3, Type: typ(nodegraph.KindInt3)},
		{Name: PinInt4, Type: typ(nodegraph.KindInt4)},
		{Name: PinTexture, Type: typ(nodegraph.KindTexture)},
		{Name: PinMesh, Type: typ(nodegraph.KindMesh)},
		{Name: PinFloatArray, Type: nodegraph.PinType{Kind: nodegraph.KindArray, Elem: nodegraph.KindFloat}},
		{Name: PinMaterial, Type: prop(Material)},
		{Name: PinTextureProperty, Type: prop(Texture)},
		{Name: PinModel, Type: prop(Model)},
		{Name: PinFloatArrayProperty, Type: prop(FloatArray)},
	}
}

func assetClasses() []nodegraph.AssetClass {
	return []nodegraph.AssetClass{
		{
			Name:    Material,
			Load:    func(p scene.RenderProvider, path string) (scene.Handle, error) { return p.LoadMaterial(path) },
			Release: func(p scene.RenderProvider, h scene.Handle) { p.ReleaseMaterial(h) },
		},
		{
			Name: Texture,
			Load: func(p scene.RenderProvider, path string) (scene.Handle, error) { return p.LoadTexture(path) },
		},
		{
			Name: Model,
			Load: func(p scene.RenderProvider, path string) (scene.Handle, error) { return p.LoadMesh(path) },
		},
	}
}

// FloatArrayValue is the payload of a floatArray property.
type FloatArrayValue struct {
	Values []float32 `json:"values"`
}

func propertyClasses() []nodegraph.PropertyClass {
	return []nodegraph.PropertyClass{
		{Name: Material, Asset: Material},
		{Name: Texture, Asset: Texture},
		{Name: Model, Asset: Model},
		{Name: FloatArray, New: func() any { return &FloatArrayValue{} }},
	}
}

func in(name, class string) nodegraph.PinSpec {
	return nodegraph.PinSpec{Name: name, Class: class, Direction: nodegraph.Input}
}

func out(name, class string) nodegraph.PinSpec {
	return nodegraph.PinSpec{Name: name, Class: class, Direction: nodegraph.Output}
}

func withDefault(s nodegraph.PinSpec, v nodegraph.Value) nodegraph.PinSpec {
	s.Default = &v
	return s
}

func nodeClasses() []nodegraph.NodeClass {
	return []nodegraph.NodeClass{
		{
			Name:        EventFrame,
			Category:    "event",
			Description: "Starts a flow chain once per frame.",
			Event:       true,
			Pins:        []nodegraph.PinSpec{out("next", PinFlow)},
		},
		{
			Name:        DrawLayer,
			Category:    "draw",
			Description: "Draws a material over the surface, masked by the scene's stencil volumes.",
			Pins:        drawLayerPins(),
			New:         func() nodegraph.Behavior { return &drawLayer{} },
		},
		{
			Name:        ValueFloat,
			Category:    "value",
			Description: "A constant float.",
			Pins:        []nodegraph.PinSpec{in("value", PinFloat), out("out", PinFloat)},
			New:         func() nodegraph.Behavior { return passThrough{} },
		},
		{
			Name:        ValueFloat4,
			Category:    "value",
			Description: "A constant float4, such as a color.",
			Pins:        []nodegraph.PinSpec{in("value", PinFloat4), out("out", PinFloat4)},
			New:         func() nodegraph.Behavior { return passThrough{} },
		},
		{
			Name:        ValueInt,
			Category:    "value",
			Description: "A constant int.",
			Pins:        []nodegraph.PinSpec{in("value", PinInt), out("out", PinInt)},
			New:         func() nodegraph.Behavior { return passThrough{} },
		},
		{
			Name:        MathAdd,
			Category:    "math",
			Description: "a + b",
			Pins:        []nodegraph.PinSpec{in("a", PinFloat), in("b", PinFloat), out("out", PinFloat)},
			New:         func() nodegraph.Behavior { return binary(func(a, b float32) float32 { return a + b }) },
		},
		{
			Name:        MathMultiply,
			Category:    "math",
			Description: "a * b",
			Pins: []nodegraph.PinSpec{
				withDefault(in("a", PinFloat), nodegraph.Float(1)),
				withDefault(in("b", PinFloat), nodegraph.Float(1)),
				out("out", PinFloat),
			},
			New: func() nodegraph.Behavior { return binary(func(a, b float32) float32 { return a * b }) },
		},
		{
			Name:        MathSine,
			Category:    "math",
			Description: "amplitude * sin(x * frequency)",
			Pins: []nodegraph.PinSpec{
				in("x", PinFloat),
				withDefault(in("frequency", PinFloat), nodegraph.Float(1)),
				withDefault(in("amplitude", PinFloat), nodegraph.Float(1)),
				out("out", PinFloat),
			},
			New: func() nodegraph.Behavior { return sine{} },
		},
		{
			Name:        MathSum,
			Category:    "math",
			Description: "Sum of a float array.",
			Pins:        []nodegraph.PinSpec{in("values", PinFloatArray), out("out", PinFloat)},
			New:         func() nodegraph.Behavior { return sum{} },
		},
		{
			Name:        TimeFrame,
			Category:    "input",
			Description: "Frame delta and elapsed time in seconds.",
			Pins:        []nodegraph.PinSpec{out("delta", PinFloat), out("elapsed", PinFloat)},
			New:         func() nodegraph.Behavior { return frameTime{} },
		},
		{
			Name:        VideoFrame,
			Category:    "input",
			Description: "The current passthrough video frame.",
			Pins:        []nodegraph.PinSpec{out("texture", PinTexture)},
			New:         func() nodegraph.Behavior { return videoFrame{} },
		},
		{
			Name:        PropertyMaterial,
			Category:    "property",
			Description: "Exposes a material property to other nodes.",
			Pins:        []nodegraph.PinSpec{in("property", PinMaterial), out("material", PinMaterial)},
			New:         func() nodegraph.Behavior { return propertyGetter{} },
		},
		{
			Name:        PropertyTexture,
			Category:    "property",
			Description: "Loads the texture a texture property points at.",
			Pins:        []nodegraph.PinSpec{in("property", PinTextureProperty), out("texture", PinTexture)},
			New:         func() nodegraph.Behavior { return textureGetter{} },
		},
		{
			Name:        PropertyFloatArray,
			Category:    "property",
			Description: "Reads the values of a float array property.",
			Pins:        []nodegraph.PinSpec{in("property", PinFloatArrayProperty), out("values", PinFloatArray)},
			New:         func() nodegraph.Behavior { return floatArrayGetter{} },
		},
	}
}
