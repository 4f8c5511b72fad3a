package nodegraph

import (
	"fmt"
	"slices"

	"github.com/matzehuels/mixgraph/pkg/scene"
)

// ID identifies a node, pin, link, property or asset reference within one
// graph. Ids come from a single per-graph counter and are never reused.
// The zero ID refers to nothing.
type ID int64

// NoID is the zero ID.
const NoID ID = 0

// ValueKind is the kind of value a pin carries.
type ValueKind int

const (
	KindFlow ValueKind = iota
	KindFloat
	KindFloat2
	KindFloat3
	KindFloat4
	KindInt
	KindInt2
	KindInt3
	KindInt4
	KindTexture
	KindMesh
	KindProperty
	KindArray
)

var kindNames = []string{
	KindFlow:     "flow",
	KindFloat:    "float",
	KindFloat2:   "float2",
	KindFloat3:   "float3",
	KindFloat4:   "float4",
	KindInt:      "int",
	KindInt2:     "int2",
	KindInt3:     "int3",
	KindInt4:     "int4",
	KindTexture:  "texture",
	KindMesh:     "mesh",
	KindProperty: "property",
	KindArray:    "array",
}

func (k ValueKind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// MarshalText encodes the kind by name.
func (k ValueKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText decodes a kind name.
func (k *ValueKind) UnmarshalText(b []byte) error {
	i := slices.Index(kindNames, string(b))
	if i < 0 {
		return fmt.Errorf("unknown value kind %q", b)
	}
	*k = ValueKind(i)
	return nil
}

// Components returns the vector width of numeric kinds and 0 otherwise.
func (k ValueKind) Components() int {
	switch k {
	case KindFloat, KindInt:
		return 1
	case KindFloat2, KindInt2:
		return 2
	case KindFloat3, KindInt3:
		return 3
	case KindFloat4, KindInt4:
		return 4
	}
	return 0
}

// IsFloat reports whether k is a float scalar or vector.
func (k ValueKind) IsFloat() bool { return k >= KindFloat && k <= KindFloat4 }

// IsInt reports whether k is an int scalar or vector.
func (k ValueKind) IsInt() bool { return k >= KindInt && k <= KindInt4 }

// PinType is the declared type of a pin.
type PinType struct {
	Kind ValueKind
	// Elem is the element kind of an array pin.
	Elem ValueKind
	// PropertyClass is the property class a property pin accepts.
	PropertyClass string
}

func (t PinType) String() string {
	switch t.Kind {
	case KindArray:
		return "array<" + t.Elem.String() + ">"
	case KindProperty:
		return "property<" + t.PropertyClass + ">"
	}
	return t.Kind.String()
}

// Compatible reports whether an output pin of type out may feed an input
// pin of type in. Types must be identical, except that a scalar output may
// widen into an array input of the same element kind.
func Compatible(out, in PinType) bool {
	if out.Kind != in.Kind {
		return in.Kind == KindArray && widenable(out.Kind) && out.Kind == in.Elem
	}
	switch out.Kind {
	case KindArray:
		return out.Elem == in.Elem
	case KindProperty:
		return out.PropertyClass == in.PropertyClass
	}
	return true
}

func widenable(k ValueKind) bool {
	return k != KindFlow && k != KindArray && k != KindProperty
}

// Value is the literal or evaluated content of a pin.
type Value struct {
	Kind     ValueKind    `json:"kind"`
	Elem     ValueKind    `json:"elem,omitempty"`
	Floats   []float32    `json:"floats,omitempty"`
	Ints     []int32      `json:"ints,omitempty"`
	Handle   scene.Handle `json:"-"`
	Property ID           `json:"-"`
	Array    []Value      `json:"array,omitempty"`
}

// Float returns a float value.
func Float(f float32) Value { return Value{Kind: KindFloat, Floats: []float32{f}} }

// Float2 returns a float2 value.
func Float2(x, y float32) Value { return Value{Kind: KindFloat2, Floats: []float32{x, y}} }

// Float3 returns a float3 value.
func Float3(x, y, z float32) Value { return Value{Kind: KindFloat3, Floats: []float32{x, y, z}} }

// Float4 returns a float4 value.
func Float4(x, y, z, w float32) Value { return Value{Kind: KindFloat4, Floats: []float32{x, y, z, w}} }

// Int returns an int value.
func Int(i int32) Value { return Value{Kind: KindInt, Ints: []int32{i}} }

// Texture returns a texture handle value.
func Texture(h scene.Handle) Value { return Value{Kind: KindTexture, Handle: h} }

// Mesh returns a mesh handle value.
func Mesh(h scene.Handle) Value { return Value{Kind: KindMesh, Handle: h} }

// PropertyRef returns a reference to the property with the given id.
func PropertyRef(id ID) Value { return Value{Kind: KindProperty, Property: id} }

// Array returns an array of elem-kind values.
func Array(elem ValueKind, items ...Value) Value {
	return Value{Kind: KindArray, Elem: elem, Array: items}
}

// FloatArray returns an array of float values.
func FloatArray(fs ...float32) Value {
	items := make([]Value, len(fs))
	for i, f := range fs {
		items[i] = Float(f)
	}
	return Array(KindFloat, items...)
}

// Zero returns the zero value of t.
func Zero(t PinType) Value {
	v := Value{Kind: t.Kind}
	switch {
	case t.Kind.IsFloat():
		v.Floats = make([]float32, t.Kind.Components())
	case t.Kind.IsInt():
		v.Ints = make([]int32, t.Kind.Components())
	case t.Kind == KindArray:
		v.Elem = t.Elem
	}
	return v
}

// Conforms reports whether v can be stored in a pin of type t.
func (v Value) Conforms(t PinType) bool {
	if v.Kind != t.Kind {
		return false
	}
	switch {
	case t.Kind.IsFloat():
		return len(v.Floats) == t.Kind.Components()
	case t.Kind.IsInt():
		return len(v.Ints) == t.Kind.Components()
	case t.Kind == KindArray:
		if v.Elem != t.Elem {
			return false
		}
		for _, item := range v.Array {
			if item.Kind != t.Elem {
				return false
			}
		}
	}
	return true
}

// Widen converts v for delivery into a pin of type to. A scalar becomes a
// single-element array; everything else is returned unchanged.
func (v Value) Widen(to PinType) Value {
	if to.Kind == KindArray && v.Kind != KindArray && v.Kind == to.Elem {
		return Array(to.Elem, v.Clone())
	}
	return v
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	c := v
	c.Floats = slices.Clone(v.Floats)
	c.Ints = slices.Clone(v.Ints)
	if v.Array != nil {
		c.Array = make([]Value, len(v.Array))
		for i, item := range v.Array {
			c.Array[i] = item.Clone()
		}
	}
	return c
}

// Scalar returns the first float component, or the first int component
// converted to float, or 0.
func (v Value) Scalar() float32 {
	if len(v.Floats) > 0 {
		return v.Floats[0]
	}
	if len(v.Ints) > 0 {
		return float32(v.Ints[0])
	}
	return 0
}

// Equal reports whether two values are identical.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind || v.Elem != o.Elem || v.Handle != o.Handle || v.Property != o.Property {
		return false
	}
	if !slices.Equal(v.Floats, o.Floats) || !slices.Equal(v.Ints, o.Ints) || len(v.Array) != len(o.Array) {
		return false
	}
	for i := range v.Array {
		if !v.Array[i].Equal(o.Array[i]) {
			return false
		}
	}
	return true
}
