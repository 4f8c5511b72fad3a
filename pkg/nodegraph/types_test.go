package nodegraph

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCompatible(t *testing.T) {
	float := PinType{Kind: KindFloat}
	float4 := PinType{Kind: KindFloat4}
	floats := PinType{Kind: KindArray, Elem: KindFloat}
	ints := PinType{Kind: KindArray, Elem: KindInt}
	flow := PinType{Kind: KindFlow}
	mat := PinType{Kind: KindProperty, PropertyClass: "material"}
	tex := PinType{Kind: KindProperty, PropertyClass: "texture"}

	tests := []struct {
		name    string
		out, in PinType
		want    bool
	}{
		{"identical scalar", float, float, true},
		{"different width", float, float4, false},
		{"scalar widens", float, floats, true},
		{"wrong element", float, ints, false},
		{"array to scalar", floats, float, false},
		{"array to array", floats, floats, true},
		{"flow", flow, flow, true},
		{"flow never widens", flow, PinType{Kind: KindArray, Elem: KindFlow}, false},
		{"matching property", mat, mat, true},
		{"property class mismatch", mat, tex, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compatible(tt.out, tt.in); got != tt.want {
				t.Errorf("Compatible(%s, %s) = %v, want %v", tt.out, tt.in, got, tt.want)
			}
		})
	}
}

func TestPinTypeString(t *testing.T) {
	tests := []struct {
		typ  PinType
		want string
	}{
		{PinType{Kind: KindFloat3}, "float3"},
		{PinType{Kind: KindArray, Elem: KindInt}, "array<int>"},
		{PinType{Kind: KindProperty, PropertyClass: "model"}, "property<model>"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValueConforms(t *testing.T) {
	if !Float4(1, 2, 3, 4).Conforms(PinType{Kind: KindFloat4}) {
		t.Error("float4 should conform to float4")
	}
	if (Value{Kind: KindFloat4, Floats: []float32{1}}).Conforms(PinType{Kind: KindFloat4}) {
		t.Error("short float4 should not conform")
	}
	if !FloatArray(1, 2).Conforms(PinType{Kind: KindArray, Elem: KindFloat}) {
		t.Error("float array should conform")
	}
	if Array(KindFloat, Int(1)).Conforms(PinType{Kind: KindArray, Elem: KindFloat}) {
		t.Error("array with int item should not conform to array<float>")
	}
	z := Zero(PinType{Kind: KindInt3})
	if len(z.Ints) != 3 || !z.Conforms(PinType{Kind: KindInt3}) {
		t.Errorf("Zero(int3) = %+v", z)
	}
}

func TestValueCloneIsDeep(t *testing.T) {
	v := Array(KindFloat4, Float4(1, 2, 3, 4))
	c := v.Clone()
	c.Array[0].Floats[0] = 9
	if v.Array[0].Floats[0] != 1 {
		t.Error("Clone shares float storage")
	}
	if !v.Equal(v.Clone()) {
		t.Error("clone not equal to original")
	}
}

func TestValueKindText(t *testing.T) {
	b, err := json.Marshal(Float2(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != `{"kind":"float2","floats":[1,2]}` {
		t.Errorf("json = %s", got)
	}
	var k ValueKind
	if err := k.UnmarshalText([]byte("texture")); err != nil || k != KindTexture {
		t.Errorf("UnmarshalText(texture) = %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("quaternion")); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestRegistryRejectsBadClasses(t *testing.T) {
	r := newTestRegistry(t)
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate pin", r.RegisterPin(PinClass{Name: "float", Type: PinType{Kind: KindFloat}}), ErrDuplicateClass},
		{"duplicate node", r.RegisterNode(NodeClass{Name: "test.add"}), ErrDuplicateClass},
		{"unknown pin class", r.RegisterNode(NodeClass{Name: "x", Pins: []PinSpec{{Name: "a", Class: "vec9"}}}), ErrInvalidClass},
		{"repeated pin name", r.RegisterNode(NodeClass{Name: "y", Pins: []PinSpec{
			{Name: "a", Class: "float"}, {Name: "a", Class: "float"},
		}}), ErrInvalidClass},
		{"bad default", r.RegisterPin(PinClass{Name: "f2", Type: PinType{Kind: KindFloat2}, Default: &Value{Kind: KindFloat2}}), ErrInvalidClass},
		{"property wraps unknown asset", r.RegisterProperty(PropertyClass{Name: "mesh", Asset: "mesh"}), ErrInvalidClass},
		{"nameless asset", r.RegisterAsset(AssetClass{}), ErrInvalidClass},
	}
	for _, tt := range tests {
		if !errors.Is(tt.err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, tt.err, tt.want)
		}
	}

	names := make([]string, 0)
	for _, c := range r.NodeClasses() {
		names = append(names, c.Name)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("NodeClasses not sorted: %v", names)
		}
	}
}
