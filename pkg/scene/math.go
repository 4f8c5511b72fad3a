package scene

import "math"

// Vec3 is a point or direction in world or local space.
type Vec3 [3]float64

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Quat is a rotation quaternion stored as (x, y, z, w).
// The zero value is treated as the identity rotation.
type Quat [4]float64

// IdentityQuat is the rotation that leaves vectors unchanged.
var IdentityQuat = Quat{0, 0, 0, 1}

// AxisAngle returns the rotation of angle radians around axis.
func AxisAngle(axis Vec3, angle float64) Quat {
	l := math.Sqrt(axis.Dot(axis))
	if l == 0 {
		return IdentityQuat
	}
	s := math.Sin(angle/2) / l
	return Quat{axis[0] * s, axis[1] * s, axis[2] * s, math.Cos(angle / 2)}
}

// Normalized returns q scaled to unit length. The zero quaternion
// normalizes to the identity.
func (q Quat) Normalized() Quat {
	l := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l == 0 {
		return IdentityQuat
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Conjugate returns the inverse rotation of a unit quaternion.
func (q Quat) Conjugate() Quat { return Quat{-q[0], -q[1], -q[2], q[3]} }

// Rotate applies q to v.
func (q Quat) Rotate(v Vec3) Vec3 {
	q = q.Normalized()
	u := Vec3{q[0], q[1], q[2]}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q[3])).Add(u.Cross(t))
}

// Transform places an object in world space.
type Transform struct {
	Position Vec3 `toml:"position" json:"position"`
	Rotation Quat `toml:"rotation" json:"rotation"`
	Scale    Vec3 `toml:"scale" json:"scale"`
}

// Identity returns a transform at the origin with unit scale.
func Identity() Transform {
	return Transform{Rotation: IdentityQuat, Scale: Vec3{1, 1, 1}}
}

// TransformPoint maps a local-space point into world space.
func (t Transform) TransformPoint(p Vec3) Vec3 {
	s := t.scale()
	scaled := Vec3{p[0] * s[0], p[1] * s[1], p[2] * s[2]}
	return t.Rotation.Rotate(scaled).Add(t.Position)
}

// InverseTransformPoint maps a world-space point into local space.
// Zero scale components are treated as 1 so that a degenerate transform
// never produces infinities.
func (t Transform) InverseTransformPoint(p Vec3) Vec3 {
	local := t.Rotation.Normalized().Conjugate().Rotate(p.Sub(t.Position))
	s := t.scale()
	return Vec3{local[0] / s[0], local[1] / s[1], local[2] / s[2]}
}

func (t Transform) scale() Vec3 {
	s := t.Scale
	for i := range s {
		if s[i] == 0 {
			s[i] = 1
		}
	}
	return s
}

// AABB is an axis-aligned bounding box in local space.
type AABB struct {
	Min Vec3 `toml:"min" json:"min"`
	Max Vec3 `toml:"max" json:"max"`
}

// UnitCube is the box spanning [-0.5, 0.5] on every axis.
var UnitCube = AABB{Min: Vec3{-0.5, -0.5, -0.5}, Max: Vec3{0.5, 0.5, 0.5}}

// Empty reports whether the box encloses no volume.
func (b AABB) Empty() bool {
	return b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] || b.Max[2] <= b.Min[2]
}

// Contains reports whether p lies inside the box, boundaries included.
func (b AABB) Contains(p Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}
